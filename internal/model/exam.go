package model

import "time"

// ExamType enumerates the kinds of assessment an exam can be.
type ExamType string

const (
	ExamTypeTest       ExamType = "test"
	ExamTypeExam       ExamType = "exam"
	ExamTypeAssignment ExamType = "assignment"
)

// Term enumerates the academic terms.
type Term string

const (
	TermFirst  Term = "first"
	TermSecond Term = "second"
	TermThird  Term = "third"
)

// Exam represents an exam entity. TimeAllocated is in minutes.
type Exam struct {
	ID             int64     `json:"id"`
	ExamType       ExamType  `json:"examType"`
	Session        string    `json:"session"`
	Term           Term      `json:"term"`
	TimeAllocated  int       `json:"timeAllocated"`
	TotalQuestions int       `json:"totalQuestions"`
	SubjectID      int       `json:"subjectId"`
	SubjectName    string    `json:"subject,omitempty"`
	ClassID        int       `json:"classId"`
	ClassName      string    `json:"className,omitempty"`
	Status         bool      `json:"status"`
	DocumentPath   string    `json:"-"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// TimeAllocatedSeconds returns the allocated duration in seconds.
func (e *Exam) TimeAllocatedSeconds() int {
	return e.TimeAllocated * 60
}

// CreateExamRequest is the multipart form accompanying an uploaded question document.
type CreateExamRequest struct {
	ExamType       ExamType `form:"examType" json:"examType" binding:"required,oneof=test exam assignment"`
	Session        string   `form:"session" json:"session" binding:"required,max=20"`
	Term           Term     `form:"term" json:"term" binding:"required,oneof=first second third"`
	TimeAllocated  int      `form:"timeAllocated" json:"timeAllocated" binding:"omitempty,min=1,max=600"`
	TotalQuestions int      `form:"totalQuestions" json:"totalQuestions" binding:"required,min=1,max=500"`
	Subject        string   `form:"subject" json:"subject" binding:"required,min=1,max=100"`
	ClassName      string   `form:"className" json:"className" binding:"required,min=1,max=100"`
}

// UpdateExamStatusQuery toggles an exam's active flag.
type UpdateExamStatusQuery struct {
	ExamID int64 `form:"examId" json:"examId" binding:"required,min=1"`
	Status *bool `form:"status" json:"status" binding:"required"`
}

// TakeExamQuery selects the exams a student may sit.
type TakeExamQuery struct {
	ClassName string `form:"className" json:"className" binding:"required"`
	RegNo     string `form:"regNo" json:"regNo" binding:"required"`
}

// ExamPage is the exam listing. When the catalogue fits in one page the
// whole list is returned and Paginated is false.
type ExamPage struct {
	Paginated   bool   `json:"paginated"`
	Data        []Exam `json:"data"`
	CurrentPage int    `json:"currentPage,omitempty"`
	TotalPages  int    `json:"totalPages,omitempty"`
	TotalItems  int    `json:"totalItems"`
}

// ExamIDQuery addresses one exam by query string.
type ExamIDQuery struct {
	ExamID int64 `form:"examId" binding:"required,min=1"`
}
