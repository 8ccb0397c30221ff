package model

import "time"

// Question is one stored multiple-choice item of an exam's question bank.
// CorrectAnswer is empty when the source document gave no usable answer.
type Question struct {
	ID            int64     `json:"id"`
	ExamID        int64     `json:"examId"`
	Text          string    `json:"question"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`
}

// QuestionMeta is the student-facing view of a question.
type QuestionMeta struct {
	ID       int64    `json:"id"`
	Question string   `json:"question"`
	Options  []string `json:"options"`
}

// AllocateQuery identifies the student asking for their question set.
type AllocateQuery struct {
	ExamID    int64  `form:"examId" binding:"required,min=1"`
	StudentID string `form:"studentId" binding:"required,max=100"`
}
