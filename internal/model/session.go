package model

import "time"

// AttendanceEntry is the live-status facet of one (student, exam) session.
type AttendanceEntry struct {
	StudentID string `json:"studentId,omitempty"`
	ExamID    int64  `json:"examId"`
	Active    bool   `json:"active"`
	TimeLeft  int    `json:"timeLeft"`
	Answered  int    `json:"answered"`
}

// AttendancePatch carries the fields of an AttendanceEntry to overwrite;
// nil fields are left untouched.
type AttendancePatch struct {
	Active   *bool
	TimeLeft *int
	Answered *int
}

// Progress is the saved-progress facet of one (student, exam) session.
type Progress struct {
	Answers      []Answer       `json:"answers"`
	CurrentIndex int            `json:"currentIndex" binding:"min=0"`
	QuestionMeta []QuestionMeta `json:"questionMeta"`
}

// ProgressView is Progress merged with the live-status facet for reads.
type ProgressView struct {
	Progress
	TimeLeft               *int  `json:"timeLeft"`
	Active                 *bool `json:"active,omitempty"`
	TotalQuestionsAnswered int   `json:"totalQuestionsAnswered"`
}

// EmptyProgressView is returned when nothing was saved for a session.
func EmptyProgressView() *ProgressView {
	return &ProgressView{
		Progress: Progress{
			Answers:      []Answer{},
			QuestionMeta: []QuestionMeta{},
		},
	}
}

// ProgressQuery identifies one session's saved progress.
type ProgressQuery struct {
	StudentID string `form:"studentId" binding:"required,max=100"`
	ExamID    int64  `form:"examId" binding:"required,min=1"`
}

// SaveProgressRequest is the payload for saving a session's progress.
type SaveProgressRequest struct {
	StudentID string    `json:"studentId" binding:"required,max=100"`
	ExamID    int64     `json:"examId" binding:"required,min=1"`
	Progress  *Progress `json:"progress" binding:"required"`
}

// AttendanceRecord is the durable ledger row written when a student joins an exam.
type AttendanceRecord struct {
	ID       int64     `json:"id"`
	ExamID   int64     `json:"examId"`
	RegNo    string    `json:"regNo"`
	Attended bool      `json:"attended"`
	JoinedAt time.Time `json:"joinedAt"`
}

// AttendanceQuery lists the ledger of one exam.
type AttendanceQuery struct {
	ExamID int64 `form:"examId" binding:"required,min=1"`
}
