package model

import "time"

// Result is a scored submission. At most one exists per (ExamID, RegNo).
type Result struct {
	ID                   int64     `json:"id"`
	ExamID               int64     `json:"examId"`
	RegNo                string    `json:"regNo"`
	Score                int       `json:"score"`
	HighestScorePossible int       `json:"highestScorePossible"`
	CreatedAt            time.Time `json:"createdAt"`
}

// RankedResult is a result row joined with its exam context, ordered by score.
type RankedResult struct {
	Result
	Position  int      `json:"position"`
	ClassName string   `json:"className"`
	Subject   string   `json:"subject"`
	ExamType  ExamType `json:"examType"`
	Session   string   `json:"session"`
	Term      Term     `json:"term"`
}

// Answer is one submitted (or saved) answer.
type Answer struct {
	QuestionID int64  `json:"questionId" binding:"required,min=1"`
	AnswerText string `json:"answerText"`
}

// SubmitResultRequest is the payload for scoring a finished attempt.
type SubmitResultRequest struct {
	RegNo   string   `json:"regNo" binding:"required,max=100"`
	ExamID  int64    `json:"examId" binding:"required,min=1"`
	Answers []Answer `json:"answers" binding:"required,dive"`
}

// ResultFilter narrows the ranked results view.
type ResultFilter struct {
	ClassName string   `form:"className" binding:"required"`
	Subject   string   `form:"subject" binding:"required"`
	ExamType  ExamType `form:"examType" binding:"required,oneof=test exam assignment"`
}

// DeleteResultQuery addresses one result by query string.
type DeleteResultQuery struct {
	ResultID int64 `form:"resultId" binding:"required,min=1"`
}
