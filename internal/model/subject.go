package model

import "time"

// Subject represents an academic course or subject.
type Subject struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateSubjectRequest is the payload for creating a subject.
type CreateSubjectRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}

// SearchQuery is a keyword search over one allow-listed field, or every
// allow-listed field when Field is empty.
type SearchQuery struct {
	Keyword string `form:"keyword" binding:"required,max=100"`
	Field   string `form:"field" binding:"omitempty,max=50"`
}
