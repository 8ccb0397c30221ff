package model

import "time"

// Class represents a school class group, identified by its name (e.g. "JSS2A").
type Class struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreateClassRequest is the payload for creating a class.
type CreateClassRequest struct {
	Name string `json:"name" binding:"required,min=1,max=100"`
}
