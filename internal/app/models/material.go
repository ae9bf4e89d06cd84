package models

import "time"

// Material is course material shared with a class
type Material struct {
	ID          int64        `json:"id" db:"id"`
	ClassID     int64        `json:"classId" db:"class_id"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Files       []Attachment `json:"files" db:"files"`
	Links       []string     `json:"links" db:"links"`
	CreatedBy   int64        `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time    `json:"updatedAt" db:"updated_at"`
}
