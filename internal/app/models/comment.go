package models

import "time"

// CommentTarget is the kind of resource a comment is attached to
type CommentTarget string

const (
	CommentOnClass      CommentTarget = "CLASS"
	CommentOnAssignment CommentTarget = "ASSIGNMENT"
	CommentOnMaterial   CommentTarget = "MATERIAL"
	CommentOnForm       CommentTarget = "FORM"
)

// IsValid reports whether t is a known comment target
func (t CommentTarget) IsValid() bool {
	switch t {
	case CommentOnClass, CommentOnAssignment, CommentOnMaterial, CommentOnForm:
		return true
	}
	return false
}

// Comment is a message posted on a class resource
type Comment struct {
	ID         int64         `json:"id" db:"id"`
	ClassID    int64         `json:"classId" db:"class_id"`
	TargetType CommentTarget `json:"targetType" db:"target_type"`
	TargetID   int64         `json:"targetId" db:"target_id"`
	AuthorID   int64         `json:"authorId" db:"author_id"`
	Body       string        `json:"body" db:"body"`
	CreatedAt  time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time     `json:"updatedAt" db:"updated_at"`

	// Relations
	Author *User `json:"author,omitempty"`
}
