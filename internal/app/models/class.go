package models

import "time"

// MemberRole is the role a user holds inside a class
type MemberRole string

const (
	MemberTeacher MemberRole = "TEACHER"
	MemberStudent MemberRole = "STUDENT"
)

// Class represents a classroom
type Class struct {
	ID          int64     `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Section     string    `json:"section" db:"section"`
	Subject     string    `json:"subject" db:"subject"`
	Description string    `json:"description" db:"description"`
	Code        string    `json:"code" db:"code"`
	TeacherID   int64     `json:"teacherId" db:"teacher_id"`
	Archived    bool      `json:"archived" db:"archived"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

// ClassMember links a user to a class
type ClassMember struct {
	ClassID  int64      `json:"classId" db:"class_id"`
	UserID   int64      `json:"userId" db:"user_id"`
	Role     MemberRole `json:"role" db:"role"`
	JoinedAt time.Time  `json:"joinedAt" db:"joined_at"`

	// Relations
	User *User `json:"user,omitempty"`
}
