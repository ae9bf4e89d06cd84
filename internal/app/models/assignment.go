package models

import "time"

// SubmissionStatus is the lifecycle state of a submission
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "SUBMITTED"
	SubmissionReturned  SubmissionStatus = "RETURNED"
)

// Assignment is graded coursework inside a class
type Assignment struct {
	ID           int64        `json:"id" db:"id"`
	ClassID      int64        `json:"classId" db:"class_id"`
	Title        string       `json:"title" db:"title"`
	Instructions string       `json:"instructions" db:"instructions"`
	Points       float64      `json:"points" db:"points"`
	DueAt        *time.Time   `json:"dueAt,omitempty" db:"due_at"`
	AllowLate    bool         `json:"allowLate" db:"allow_late"`
	Attachments  []Attachment `json:"attachments" db:"attachments"`
	CreatedBy    int64        `json:"createdBy" db:"created_by"`
	CreatedAt    time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt    time.Time    `json:"updatedAt" db:"updated_at"`
}

// IsPastDue reports whether now is after the due date
func (a *Assignment) IsPastDue(now time.Time) bool {
	return a.DueAt != nil && now.After(*a.DueAt)
}

// Submission is a student's work for an assignment
type Submission struct {
	ID           int64            `json:"id" db:"id"`
	AssignmentID int64            `json:"assignmentId" db:"assignment_id"`
	StudentID    int64            `json:"studentId" db:"student_id"`
	Text         string           `json:"text" db:"text"`
	Attachments  []Attachment     `json:"attachments" db:"attachments"`
	Status       SubmissionStatus `json:"status" db:"status"`
	Late         bool             `json:"late" db:"late"`
	Grade        *float64         `json:"grade,omitempty" db:"grade"`
	Feedback     string           `json:"feedback" db:"feedback"`
	SubmittedAt  time.Time        `json:"submittedAt" db:"submitted_at"`
	GradedAt     *time.Time       `json:"gradedAt,omitempty" db:"graded_at"`
	UpdatedAt    time.Time        `json:"updatedAt" db:"updated_at"`
}
