package models

import "time"

// NotificationType categorizes notifications
type NotificationType string

const (
	NotificationAssignmentCreated NotificationType = "ASSIGNMENT_CREATED"
	NotificationSubmissionGraded  NotificationType = "SUBMISSION_GRADED"
	NotificationFormPublished     NotificationType = "FORM_PUBLISHED"
	NotificationResponseSubmitted NotificationType = "RESPONSE_SUBMITTED"
	NotificationResponseGraded    NotificationType = "RESPONSE_GRADED"
	NotificationMaterialCreated   NotificationType = "MATERIAL_CREATED"
	NotificationCommentCreated    NotificationType = "COMMENT_CREATED"
	NotificationClassJoined       NotificationType = "CLASS_JOINED"
)

// Notification is a short message delivered to one user
type Notification struct {
	ID        int64            `json:"id" db:"id"`
	UserID    int64            `json:"userId" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Link      string           `json:"link" db:"link"`
	ClassID   *int64           `json:"classId,omitempty" db:"class_id"`
	Read      bool             `json:"read" db:"read"`
	ReadAt    *time.Time       `json:"readAt,omitempty" db:"read_at"`
	CreatedAt time.Time        `json:"createdAt" db:"created_at"`
}
