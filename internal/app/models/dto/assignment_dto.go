package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// AttachmentRequest references a file returned by the upload endpoint
type AttachmentRequest struct {
	Name     string `json:"name" binding:"required,max=255" example:"worksheet.pdf"`
	URL      string `json:"url" binding:"required,max=2048" example:"/uploads/assignments/8d3e.pdf"`
	Size     int64  `json:"size" binding:"gte=0"`
	MimeType string `json:"mimeType" binding:"max=255" example:"application/pdf"`
}

// ToAttachments converts request attachments to models
func ToAttachments(in []AttachmentRequest) []models.Attachment {
	out := make([]models.Attachment, 0, len(in))
	for _, a := range in {
		out = append(out, models.Attachment{Name: a.Name, URL: a.URL, Size: a.Size, MimeType: a.MimeType})
	}
	return out
}

// CreateAssignmentRequest creates an assignment
type CreateAssignmentRequest struct {
	Title        string              `json:"title" binding:"required,max=200" example:"Lab report 1"`
	Instructions string              `json:"instructions" binding:"max=10000"`
	Points       float64             `json:"points" binding:"gte=0,lte=1000" example:"100"`
	DueAt        *time.Time          `json:"dueAt" example:"2025-05-01T23:59:00Z"`
	AllowLate    bool                `json:"allowLate"`
	Attachments  []AttachmentRequest `json:"attachments" binding:"omitempty,dive"`
}

// UpdateAssignmentRequest updates an assignment. Omitted fields are left unchanged.
type UpdateAssignmentRequest struct {
	Title        *string              `json:"title" binding:"omitempty,min=1,max=200"`
	Instructions *string              `json:"instructions" binding:"omitempty,max=10000"`
	Points       *float64             `json:"points" binding:"omitempty,gte=0,lte=1000"`
	DueAt        *time.Time           `json:"dueAt"`
	ClearDueAt   bool                 `json:"clearDueAt"`
	AllowLate    *bool                `json:"allowLate"`
	Attachments  *[]AttachmentRequest `json:"attachments" binding:"omitempty,dive"`
}

// SubmitAssignmentRequest hands in (or replaces) a student's work
type SubmitAssignmentRequest struct {
	Text        string              `json:"text" binding:"max=20000"`
	Attachments []AttachmentRequest `json:"attachments" binding:"omitempty,dive"`
}

// GradeSubmissionRequest grades a submission
type GradeSubmissionRequest struct {
	Grade    *float64 `json:"grade" binding:"required,gte=0" example:"87.5"`
	Feedback string   `json:"feedback" binding:"max=5000"`
}

// SubmissionResponse is a submission with its student
type SubmissionResponse struct {
	models.Submission
	Student *UserSummary `json:"student,omitempty"`
}
