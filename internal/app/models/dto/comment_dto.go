package dto

import "github.com/yigit/classroom/internal/app/models"

// CreateCommentRequest posts a comment on a class resource.
// targetId is ignored for CLASS comments.
type CreateCommentRequest struct {
	TargetType string `json:"targetType" binding:"required,oneof=CLASS ASSIGNMENT MATERIAL FORM" example:"ASSIGNMENT"`
	TargetID   int64  `json:"targetId" binding:"gte=0" example:"4"`
	Body       string `json:"body" binding:"required,max=5000" example:"When is this due?"`
}

// UpdateCommentRequest edits a comment body
type UpdateCommentRequest struct {
	Body string `json:"body" binding:"required,max=5000"`
}

// CommentResponse is a comment with its author
type CommentResponse struct {
	models.Comment
	Author *UserSummary `json:"author,omitempty"`
}

// NewCommentResponse maps a comment
func NewCommentResponse(c *models.Comment) CommentResponse {
	resp := CommentResponse{Comment: *c}
	resp.Comment.Author = nil
	resp.Author = NewUserSummary(c.Author)
	return resp
}
