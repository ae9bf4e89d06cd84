package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// CreateClassRequest creates a class
type CreateClassRequest struct {
	Name        string `json:"name" binding:"required,max=120" example:"Physics 101"`
	Section     string `json:"section" binding:"max=60" example:"Period 2"`
	Subject     string `json:"subject" binding:"max=120" example:"Physics"`
	Description string `json:"description" binding:"max=2000"`
}

// UpdateClassRequest updates a class. Omitted fields are left unchanged.
type UpdateClassRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=1,max=120"`
	Section     *string `json:"section" binding:"omitempty,max=60"`
	Subject     *string `json:"subject" binding:"omitempty,max=120"`
	Description *string `json:"description" binding:"omitempty,max=2000"`
	Archived    *bool   `json:"archived"`
}

// JoinClassRequest joins a class by its code
type JoinClassRequest struct {
	Code string `json:"code" binding:"required,classcode" example:"X7K2P9Q"`
}

// ClassResponse is a class as seen by one of its members
type ClassResponse struct {
	ID          int64     `json:"id" example:"1"`
	Name        string    `json:"name" example:"Physics 101"`
	Section     string    `json:"section"`
	Subject     string    `json:"subject"`
	Description string    `json:"description"`
	Code        string    `json:"code,omitempty" example:"X7K2P9Q"`
	TeacherID   int64     `json:"teacherId"`
	Archived    bool      `json:"archived"`
	Role        string    `json:"role,omitempty" example:"STUDENT"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// NewClassResponse maps a class; the join code is only exposed to teachers
func NewClassResponse(c *models.Class, role models.MemberRole) ClassResponse {
	resp := ClassResponse{
		ID:          c.ID,
		Name:        c.Name,
		Section:     c.Section,
		Subject:     c.Subject,
		Description: c.Description,
		TeacherID:   c.TeacherID,
		Archived:    c.Archived,
		Role:        string(role),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
	if role == models.MemberTeacher {
		resp.Code = c.Code
	}
	return resp
}

// MemberResponse is one class member
type MemberResponse struct {
	UserID    int64     `json:"userId"`
	Username  string    `json:"username"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Role      string    `json:"role"`
	JoinedAt  time.Time `json:"joinedAt"`
}

// NewMemberResponse maps a membership with its user
func NewMemberResponse(m *models.ClassMember) MemberResponse {
	resp := MemberResponse{
		UserID:   m.UserID,
		Role:     string(m.Role),
		JoinedAt: m.JoinedAt,
	}
	if m.User != nil {
		resp.Username = m.User.Username
		resp.FirstName = m.User.FirstName
		resp.LastName = m.User.LastName
	}
	return resp
}
