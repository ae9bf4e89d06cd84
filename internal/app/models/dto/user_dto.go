package dto

import (
	"time"

	"github.com/yigit/classroom/internal/app/models"
)

// UserResponse is the public view of an account
type UserResponse struct {
	ID          int64      `json:"id" example:"1"`
	Username    string     `json:"username" example:"jdoe"`
	Email       string     `json:"email" example:"jdoe@school.edu"`
	FirstName   string     `json:"firstName" example:"John"`
	LastName    string     `json:"lastName" example:"Doe"`
	RoleType    string     `json:"roleType" example:"STUDENT" enums:"STUDENT,TEACHER,ADMIN"`
	IsActive    bool       `json:"isActive" example:"true"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// UserSummary is the short form of a user embedded in other resources
type UserSummary struct {
	ID        int64  `json:"id" example:"1"`
	Username  string `json:"username" example:"jdoe"`
	FirstName string `json:"firstName" example:"John"`
	LastName  string `json:"lastName" example:"Doe"`
}

// NewUserResponse maps a user model to its response
func NewUserResponse(u *models.User) *UserResponse {
	if u == nil {
		return nil
	}
	return &UserResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		RoleType:    string(u.RoleType),
		IsActive:    u.IsActive,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

// NewUserSummary maps a user model to its summary
func NewUserSummary(u *models.User) *UserSummary {
	if u == nil {
		return nil
	}
	return &UserSummary{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
	}
}

// UpdateProfileRequest changes the caller's profile. Omitted fields are left unchanged.
type UpdateProfileRequest struct {
	FirstName *string `json:"firstName" binding:"omitempty,min=1,max=100" example:"John"`
	LastName  *string `json:"lastName" binding:"omitempty,min=1,max=100" example:"Doe"`
	Email     *string `json:"email" binding:"omitempty,email,max=255" example:"jdoe@school.edu"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required" example:"oldpass123"`
	NewPassword     string `json:"newPassword" binding:"required,password" example:"newpass456"`
}

// UserFilterRequest narrows the admin account listing
type UserFilterRequest struct {
	Role   string `form:"role" binding:"omitempty,oneof=STUDENT TEACHER ADMIN" example:"STUDENT"`
	Active *bool  `form:"active" example:"true"`
	Search string `form:"search" binding:"max=100" example:"doe"`
}

// SetUserStatusRequest enables or disables an account
type SetUserStatusRequest struct {
	Active *bool `json:"active" binding:"required" example:"false"`
}
