package auth

import (
	"context"
	"errors"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// Actor identifies the authenticated caller of a service operation
type Actor struct {
	UserID int64
	Role   models.RoleType
}

// IsAdmin reports whether the caller holds the ADMIN role
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin
}

// CanTeach reports whether the caller may own classes
func (a Actor) CanTeach() bool {
	return a.Role == models.RoleTeacher || a.Role == models.RoleAdmin
}

// ClassAccess is the result of a successful class authorization check.
// Member is nil when an admin reads a class they do not belong to.
type ClassAccess struct {
	Class  *models.Class
	Member *models.ClassMember
}

// IsTeacher reports whether the caller teaches the class (admins always do)
func (a *ClassAccess) IsTeacher(actor Actor) bool {
	if actor.IsAdmin() {
		return true
	}
	return a.Member != nil && a.Member.Role == models.MemberTeacher
}

// IsStudent reports whether the caller is enrolled as a student
func (a *ClassAccess) IsStudent() bool {
	return a.Member != nil && a.Member.Role == models.MemberStudent
}

// AuthorizationService answers class-scoped permission questions
type AuthorizationService struct {
	classRepo repositories.IClassRepository
}

// NewAuthorizationService creates a new AuthorizationService
func NewAuthorizationService(classRepo repositories.IClassRepository) *AuthorizationService {
	return &AuthorizationService{
		classRepo: classRepo,
	}
}

// RequireMember loads a class the caller belongs to
func (s *AuthorizationService) RequireMember(ctx context.Context, actor Actor, classID int64) (*ClassAccess, error) {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return nil, err
	}

	member, err := s.classRepo.GetMember(ctx, classID, actor.UserID)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotClassMember) {
			logger.Error().Err(err).Int64("classID", classID).Int64("userID", actor.UserID).Msg("Error loading class membership")
			return nil, err
		}
		if !actor.IsAdmin() {
			return nil, apperrors.NewForbiddenError("you are not a member of this class")
		}
		member = nil
	}

	return &ClassAccess{Class: class, Member: member}, nil
}

// RequireClassTeacher loads a class the caller teaches
func (s *AuthorizationService) RequireClassTeacher(ctx context.Context, actor Actor, classID int64) (*ClassAccess, error) {
	access, err := s.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if !access.IsTeacher(actor) {
		return nil, apperrors.NewForbiddenError("only the class teacher can perform this action")
	}
	return access, nil
}

// RequireStudent loads an active class the caller is enrolled in as a student
func (s *AuthorizationService) RequireStudent(ctx context.Context, actor Actor, classID int64) (*ClassAccess, error) {
	access, err := s.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	if !access.IsStudent() {
		return nil, apperrors.NewForbiddenError("only students of this class can perform this action")
	}
	if access.Class.Archived {
		return nil, apperrors.ErrClassArchived
	}
	return access, nil
}
