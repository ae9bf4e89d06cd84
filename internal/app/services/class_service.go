package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

const (
	classCodeLength   = 7
	classCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	classCodeAttempts = 5
)

// ClassService defines class and membership operations
type ClassService interface {
	Create(ctx context.Context, actor authz.Actor, req *dto.CreateClassRequest) (*dto.ClassResponse, error)
	Get(ctx context.Context, actor authz.Actor, classID int64) (*dto.ClassResponse, error)
	ListMine(ctx context.Context, actor authz.Actor, includeArchived bool, page, size int) ([]dto.ClassResponse, int64, error)
	Update(ctx context.Context, actor authz.Actor, classID int64, req *dto.UpdateClassRequest) (*dto.ClassResponse, error)
	Delete(ctx context.Context, actor authz.Actor, classID int64) error
	Join(ctx context.Context, actor authz.Actor, code string) (*dto.ClassResponse, error)
	Leave(ctx context.Context, actor authz.Actor, classID int64) error
	ListMembers(ctx context.Context, actor authz.Actor, classID int64) ([]dto.MemberResponse, error)
	RemoveMember(ctx context.Context, actor authz.Actor, classID, userID int64) error
	RegenerateCode(ctx context.Context, actor authz.Actor, classID int64) (*dto.ClassResponse, error)
}

// classServiceImpl implements ClassService
type classServiceImpl struct {
	classRepo repositories.IClassRepository
	authz     *authz.AuthorizationService
	notifier  *NotificationService
	logger    zerolog.Logger
}

// NewClassService creates a new ClassService
func NewClassService(
	classRepo repositories.IClassRepository,
	authorization *authz.AuthorizationService,
	notifier *NotificationService,
	logger zerolog.Logger,
) ClassService {
	return &classServiceImpl{
		classRepo: classRepo,
		authz:     authorization,
		notifier:  notifier,
		logger:    logger,
	}
}

// newClassCode derives a join code from a random UUID
func newClassCode() string {
	id := uuid.New()
	code := make([]byte, classCodeLength)
	for i := range code {
		code[i] = classCodeAlphabet[int(id[i])%len(classCodeAlphabet)]
	}
	return string(code)
}

// memberRole returns the caller's role in the class, empty for a non-member admin
func memberRole(access *authz.ClassAccess) models.MemberRole {
	if access.Member == nil {
		return ""
	}
	return access.Member.Role
}

// Create creates a class owned by the caller
func (s *classServiceImpl) Create(ctx context.Context, actor authz.Actor, req *dto.CreateClassRequest) (*dto.ClassResponse, error) {
	if !actor.CanTeach() {
		return nil, apperrors.NewForbiddenError("only teachers can create classes")
	}

	class := &models.Class{
		Name:        strings.TrimSpace(req.Name),
		Section:     strings.TrimSpace(req.Section),
		Subject:     strings.TrimSpace(req.Subject),
		Description: req.Description,
		TeacherID:   actor.UserID,
	}

	var err error
	for attempt := 0; attempt < classCodeAttempts; attempt++ {
		class.Code = newClassCode()
		if err = s.classRepo.Create(ctx, class); !errors.Is(err, apperrors.ErrConflict) {
			break
		}
		s.logger.Debug().Str("code", class.Code).Msg("Class code collision, retrying")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create class: %w", err)
	}

	s.logger.Info().Int64("classID", class.ID).Int64("teacherID", actor.UserID).Msg("Class created")
	resp := dto.NewClassResponse(class, models.MemberTeacher)
	return &resp, nil
}

// Get returns a class the caller belongs to
func (s *classServiceImpl) Get(ctx context.Context, actor authz.Actor, classID int64) (*dto.ClassResponse, error) {
	access, err := s.authz.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	role := memberRole(access)
	if actor.IsAdmin() && role == "" {
		role = models.MemberTeacher
	}
	resp := dto.NewClassResponse(access.Class, role)
	return &resp, nil
}

// ListMine pages the classes the caller belongs to
func (s *classServiceImpl) ListMine(ctx context.Context, actor authz.Actor, includeArchived bool, page, size int) ([]dto.ClassResponse, int64, error) {
	classes, total, err := s.classRepo.ListForUser(ctx, actor.UserID, includeArchived, page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list classes: %w", err)
	}

	out := make([]dto.ClassResponse, 0, len(classes))
	for _, c := range classes {
		role := models.MemberStudent
		if c.TeacherID == actor.UserID {
			role = models.MemberTeacher
		}
		out = append(out, dto.NewClassResponse(c, role))
	}
	return out, total, nil
}

// Update edits a class; only its teacher may do so
func (s *classServiceImpl) Update(ctx context.Context, actor authz.Actor, classID int64, req *dto.UpdateClassRequest) (*dto.ClassResponse, error) {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	class := access.Class
	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Section != nil {
		class.Section = strings.TrimSpace(*req.Section)
	}
	if req.Subject != nil {
		class.Subject = strings.TrimSpace(*req.Subject)
	}
	if req.Description != nil {
		class.Description = *req.Description
	}
	if req.Archived != nil {
		class.Archived = *req.Archived
	}

	if err := s.classRepo.Update(ctx, class); err != nil {
		return nil, fmt.Errorf("failed to update class: %w", err)
	}
	resp := dto.NewClassResponse(class, models.MemberTeacher)
	return &resp, nil
}

// Delete removes a class with all of its content
func (s *classServiceImpl) Delete(ctx context.Context, actor authz.Actor, classID int64) error {
	if _, err := s.authz.RequireClassTeacher(ctx, actor, classID); err != nil {
		return err
	}
	if err := s.classRepo.Delete(ctx, classID); err != nil {
		return fmt.Errorf("failed to delete class: %w", err)
	}
	s.logger.Info().Int64("classID", classID).Int64("userID", actor.UserID).Msg("Class deleted")
	return nil
}

// Join enrolls the calling student with a join code
func (s *classServiceImpl) Join(ctx context.Context, actor authz.Actor, code string) (*dto.ClassResponse, error) {
	if actor.Role != models.RoleStudent {
		return nil, apperrors.NewForbiddenError("only students can join classes with a code")
	}

	class, err := s.classRepo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		if errors.Is(err, apperrors.ErrClassNotFound) {
			return nil, apperrors.ErrInvalidClassCode
		}
		return nil, fmt.Errorf("failed to find class: %w", err)
	}
	if class.Archived {
		return nil, apperrors.ErrClassArchived
	}

	member := &models.ClassMember{ClassID: class.ID, UserID: actor.UserID, Role: models.MemberStudent}
	if err := s.classRepo.AddMember(ctx, member); err != nil {
		if errors.Is(err, apperrors.ErrAlreadyEnrolled) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to join class: %w", err)
	}

	classID := class.ID
	s.notifier.Notify(ctx, []int64{class.TeacherID}, NotificationPayload{
		Type:    models.NotificationClassJoined,
		Title:   "New student in " + class.Name,
		Body:    "A student joined your class.",
		Link:    classLink(class.ID, "members"),
		ClassID: &classID,
	})

	resp := dto.NewClassResponse(class, models.MemberStudent)
	return &resp, nil
}

// Leave removes the caller from a class. The owner cannot leave.
func (s *classServiceImpl) Leave(ctx context.Context, actor authz.Actor, classID int64) error {
	class, err := s.classRepo.GetByID(ctx, classID)
	if err != nil {
		return err
	}
	if class.TeacherID == actor.UserID {
		return apperrors.NewBadRequestError("the class owner cannot leave the class")
	}
	return s.classRepo.RemoveMember(ctx, classID, actor.UserID)
}

// ListMembers lists a class's members, teachers first
func (s *classServiceImpl) ListMembers(ctx context.Context, actor authz.Actor, classID int64) ([]dto.MemberResponse, error) {
	if _, err := s.authz.RequireMember(ctx, actor, classID); err != nil {
		return nil, err
	}
	members, err := s.classRepo.ListMembers(ctx, classID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	out := make([]dto.MemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, dto.NewMemberResponse(m))
	}
	return out, nil
}

// RemoveMember removes a student from the class
func (s *classServiceImpl) RemoveMember(ctx context.Context, actor authz.Actor, classID, userID int64) error {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return err
	}
	if userID == access.Class.TeacherID {
		return apperrors.NewBadRequestError("the class owner cannot be removed")
	}
	return s.classRepo.RemoveMember(ctx, classID, userID)
}

// RegenerateCode replaces the class join code
func (s *classServiceImpl) RegenerateCode(ctx context.Context, actor authz.Actor, classID int64) (*dto.ClassResponse, error) {
	access, err := s.authz.RequireClassTeacher(ctx, actor, classID)
	if err != nil {
		return nil, err
	}

	class := access.Class
	for attempt := 0; attempt < classCodeAttempts; attempt++ {
		class.Code = newClassCode()
		if err = s.classRepo.UpdateCode(ctx, classID, class.Code); !errors.Is(err, apperrors.ErrConflict) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to regenerate class code: %w", err)
	}
	resp := dto.NewClassResponse(class, models.MemberTeacher)
	return &resp, nil
}
