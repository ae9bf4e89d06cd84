package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// CommentService defines comment operations
type CommentService interface {
	Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateCommentRequest) (*dto.CommentResponse, error)
	ListByTarget(ctx context.Context, actor authz.Actor, classID int64, target models.CommentTarget, targetID int64, page, size int) ([]dto.CommentResponse, int64, error)
	Update(ctx context.Context, actor authz.Actor, commentID int64, req *dto.UpdateCommentRequest) (*dto.CommentResponse, error)
	Delete(ctx context.Context, actor authz.Actor, commentID int64) error
}

// commentServiceImpl implements CommentService
type commentServiceImpl struct {
	repos    *repositories.Repositories
	authz    *authz.AuthorizationService
	notifier *NotificationService
	logger   zerolog.Logger
}

// NewCommentService creates a new CommentService
func NewCommentService(
	repos *repositories.Repositories,
	authorization *authz.AuthorizationService,
	notifier *NotificationService,
	logger zerolog.Logger,
) CommentService {
	return &commentServiceImpl{
		repos:    repos,
		authz:    authorization,
		notifier: notifier,
		logger:   logger,
	}
}

// commentTarget is the resolved resource a comment is attached to
type commentTarget struct {
	id        int64
	title     string
	creatorID int64
	link      string
}

// resolveTarget checks that the target exists inside the class and is visible to the caller
func (s *commentServiceImpl) resolveTarget(ctx context.Context, actor authz.Actor, access *authz.ClassAccess, target models.CommentTarget, targetID int64) (*commentTarget, error) {
	class := access.Class
	switch target {
	case models.CommentOnClass:
		return &commentTarget{id: class.ID, title: class.Name, creatorID: class.TeacherID, link: classLink(class.ID)}, nil

	case models.CommentOnAssignment:
		a, err := s.repos.AssignmentRepository.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if a.ClassID != class.ID {
			return nil, apperrors.ErrAssignmentNotFound
		}
		return &commentTarget{id: a.ID, title: a.Title, creatorID: a.CreatedBy, link: classLink(class.ID, "assignments", fmt.Sprint(a.ID))}, nil

	case models.CommentOnMaterial:
		m, err := s.repos.MaterialRepository.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if m.ClassID != class.ID {
			return nil, apperrors.ErrMaterialNotFound
		}
		return &commentTarget{id: m.ID, title: m.Title, creatorID: m.CreatedBy, link: classLink(class.ID, "materials", fmt.Sprint(m.ID))}, nil

	case models.CommentOnForm:
		f, err := s.repos.FormRepository.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if f.ClassID != class.ID || (!f.Published && !access.IsTeacher(actor)) {
			return nil, apperrors.ErrFormNotFound
		}
		return &commentTarget{id: f.ID, title: f.Title, creatorID: f.CreatedBy, link: classLink(class.ID, "forms", fmt.Sprint(f.ID))}, nil
	}
	return nil, apperrors.NewBadRequestError("unknown comment target")
}

// Create posts a comment and notifies the target's creator
func (s *commentServiceImpl) Create(ctx context.Context, actor authz.Actor, classID int64, req *dto.CreateCommentRequest) (*dto.CommentResponse, error) {
	access, err := s.authz.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, err
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", map[string]interface{}{"body": "required"})
	}

	targetType := models.CommentTarget(req.TargetType)
	target, err := s.resolveTarget(ctx, actor, access, targetType, req.TargetID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ClassID:    classID,
		TargetType: targetType,
		TargetID:   target.id,
		AuthorID:   actor.UserID,
		Body:       body,
	}
	if err := s.repos.CommentRepository.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if author, err := s.repos.UserRepository.GetByID(ctx, actor.UserID); err == nil {
		comment.Author = author
	}

	if target.creatorID != actor.UserID {
		s.notifier.Notify(ctx, []int64{target.creatorID}, NotificationPayload{
			Type:    models.NotificationCommentCreated,
			Title:   "New comment on " + target.title,
			Body:    truncate(body, 140),
			Link:    target.link,
			ClassID: &classID,
		})
	}

	resp := dto.NewCommentResponse(comment)
	return &resp, nil
}

// ListByTarget pages the comments on a class resource, oldest first
func (s *commentServiceImpl) ListByTarget(ctx context.Context, actor authz.Actor, classID int64, target models.CommentTarget, targetID int64, page, size int) ([]dto.CommentResponse, int64, error) {
	access, err := s.authz.RequireMember(ctx, actor, classID)
	if err != nil {
		return nil, 0, err
	}
	resolved, err := s.resolveTarget(ctx, actor, access, target, targetID)
	if err != nil {
		return nil, 0, err
	}

	comments, total, err := s.repos.CommentRepository.ListByTarget(ctx, target, resolved.id, page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list comments: %w", err)
	}
	out := make([]dto.CommentResponse, 0, len(comments))
	for _, c := range comments {
		out = append(out, dto.NewCommentResponse(c))
	}
	return out, total, nil
}

// Update edits the caller's own comment
func (s *commentServiceImpl) Update(ctx context.Context, actor authz.Actor, commentID int64, req *dto.UpdateCommentRequest) (*dto.CommentResponse, error) {
	comment, err := s.repos.CommentRepository.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != actor.UserID {
		return nil, apperrors.NewForbiddenError("you can only edit your own comments")
	}
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, apperrors.NewValidationError("body is required", map[string]interface{}{"body": "required"})
	}

	comment.Body = body
	if err := s.repos.CommentRepository.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	resp := dto.NewCommentResponse(comment)
	return &resp, nil
}

// Delete removes a comment; the author or the class teacher may do so
func (s *commentServiceImpl) Delete(ctx context.Context, actor authz.Actor, commentID int64) error {
	comment, err := s.repos.CommentRepository.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if comment.AuthorID != actor.UserID {
		if _, err := s.authz.RequireClassTeacher(ctx, actor, comment.ClassID); err != nil {
			return apperrors.NewForbiddenError("you can only delete your own comments")
		}
	}
	if err := s.repos.CommentRepository.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
