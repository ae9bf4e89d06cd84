package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	authz "github.com/yigit/classroom/internal/app/auth"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// UserService defines account administration
type UserService interface {
	GetUserByID(ctx context.Context, actor authz.Actor, id int64) (*dto.UserResponse, error)
	GetUsersByFilter(ctx context.Context, actor authz.Actor, filter *dto.UserFilterRequest, page, size int) ([]*dto.UserResponse, int64, error)
	SetActive(ctx context.Context, actor authz.Actor, id int64, active bool) (*dto.UserResponse, error)
}

// userServiceImpl implements UserService
type userServiceImpl struct {
	userRepo  repositories.IUserRepository
	tokenRepo repositories.ITokenRepository
	logger    zerolog.Logger
}

// NewUserService creates a new UserService
func NewUserService(userRepo repositories.IUserRepository, tokenRepo repositories.ITokenRepository, logger zerolog.Logger) UserService {
	return &userServiceImpl{
		userRepo:  userRepo,
		tokenRepo: tokenRepo,
		logger:    logger,
	}
}

func requireAdmin(actor authz.Actor) error {
	if !actor.IsAdmin() {
		return apperrors.NewForbiddenError("only administrators can manage accounts")
	}
	return nil
}

// GetUserByID retrieves any account
func (s *userServiceImpl) GetUserByID(ctx context.Context, actor authz.Actor, id int64) (*dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// GetUsersByFilter pages accounts matching the filter
func (s *userServiceImpl) GetUsersByFilter(ctx context.Context, actor authz.Actor, filter *dto.UserFilterRequest, page, size int) ([]*dto.UserResponse, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}

	repoFilter := repositories.UserFilter{Search: filter.Search, Active: filter.Active}
	if filter.Role != "" {
		role := models.RoleType(filter.Role)
		repoFilter.Role = &role
	}

	users, total, err := s.userRepo.FindByFilter(ctx, repoFilter, page, size)
	if err != nil {
		return nil, 0, fmt.Errorf("error finding users by filter: %w", err)
	}

	out := make([]*dto.UserResponse, 0, len(users))
	for _, u := range users {
		out = append(out, dto.NewUserResponse(u))
	}
	return out, total, nil
}

// SetActive enables or disables an account. Disabling revokes its refresh tokens.
func (s *userServiceImpl) SetActive(ctx context.Context, actor authz.Actor, id int64, active bool) (*dto.UserResponse, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if id == actor.UserID && !active {
		return nil, apperrors.NewBadRequestError("administrators cannot disable their own account")
	}

	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user.IsActive == active {
		return dto.NewUserResponse(user), nil
	}

	user.IsActive = active
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("error updating user status: %w", err)
	}
	if !active {
		if err := s.tokenRepo.RevokeAllForUser(ctx, id); err != nil {
			return nil, fmt.Errorf("error revoking tokens: %w", err)
		}
	}

	s.logger.Info().Int64("userID", id).Bool("active", active).Int64("by", actor.UserID).Msg("Account status changed")
	return dto.NewUserResponse(user), nil
}
