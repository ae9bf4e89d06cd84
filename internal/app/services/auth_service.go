package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/models/dto"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/auth"
	"github.com/yigit/classroom/internal/pkg/validation"
)

// AuthService handles accounts and tokens
type AuthService struct {
	userRepo   repositories.IUserRepository
	tokenRepo  repositories.ITokenRepository
	jwtService *auth.JWTService
	logger     zerolog.Logger
	now        func() time.Time
}

// NewAuthService creates a new AuthService
func NewAuthService(
	userRepo repositories.IUserRepository,
	tokenRepo repositories.ITokenRepository,
	jwtService *auth.JWTService,
	logger zerolog.Logger,
	now func() time.Time,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tokenRepo:  tokenRepo,
		jwtService: jwtService,
		logger:     logger,
		now:        now,
	}
}

// NewAccount describes an account to create
type NewAccount struct {
	Username  string
	Email     string
	Password  string
	FirstName string
	LastName  string
	Role      models.RoleType
}

// validateAccount checks the account rules shared by every way of creating one
func validateAccount(acc *NewAccount) error {
	acc.Username = strings.TrimSpace(acc.Username)
	acc.Email = strings.ToLower(strings.TrimSpace(acc.Email))

	if !validation.IsValidUsername(acc.Username) {
		return apperrors.NewCustomError(apperrors.ErrInvalidUsername,
			"username must be 3-32 letters, digits, dots or underscores")
	}
	if !strings.Contains(acc.Email, "@") {
		return apperrors.ErrInvalidEmail
	}
	if !validation.IsValidPassword(acc.Password) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword,
			"password must be at least 8 characters and contain a letter and a digit")
	}
	if !acc.Role.IsValid() {
		return apperrors.NewBadRequestError("unknown role")
	}
	return nil
}

// createUser validates, hashes and stores a new account
func (s *AuthService) createUser(ctx context.Context, acc NewAccount) (*models.User, error) {
	if err := validateAccount(&acc); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(acc.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		Username:  acc.Username,
		Email:     acc.Email,
		Password:  hash,
		FirstName: strings.TrimSpace(acc.FirstName),
		LastName:  strings.TrimSpace(acc.LastName),
		RoleType:  acc.Role,
		IsActive:  true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if apperrors.Is(err, apperrors.ErrUsernameExists, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("user creation error: %w", err)
	}
	return user, nil
}

// Register creates a STUDENT or TEACHER account and logs it in
func (s *AuthService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.TokenResponse, error) {
	role := models.RoleType(req.RoleType)
	if role == models.RoleAdmin {
		return nil, apperrors.NewForbiddenError("admin accounts cannot be self-registered")
	}

	user, err := s.createUser(ctx, NewAccount{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      role,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("userID", user.ID).Str("role", string(role)).Msg("User registered")
	return s.issueTokens(ctx, user)
}

// Login authenticates by username or email
func (s *AuthService) Login(ctx context.Context, req *dto.LoginRequest) (*dto.TokenResponse, error) {
	identifier := strings.TrimSpace(req.Identifier)
	if identifier == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.userRepo.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, apperrors.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("error finding user: %w", err)
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	now := s.now()
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn().Err(err).Int64("userID", user.ID).Msg("Failed to record last login")
	} else {
		user.LastLoginAt = &now
	}

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a refresh token for a new pair; the old token is revoked
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*dto.TokenResponse, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, apperrors.ErrTokenInvalid
	}

	token, err := s.tokenRepo.GetByToken(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if token.Revoked {
		return nil, apperrors.ErrTokenRevoked
	}
	if !token.IsUsable(s.now()) {
		return nil, apperrors.ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, token.UserID)
	if err != nil {
		return nil, fmt.Errorf("error finding token owner: %w", err)
	}
	if !user.IsActive {
		return nil, apperrors.ErrAccountDisabled
	}

	if err := s.tokenRepo.Revoke(ctx, refreshToken); err != nil {
		return nil, fmt.Errorf("failed to revoke old token: %w", err)
	}
	return s.issueTokens(ctx, user)
}

// Logout revokes a refresh token. Unknown tokens are ignored.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	err := s.tokenRepo.Revoke(ctx, strings.TrimSpace(refreshToken))
	if err != nil && !errors.Is(err, apperrors.ErrTokenNotFound) {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// Me returns the caller's profile
func (s *AuthService) Me(ctx context.Context, userID int64) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// UpdateProfile changes name and email
func (s *AuthService) UpdateProfile(ctx context.Context, userID int64, req *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Email != nil {
		user.Email = strings.ToLower(strings.TrimSpace(*req.Email))
		if !strings.Contains(user.Email, "@") {
			return nil, apperrors.ErrInvalidEmail
		}
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		if errors.Is(err, apperrors.ErrEmailAlreadyExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return dto.NewUserResponse(user), nil
}

// ChangePassword replaces the caller's password and signs out every session
func (s *AuthService) ChangePassword(ctx context.Context, userID int64, req *dto.ChangePasswordRequest) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.Password, req.CurrentPassword) {
		return apperrors.NewCustomError(apperrors.ErrInvalidCredentials, "current password is incorrect")
	}
	return s.setPassword(ctx, user.ID, req.NewPassword)
}

// ResetPassword sets a new password for the account named by identifier
func (s *AuthService) ResetPassword(ctx context.Context, identifier, newPassword string) error {
	user, err := s.userRepo.GetByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		return err
	}
	return s.setPassword(ctx, user.ID, newPassword)
}

func (s *AuthService) setPassword(ctx context.Context, userID int64, password string) error {
	if !validation.IsValidPassword(password) {
		return apperrors.NewCustomError(apperrors.ErrInvalidPassword,
			"password must be at least 8 characters and contain a letter and a digit")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if err := s.tokenRepo.RevokeAllForUser(ctx, userID); err != nil {
		s.logger.Error().Err(err).Int64("userID", userID).Msg("Failed to revoke sessions after password change")
	}
	return nil
}

// CreateAdmin creates an ADMIN account
func (s *AuthService) CreateAdmin(ctx context.Context, acc NewAccount) (*models.User, error) {
	acc.Role = models.RoleAdmin
	user, err := s.createUser(ctx, acc)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Int64("userID", user.ID).Str("username", user.Username).Msg("Admin account created")
	return user, nil
}

// EnsureAdmin creates the given admin account when no ADMIN exists yet.
// It reports whether an account was created.
func (s *AuthService) EnsureAdmin(ctx context.Context, acc NewAccount) (bool, error) {
	n, err := s.userRepo.CountByRole(ctx, models.RoleAdmin)
	if err != nil {
		return false, fmt.Errorf("failed to count admins: %w", err)
	}
	if n > 0 {
		return false, nil
	}
	if _, err := s.CreateAdmin(ctx, acc); err != nil {
		return false, err
	}
	return true, nil
}

// issueTokens creates a token pair and stores the refresh token
func (s *AuthService) issueTokens(ctx context.Context, user *models.User) (*dto.TokenResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(user)
	if err != nil {
		return nil, fmt.Errorf("token generation error: %w", err)
	}

	if err := s.tokenRepo.Create(ctx, &models.RefreshToken{
		UserID:    user.ID,
		Token:     pair.RefreshToken,
		ExpiresAt: pair.RefreshExpiresAt,
	}); err != nil {
		return nil, fmt.Errorf("token saving error: %w", err)
	}

	return &dto.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		TokenType:        "Bearer",
		ExpiresIn:        pair.ExpiresIn,
		RefreshExpiresIn: pair.RefreshExpiresIn,
		User:             dto.NewUserResponse(user),
	}, nil
}
