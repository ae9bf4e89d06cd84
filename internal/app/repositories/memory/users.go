package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// UserRepository stores users in memory
type UserRepository struct{ s *Store }

func (r *UserRepository) conflict(user *models.User) error {
	for id, u := range r.s.users {
		if id == user.ID {
			continue
		}
		if strings.EqualFold(u.Username, user.Username) {
			return apperrors.ErrUsernameExists
		}
		if strings.EqualFold(u.Email, user.Email) {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	return nil
}

// Create stores a new user
func (r *UserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if err := r.conflict(user); err != nil {
		return err
	}
	now := r.s.now()
	user.ID = r.s.nextID("users")
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

// GetByID retrieves a user
func (r *UserRepository) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return &u, nil
}

// GetByIdentifier matches username or email case-insensitively
func (r *UserRepository) GetByIdentifier(_ context.Context, identifier string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if strings.EqualFold(u.Username, identifier) || strings.EqualFold(u.Email, identifier) {
			return &u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

// GetByIDs loads several users keyed by id
func (r *UserRepository) GetByIDs(_ context.Context, ids []int64) (map[int64]*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make(map[int64]*models.User, len(ids))
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out[id] = &u
		}
	}
	return out, nil
}

// Update saves profile and status fields
func (r *UserRepository) Update(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.users[user.ID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	if err := r.conflict(user); err != nil {
		return err
	}
	stored.Email = user.Email
	stored.FirstName = user.FirstName
	stored.LastName = user.LastName
	stored.RoleType = user.RoleType
	stored.IsActive = user.IsActive
	stored.UpdatedAt = r.s.now()
	user.UpdatedAt = stored.UpdatedAt
	r.s.users[user.ID] = stored
	return nil
}

// UpdatePassword replaces the stored hash
func (r *UserRepository) UpdatePassword(_ context.Context, userID int64, passwordHash string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.Password = passwordHash
	u.UpdatedAt = r.s.now()
	r.s.users[userID] = u
	return nil
}

// UpdateLastLogin records a login
func (r *UserRepository) UpdateLastLogin(_ context.Context, userID int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	u.LastLoginAt = &at
	r.s.users[userID] = u
	return nil
}

// CountByRole counts users holding role
func (r *UserRepository) CountByRole(_ context.Context, role models.RoleType) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, u := range r.s.users {
		if u.RoleType == role {
			n++
		}
	}
	return n, nil
}

// FindByFilter pages users matching filter ordered by id
func (r *UserRepository) FindByFilter(_ context.Context, filter repositories.UserFilter, pageNum, size int) ([]*models.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(filter.Search))
	var matched []*models.User
	for _, u := range r.s.users {
		if filter.Role != nil && u.RoleType != *filter.Role {
			continue
		}
		if filter.Active != nil && u.IsActive != *filter.Active {
			continue
		}
		if search != "" && !userMatches(u, search) {
			continue
		}
		u := u
		matched = append(matched, &u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return page(matched, pageNum, size), int64(len(matched)), nil
}

func userMatches(u models.User, search string) bool {
	for _, field := range []string{u.Username, u.Email, u.FirstName, u.LastName} {
		if strings.Contains(strings.ToLower(field), search) {
			return true
		}
	}
	return false
}

// TokenRepository stores refresh tokens in memory
type TokenRepository struct{ s *Store }

// Create stores a token
func (r *TokenRepository) Create(_ context.Context, token *models.RefreshToken) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, exists := r.s.tokens[token.Token]; exists {
		return apperrors.ErrTokenInvalid
	}
	token.ID = r.s.nextID("tokens")
	token.CreatedAt = r.s.now()
	r.s.tokens[token.Token] = *token
	return nil
}

// GetByToken retrieves a token by value
func (r *TokenRepository) GetByToken(_ context.Context, token string) (*models.RefreshToken, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return nil, apperrors.ErrTokenNotFound
	}
	return &t, nil
}

// Revoke revokes one token
func (r *TokenRepository) Revoke(_ context.Context, token string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	t.Revoked = true
	r.s.tokens[token] = t
	return nil
}

// RevokeAllForUser revokes every token of a user
func (r *TokenRepository) RevokeAllForUser(_ context.Context, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for key, t := range r.s.tokens {
		if t.UserID == userID {
			t.Revoked = true
			r.s.tokens[key] = t
		}
	}
	return nil
}
