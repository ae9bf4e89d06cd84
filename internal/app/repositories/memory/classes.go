package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// ClassRepository stores classes and memberships in memory
type ClassRepository struct{ s *Store }

func (r *ClassRepository) codeTaken(code string, except int64) bool {
	for id, c := range r.s.classes {
		if id != except && c.Code == code {
			return true
		}
	}
	return false
}

// Create stores the class and the owner's membership
func (r *ClassRepository) Create(_ context.Context, class *models.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.codeTaken(class.Code, 0) {
		return apperrors.NewConflictError("class code already in use")
	}
	now := r.s.now()
	class.ID = r.s.nextID("classes")
	class.CreatedAt, class.UpdatedAt = now, now
	r.s.classes[class.ID] = *class
	r.s.members[class.ID] = map[int64]models.ClassMember{
		class.TeacherID: {ClassID: class.ID, UserID: class.TeacherID, Role: models.MemberTeacher, JoinedAt: now},
	}
	return nil
}

// GetByID retrieves a class
func (r *ClassRepository) GetByID(_ context.Context, id int64) (*models.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.classes[id]
	if !ok {
		return nil, apperrors.ErrClassNotFound
	}
	return &c, nil
}

// GetByCode retrieves a class by join code
func (r *ClassRepository) GetByCode(_ context.Context, code string) (*models.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	code = strings.ToUpper(code)
	for _, c := range r.s.classes {
		if c.Code == code {
			return &c, nil
		}
	}
	return nil, apperrors.ErrClassNotFound
}

// ListForUser pages a user's classes, newest first
func (r *ClassRepository) ListForUser(_ context.Context, userID int64, includeArchived bool, pageNum, size int) ([]*models.Class, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var classes []*models.Class
	for classID, members := range r.s.members {
		if _, ok := members[userID]; !ok {
			continue
		}
		c := r.s.classes[classID]
		if c.Archived && !includeArchived {
			continue
		}
		classes = append(classes, &c)
	}
	sortByTime(classes, func(c *models.Class) (time.Time, int64) { return c.CreatedAt, c.ID }, true)
	return page(classes, pageNum, size), int64(len(classes)), nil
}

// Update saves editable class fields
func (r *ClassRepository) Update(_ context.Context, class *models.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.classes[class.ID]
	if !ok {
		return apperrors.ErrClassNotFound
	}
	stored.Name = class.Name
	stored.Section = class.Section
	stored.Subject = class.Subject
	stored.Description = class.Description
	stored.Archived = class.Archived
	stored.UpdatedAt = r.s.now()
	class.UpdatedAt = stored.UpdatedAt
	r.s.classes[class.ID] = stored
	return nil
}

// UpdateCode replaces the join code
func (r *ClassRepository) UpdateCode(_ context.Context, classID int64, code string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.classes[classID]
	if !ok {
		return apperrors.ErrClassNotFound
	}
	if r.codeTaken(code, classID) {
		return apperrors.NewConflictError("class code already in use")
	}
	stored.Code = code
	stored.UpdatedAt = r.s.now()
	r.s.classes[classID] = stored
	return nil
}

// Delete removes a class and everything that belongs to it
func (r *ClassRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.classes[id]; !ok {
		return apperrors.ErrClassNotFound
	}
	delete(r.s.classes, id)
	delete(r.s.members, id)
	for aid, a := range r.s.assignments {
		if a.ClassID == id {
			r.s.deleteAssignmentLocked(aid)
		}
	}
	for fid, f := range r.s.forms {
		if f.ClassID == id {
			r.s.deleteFormLocked(fid)
		}
	}
	for mid, m := range r.s.materials {
		if m.ClassID == id {
			delete(r.s.materials, mid)
		}
	}
	for cid, c := range r.s.comments {
		if c.ClassID == id {
			delete(r.s.comments, cid)
		}
	}
	for nid, n := range r.s.notifications {
		if n.ClassID != nil && *n.ClassID == id {
			delete(r.s.notifications, nid)
		}
	}
	return nil
}

// AddMember enrolls a user
func (r *ClassRepository) AddMember(_ context.Context, member *models.ClassMember) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	members, ok := r.s.members[member.ClassID]
	if !ok {
		return apperrors.ErrClassNotFound
	}
	if _, exists := members[member.UserID]; exists {
		return apperrors.ErrAlreadyEnrolled
	}
	if member.JoinedAt.IsZero() {
		member.JoinedAt = r.s.now()
	}
	stored := *member
	stored.User = nil
	members[member.UserID] = stored
	return nil
}

// GetMember retrieves one membership
func (r *ClassRepository) GetMember(_ context.Context, classID, userID int64) (*models.ClassMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.members[classID][userID]
	if !ok {
		return nil, apperrors.ErrNotClassMember
	}
	return &m, nil
}

// ListMembers lists memberships with users attached, teachers first
func (r *ClassRepository) ListMembers(_ context.Context, classID int64) ([]*models.ClassMember, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.ClassMember, 0, len(r.s.members[classID]))
	for _, m := range r.s.members[classID] {
		if u, ok := r.s.users[m.UserID]; ok {
			m.User = &u
		}
		out = append(out, &m)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Role != out[j].Role {
			return out[i].Role == models.MemberTeacher
		}
		return out[i].UserID < out[j].UserID
	})
	return out, nil
}

// RemoveMember deletes a membership
func (r *ClassRepository) RemoveMember(_ context.Context, classID, userID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.members[classID][userID]; !ok {
		return apperrors.ErrNotClassMember
	}
	delete(r.s.members[classID], userID)
	return nil
}

// MemberIDs lists member user ids in ascending order
func (r *ClassRepository) MemberIDs(_ context.Context, classID int64, role models.MemberRole) ([]int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	ids := make([]int64, 0)
	for id, m := range r.s.members[classID] {
		if role == "" || m.Role == role {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}
