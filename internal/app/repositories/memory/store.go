// Package memory is an in-process implementation of the repository
// interfaces. It backs the "memory" database driver and service tests.
package memory

import (
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/app/repositories"
	"github.com/yigit/classroom/internal/pkg/helpers"
)

// Store holds every collection behind a single lock. Documents are copied
// on the way in and out so callers never share memory with the store.
type Store struct {
	mu  sync.RWMutex
	now func() time.Time
	seq map[string]int64

	users         map[int64]models.User
	tokens        map[string]models.RefreshToken
	classes       map[int64]models.Class
	members       map[int64]map[int64]models.ClassMember
	assignments   map[int64]*models.Assignment
	submissions   map[int64]*models.Submission
	forms         map[int64]*models.Form
	responses     map[int64]*models.Response
	attempts      map[attemptKey]time.Time
	materials     map[int64]*models.Material
	comments      map[int64]models.Comment
	notifications map[int64]models.Notification
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		now:           func() time.Time { return time.Now().UTC() },
		seq:           make(map[string]int64),
		users:         make(map[int64]models.User),
		tokens:        make(map[string]models.RefreshToken),
		classes:       make(map[int64]models.Class),
		members:       make(map[int64]map[int64]models.ClassMember),
		assignments:   make(map[int64]*models.Assignment),
		submissions:   make(map[int64]*models.Submission),
		forms:         make(map[int64]*models.Form),
		responses:     make(map[int64]*models.Response),
		attempts:      make(map[attemptKey]time.Time),
		materials:     make(map[int64]*models.Material),
		comments:      make(map[int64]models.Comment),
		notifications: make(map[int64]models.Notification),
	}
}

// SetClock replaces the store's time source
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// NewRepositories returns repositories backed by a fresh store
func NewRepositories() *repositories.Repositories {
	return NewStore().Repositories()
}

// Repositories exposes the store through the repository interfaces
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		UserRepository:         &UserRepository{s},
		TokenRepository:        &TokenRepository{s},
		ClassRepository:        &ClassRepository{s},
		AssignmentRepository:   &AssignmentRepository{s},
		FormRepository:         &FormRepository{s},
		ResponseRepository:     &ResponseRepository{s},
		MaterialRepository:     &MaterialRepository{s},
		CommentRepository:      &CommentRepository{s},
		NotificationRepository: &NotificationRepository{s},
	}
}

// nextID returns the next id of a collection. Caller holds mu.
func (s *Store) nextID(collection string) int64 {
	s.seq[collection]++
	return s.seq[collection]
}

// clone deep-copies a JSON-shaped document
func clone[T any](v *T) *T {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	out := new(T)
	if err := json.Unmarshal(data, out); err != nil {
		panic(err)
	}
	return out
}

// page slices items for a 1-based page
func page[T any](items []T, pageNum, size int) []T {
	if size <= 0 || size > helpers.MaxPageSize {
		size = helpers.DefaultPageSize
	}
	start, end := helpers.CalculateSliceIndices(pageNum, size, len(items))
	return items[start:end]
}

// sortByTime orders items by time then id, ascending or descending
func sortByTime[T any](items []T, key func(T) (time.Time, int64), desc bool) {
	sort.SliceStable(items, func(i, j int) bool {
		ti, ii := key(items[i])
		tj, ij := key(items[j])
		if !ti.Equal(tj) {
			if desc {
				return ti.After(tj)
			}
			return ti.Before(tj)
		}
		if desc {
			return ii > ij
		}
		return ii < ij
	})
}
