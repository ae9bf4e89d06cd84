package memory

import (
	"context"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// FormRepository stores forms in memory
type FormRepository struct{ s *Store }

// deleteFormLocked removes a form with its responses. Caller holds mu.
func (s *Store) deleteFormLocked(id int64) {
	delete(s.forms, id)
	for rid, resp := range s.responses {
		if resp.FormID == id {
			delete(s.responses, rid)
		}
	}
	for key := range s.attempts {
		if key.formID == id {
			delete(s.attempts, key)
		}
	}
}

// Create stores a form
func (r *FormRepository) Create(_ context.Context, f *models.Form) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.classes[f.ClassID]; !ok {
		return apperrors.ErrClassNotFound
	}
	now := r.s.now()
	f.ID = r.s.nextID("forms")
	f.CreatedAt, f.UpdatedAt = now, now
	r.s.forms[f.ID] = clone(f)
	return nil
}

// GetByID retrieves a form
func (r *FormRepository) GetByID(_ context.Context, id int64) (*models.Form, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	f, ok := r.s.forms[id]
	if !ok {
		return nil, apperrors.ErrFormNotFound
	}
	return clone(f), nil
}

// ListByClass lists a class's forms, newest first
func (r *FormRepository) ListByClass(_ context.Context, classID int64, publishedOnly bool) ([]*models.Form, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Form, 0)
	for _, f := range r.s.forms {
		if f.ClassID == classID && (!publishedOnly || f.Published) {
			out = append(out, clone(f))
		}
	}
	sortByTime(out, func(f *models.Form) (time.Time, int64) { return f.CreatedAt, f.ID }, true)
	return out, nil
}

// Update replaces the form document
func (r *FormRepository) Update(_ context.Context, f *models.Form) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.forms[f.ID]
	if !ok {
		return apperrors.ErrFormNotFound
	}
	f.UpdatedAt = r.s.now()
	updated := clone(f)
	updated.ClassID, updated.CreatedBy, updated.CreatedAt = stored.ClassID, stored.CreatedBy, stored.CreatedAt
	r.s.forms[f.ID] = updated
	return nil
}

// Delete removes a form with its responses
func (r *FormRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.forms[id]; !ok {
		return apperrors.ErrFormNotFound
	}
	r.s.deleteFormLocked(id)
	return nil
}

// ResponseRepository stores form responses in memory
type ResponseRepository struct{ s *Store }

type attemptKey struct {
	formID, userID int64
}

// Create stores a response and closes the open attempt. The store lock makes the
// exclusive check atomic.
func (r *ResponseRepository) Create(_ context.Context, resp *models.Response, exclusive bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.forms[resp.FormID]; !ok {
		return apperrors.ErrFormNotFound
	}
	if exclusive {
		for _, existing := range r.s.responses {
			if existing.FormID == resp.FormID && existing.UserID == resp.UserID {
				return apperrors.ErrAlreadyResponded
			}
		}
	}
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = r.s.now()
	}
	resp.ID = r.s.nextID("responses")
	resp.UpdatedAt = resp.SubmittedAt
	r.s.responses[resp.ID] = clone(resp)
	delete(r.s.attempts, attemptKey{resp.FormID, resp.UserID})
	return nil
}

// GetByID retrieves a response
func (r *ResponseRepository) GetByID(_ context.Context, id int64) (*models.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	resp, ok := r.s.responses[id]
	if !ok {
		return nil, apperrors.ErrResponseNotFound
	}
	return clone(resp), nil
}

func (r *ResponseRepository) filter(match func(*models.Response) bool, desc bool) []*models.Response {
	out := make([]*models.Response, 0)
	for _, resp := range r.s.responses {
		if match(resp) {
			out = append(out, clone(resp))
		}
	}
	sortByTime(out, func(x *models.Response) (time.Time, int64) { return x.SubmittedAt, x.ID }, desc)
	return out
}

// ListByForm lists a form's responses in submission order
func (r *ResponseRepository) ListByForm(_ context.Context, formID int64) ([]*models.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.filter(func(x *models.Response) bool { return x.FormID == formID }, false), nil
}

// ListByUser lists a user's responses to a form, newest first
func (r *ResponseRepository) ListByUser(_ context.Context, formID, userID int64) ([]*models.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.filter(func(x *models.Response) bool { return x.FormID == formID && x.UserID == userID }, true), nil
}

// ListByClass lists every response of a class in submission order
func (r *ResponseRepository) ListByClass(_ context.Context, classID int64) ([]*models.Response, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.filter(func(x *models.Response) bool { return x.ClassID == classID }, false), nil
}

// updateLocked stores resp over its current version. Caller holds mu.
func (r *ResponseRepository) updateLocked(resp *models.Response) error {
	stored, ok := r.s.responses[resp.ID]
	if !ok {
		return apperrors.ErrResponseNotFound
	}
	resp.UpdatedAt = r.s.now()
	updated := clone(resp)
	updated.FormID, updated.ClassID, updated.UserID = stored.FormID, stored.ClassID, stored.UserID
	updated.StartedAt, updated.SubmittedAt = stored.StartedAt, stored.SubmittedAt
	r.s.responses[resp.ID] = updated
	return nil
}

// Mutate applies fn to a copy of the response under the store lock and saves it
func (r *ResponseRepository) Mutate(_ context.Context, id int64, fn func(*models.Response) error) (*models.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.responses[id]
	if !ok {
		return nil, apperrors.ErrResponseNotFound
	}
	resp := clone(stored)
	if err := fn(resp); err != nil {
		return nil, err
	}
	if err := r.updateLocked(resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// StartAttempt records when a user opened a form, keeping an open attempt's start
func (r *ResponseRepository) StartAttempt(_ context.Context, formID, userID int64, now time.Time) (time.Time, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.forms[formID]; !ok {
		return time.Time{}, apperrors.ErrFormNotFound
	}
	key := attemptKey{formID, userID}
	if started, ok := r.s.attempts[key]; ok {
		return started, nil
	}
	r.s.attempts[key] = now
	return now, nil
}

// GetAttempt returns the start of the user's open attempt, or nil
func (r *ResponseRepository) GetAttempt(_ context.Context, formID, userID int64) (*time.Time, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	started, ok := r.s.attempts[attemptKey{formID, userID}]
	if !ok {
		return nil, nil
	}
	return &started, nil
}

// ReleaseGraded releases every graded, unreleased response of a form
func (r *ResponseRepository) ReleaseGraded(_ context.Context, formID int64) ([]*models.Response, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := r.s.now()
	released := r.filter(func(x *models.Response) bool {
		return x.FormID == formID && x.Status == models.ResponseGraded && !x.Released
	}, false)
	for _, resp := range released {
		resp.Released = true
		resp.UpdatedAt = now
		r.s.responses[resp.ID] = clone(resp)
	}
	return released, nil
}
