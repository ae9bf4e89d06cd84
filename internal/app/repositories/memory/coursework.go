package memory

import (
	"context"
	"sort"
	"time"

	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
)

// AssignmentRepository stores assignments and submissions in memory
type AssignmentRepository struct{ s *Store }

// deleteAssignmentLocked removes an assignment with its submissions. Caller holds mu.
func (s *Store) deleteAssignmentLocked(id int64) {
	delete(s.assignments, id)
	for sid, sub := range s.submissions {
		if sub.AssignmentID == id {
			delete(s.submissions, sid)
		}
	}
}

// Create stores an assignment
func (r *AssignmentRepository) Create(_ context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.classes[a.ClassID]; !ok {
		return apperrors.ErrClassNotFound
	}
	now := r.s.now()
	a.ID = r.s.nextID("assignments")
	a.CreatedAt, a.UpdatedAt = now, now
	r.s.assignments[a.ID] = clone(a)
	return nil
}

// GetByID retrieves an assignment
func (r *AssignmentRepository) GetByID(_ context.Context, id int64) (*models.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	a, ok := r.s.assignments[id]
	if !ok {
		return nil, apperrors.ErrAssignmentNotFound
	}
	return clone(a), nil
}

// ListByClass lists a class's assignments, newest first
func (r *AssignmentRepository) ListByClass(_ context.Context, classID int64) ([]*models.Assignment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Assignment, 0)
	for _, a := range r.s.assignments {
		if a.ClassID == classID {
			out = append(out, clone(a))
		}
	}
	sortByTime(out, func(a *models.Assignment) (time.Time, int64) { return a.CreatedAt, a.ID }, true)
	return out, nil
}

// Update replaces editable fields
func (r *AssignmentRepository) Update(_ context.Context, a *models.Assignment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.assignments[a.ID]
	if !ok {
		return apperrors.ErrAssignmentNotFound
	}
	a.UpdatedAt = r.s.now()
	updated := clone(a)
	updated.ClassID, updated.CreatedBy, updated.CreatedAt = stored.ClassID, stored.CreatedBy, stored.CreatedAt
	r.s.assignments[a.ID] = updated
	return nil
}

// Delete removes an assignment with its submissions
func (r *AssignmentRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.assignments[id]; !ok {
		return apperrors.ErrAssignmentNotFound
	}
	r.s.deleteAssignmentLocked(id)
	return nil
}

// UpsertSubmission inserts or replaces a student's submission, keeping grade and feedback
func (r *AssignmentRepository) UpsertSubmission(_ context.Context, sub *models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.submissions {
		if existing.AssignmentID == sub.AssignmentID && existing.StudentID == sub.StudentID {
			prev := clone(existing)
			sub.ID = prev.ID
			sub.Grade, sub.Feedback, sub.GradedAt = prev.Grade, prev.Feedback, prev.GradedAt
			sub.UpdatedAt = sub.SubmittedAt
			r.s.submissions[sub.ID] = clone(sub)
			return nil
		}
	}
	sub.ID = r.s.nextID("submissions")
	sub.UpdatedAt = sub.SubmittedAt
	r.s.submissions[sub.ID] = clone(sub)
	return nil
}

// GetSubmission retrieves a submission
func (r *AssignmentRepository) GetSubmission(_ context.Context, id int64) (*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.submissions[id]
	if !ok {
		return nil, apperrors.ErrSubmissionNotFound
	}
	return clone(sub), nil
}

// GetSubmissionFor retrieves a student's submission for an assignment
func (r *AssignmentRepository) GetSubmissionFor(_ context.Context, assignmentID, studentID int64) (*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, sub := range r.s.submissions {
		if sub.AssignmentID == assignmentID && sub.StudentID == studentID {
			return clone(sub), nil
		}
	}
	return nil, apperrors.ErrSubmissionNotFound
}

// ListSubmissions lists an assignment's submissions in submission order
func (r *AssignmentRepository) ListSubmissions(_ context.Context, assignmentID int64) ([]*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Submission, 0)
	for _, sub := range r.s.submissions {
		if sub.AssignmentID == assignmentID {
			out = append(out, clone(sub))
		}
	}
	sortByTime(out, func(s *models.Submission) (time.Time, int64) { return s.SubmittedAt, s.ID }, false)
	return out, nil
}

// ListSubmissionsByClass lists every submission of a class
func (r *AssignmentRepository) ListSubmissionsByClass(_ context.Context, classID int64) ([]*models.Submission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Submission, 0)
	for _, sub := range r.s.submissions {
		if a, ok := r.s.assignments[sub.AssignmentID]; ok && a.ClassID == classID {
			out = append(out, clone(sub))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssignmentID != out[j].AssignmentID {
			return out[i].AssignmentID < out[j].AssignmentID
		}
		return out[i].StudentID < out[j].StudentID
	})
	return out, nil
}

// UpdateSubmissionGrade saves grade, feedback and status
func (r *AssignmentRepository) UpdateSubmissionGrade(_ context.Context, sub *models.Submission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.submissions[sub.ID]
	if !ok {
		return apperrors.ErrSubmissionNotFound
	}
	updated := clone(stored)
	updated.Grade = sub.Grade
	updated.Feedback = sub.Feedback
	updated.Status = sub.Status
	updated.GradedAt = sub.GradedAt
	updated.UpdatedAt = r.s.now()
	sub.UpdatedAt = updated.UpdatedAt
	r.s.submissions[sub.ID] = updated
	return nil
}

// MaterialRepository stores materials in memory
type MaterialRepository struct{ s *Store }

// Create stores a material
func (r *MaterialRepository) Create(_ context.Context, m *models.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.classes[m.ClassID]; !ok {
		return apperrors.ErrClassNotFound
	}
	now := r.s.now()
	m.ID = r.s.nextID("materials")
	m.CreatedAt, m.UpdatedAt = now, now
	r.s.materials[m.ID] = clone(m)
	return nil
}

// GetByID retrieves a material
func (r *MaterialRepository) GetByID(_ context.Context, id int64) (*models.Material, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	m, ok := r.s.materials[id]
	if !ok {
		return nil, apperrors.ErrMaterialNotFound
	}
	return clone(m), nil
}

// ListByClass lists a class's materials, newest first
func (r *MaterialRepository) ListByClass(_ context.Context, classID int64) ([]*models.Material, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*models.Material, 0)
	for _, m := range r.s.materials {
		if m.ClassID == classID {
			out = append(out, clone(m))
		}
	}
	sortByTime(out, func(m *models.Material) (time.Time, int64) { return m.CreatedAt, m.ID }, true)
	return out, nil
}

// Update replaces editable fields
func (r *MaterialRepository) Update(_ context.Context, m *models.Material) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	stored, ok := r.s.materials[m.ID]
	if !ok {
		return apperrors.ErrMaterialNotFound
	}
	m.UpdatedAt = r.s.now()
	updated := clone(m)
	updated.ClassID, updated.CreatedBy, updated.CreatedAt = stored.ClassID, stored.CreatedBy, stored.CreatedAt
	r.s.materials[m.ID] = updated
	return nil
}

// Delete removes a material
func (r *MaterialRepository) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.materials[id]; !ok {
		return apperrors.ErrMaterialNotFound
	}
	delete(r.s.materials, id)
	return nil
}
