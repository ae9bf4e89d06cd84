package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/dberrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

var assignmentColumns = []string{
	"id", "class_id", "title", "instructions", "points", "due_at", "allow_late",
	"attachments", "created_by", "created_at", "updated_at",
}

var submissionColumns = []string{
	"id", "assignment_id", "student_id", "text", "attachments", "status", "late",
	"grade", "feedback", "submitted_at", "graded_at", "updated_at",
}

// AssignmentRepository handles assignment and submission database operations
type AssignmentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewAssignmentRepository creates a new AssignmentRepository
func NewAssignmentRepository(db *pgxpool.Pool) *AssignmentRepository {
	return &AssignmentRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanAssignment(row pgx.Row) (*models.Assignment, error) {
	a := &models.Assignment{}
	err := row.Scan(&a.ID, &a.ClassID, &a.Title, &a.Instructions, &a.Points, &a.DueAt, &a.AllowLate,
		&a.Attachments, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanSubmission(row pgx.Row) (*models.Submission, error) {
	s := &models.Submission{}
	err := row.Scan(&s.ID, &s.AssignmentID, &s.StudentID, &s.Text, &s.Attachments, &s.Status, &s.Late,
		&s.Grade, &s.Feedback, &s.SubmittedAt, &s.GradedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts an assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *models.Assignment) error {
	attachments, err := jsonb(a.Attachments)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Insert("assignments").
		Columns("class_id", "title", "instructions", "points", "due_at", "allow_late", "attachments", "created_by").
		Values(a.ClassID, a.Title, a.Instructions, a.Points, a.DueAt, a.AllowLate, attachments, a.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create assignment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrClassNotFound
		}
		logger.Error().Err(err).Int64("classID", a.ClassID).Msg("Error creating assignment")
		return fmt.Errorf("error creating assignment: %w", err)
	}
	return nil
}

// GetByID retrieves an assignment
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*models.Assignment, error) {
	sql, args, err := r.sb.Select(assignmentColumns...).From("assignments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get assignment query: %w", err)
	}

	a, err := scanAssignment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrAssignmentNotFound
		}
		logger.Error().Err(err).Int64("assignmentID", id).Msg("Error scanning assignment row")
		return nil, fmt.Errorf("error getting assignment: %w", err)
	}
	return a, nil
}

// ListByClass lists a class's assignments, newest first
func (r *AssignmentRepository) ListByClass(ctx context.Context, classID int64) ([]*models.Assignment, error) {
	return collect(ctx, r.db, r.sb.Select(assignmentColumns...).
		From("assignments").
		Where(squirrel.Eq{"class_id": classID}).
		OrderBy("created_at DESC", "id DESC"), scanAssignment, "list assignments")
}

// Update saves editable assignment fields
func (r *AssignmentRepository) Update(ctx context.Context, a *models.Assignment) error {
	attachments, err := jsonb(a.Attachments)
	if err != nil {
		return err
	}
	a.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("assignments").
		Set("title", a.Title).
		Set("instructions", a.Instructions).
		Set("points", a.Points).
		Set("due_at", a.DueAt).
		Set("allow_late", a.AllowLate).
		Set("attachments", attachments).
		Set("updated_at", a.UpdatedAt).
		Where(squirrel.Eq{"id": a.ID}), apperrors.ErrAssignmentNotFound, "update assignment")
}

// Delete removes an assignment with its submissions
func (r *AssignmentRepository) Delete(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("assignments").Where(squirrel.Eq{"id": id}),
		apperrors.ErrAssignmentNotFound, "delete assignment")
}

// UpsertSubmission stores the student's work. A resubmission replaces the
// content and keeps any existing grade and feedback.
func (r *AssignmentRepository) UpsertSubmission(ctx context.Context, s *models.Submission) error {
	attachments, err := jsonb(s.Attachments)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Insert("submissions").
		Columns("assignment_id", "student_id", "text", "attachments", "status", "late", "submitted_at", "updated_at").
		Values(s.AssignmentID, s.StudentID, s.Text, attachments, s.Status, s.Late, s.SubmittedAt, s.SubmittedAt).
		Suffix(`ON CONFLICT ON CONSTRAINT submissions_assignment_student_key DO UPDATE SET
			text = EXCLUDED.text,
			attachments = EXCLUDED.attachments,
			status = EXCLUDED.status,
			late = EXCLUDED.late,
			submitted_at = EXCLUDED.submitted_at,
			updated_at = EXCLUDED.updated_at
			RETURNING id, grade, feedback, graded_at, updated_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build upsert submission query: %w", err)
	}

	err = r.db.QueryRow(ctx, sql, args...).Scan(&s.ID, &s.Grade, &s.Feedback, &s.GradedAt, &s.UpdatedAt)
	if err != nil {
		logger.Error().Err(err).Int64("assignmentID", s.AssignmentID).Int64("studentID", s.StudentID).Msg("Error upserting submission")
		return fmt.Errorf("error saving submission: %w", err)
	}
	return nil
}

func (r *AssignmentRepository) getSubmission(ctx context.Context, where squirrel.Sqlizer) (*models.Submission, error) {
	sql, args, err := r.sb.Select(submissionColumns...).From("submissions").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get submission query: %w", err)
	}

	s, err := scanSubmission(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrSubmissionNotFound
		}
		return nil, fmt.Errorf("error getting submission: %w", err)
	}
	return s, nil
}

// GetSubmission retrieves a submission by id
func (r *AssignmentRepository) GetSubmission(ctx context.Context, id int64) (*models.Submission, error) {
	return r.getSubmission(ctx, squirrel.Eq{"id": id})
}

// GetSubmissionFor retrieves a student's submission for an assignment
func (r *AssignmentRepository) GetSubmissionFor(ctx context.Context, assignmentID, studentID int64) (*models.Submission, error) {
	return r.getSubmission(ctx, squirrel.Eq{"assignment_id": assignmentID, "student_id": studentID})
}

// ListSubmissions lists an assignment's submissions in submission order
func (r *AssignmentRepository) ListSubmissions(ctx context.Context, assignmentID int64) ([]*models.Submission, error) {
	return collect(ctx, r.db, r.sb.Select(submissionColumns...).
		From("submissions").
		Where(squirrel.Eq{"assignment_id": assignmentID}).
		OrderBy("submitted_at", "id"), scanSubmission, "list submissions")
}

// ListSubmissionsByClass lists every submission of a class
func (r *AssignmentRepository) ListSubmissionsByClass(ctx context.Context, classID int64) ([]*models.Submission, error) {
	return collect(ctx, r.db, r.sb.Select(prefixed("s", submissionColumns)...).
		From("submissions s").
		Join("assignments a ON a.id = s.assignment_id").
		Where(squirrel.Eq{"a.class_id": classID}).
		OrderBy("s.assignment_id", "s.student_id"), scanSubmission, "list class submissions")
}

// UpdateSubmissionGrade saves grade, feedback and status
func (r *AssignmentRepository) UpdateSubmissionGrade(ctx context.Context, s *models.Submission) error {
	s.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("submissions").
		Set("grade", s.Grade).
		Set("feedback", s.Feedback).
		Set("status", s.Status).
		Set("graded_at", s.GradedAt).
		Set("updated_at", s.UpdatedAt).
		Where(squirrel.Eq{"id": s.ID}), apperrors.ErrSubmissionNotFound, "grade submission")
}
