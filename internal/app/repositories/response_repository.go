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
	"github.com/yigit/classroom/internal/db"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/logger"
)

var responseColumns = []string{
	"id", "form_id", "class_id", "user_id", "answers", "score", "total_points", "status", "released",
	"started_at", "submitted_at", "graded_at", "graded_by", "updated_at",
}

// ResponseRepository handles form response database operations
type ResponseRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewResponseRepository creates a new ResponseRepository
func NewResponseRepository(db *pgxpool.Pool) *ResponseRepository {
	return &ResponseRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanResponse(row pgx.Row) (*models.Response, error) {
	r := &models.Response{}
	err := row.Scan(&r.ID, &r.FormID, &r.ClassID, &r.UserID, &r.Answers, &r.Score, &r.TotalPoints,
		&r.Status, &r.Released, &r.StartedAt, &r.SubmittedAt, &r.GradedAt, &r.GradedBy, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Create stores a response and closes the user's open attempt. An exclusive insert
// locks the form row so two concurrent submissions by the same user cannot both pass
// the existence check.
func (r *ResponseRepository) Create(ctx context.Context, resp *models.Response, exclusive bool) error {
	answers, err := jsonb(resp.Answers)
	if err != nil {
		return err
	}
	if resp.SubmittedAt.IsZero() {
		resp.SubmittedAt = time.Now().UTC()
	}

	insertSQL, insertArgs, err := r.sb.Insert("responses").
		Columns("form_id", "class_id", "user_id", "answers", "score", "total_points", "status", "released",
			"started_at", "submitted_at", "graded_at", "graded_by").
		Values(resp.FormID, resp.ClassID, resp.UserID, answers, resp.Score, resp.TotalPoints, resp.Status, resp.Released,
			resp.StartedAt, resp.SubmittedAt, resp.GradedAt, resp.GradedBy).
		Suffix("RETURNING id, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create response query: %w", err)
	}

	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		if exclusive {
			var formID int64
			if err := tx.QueryRow(ctx, `SELECT id FROM forms WHERE id = $1 FOR UPDATE`, resp.FormID).Scan(&formID); err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return apperrors.ErrFormNotFound
				}
				return fmt.Errorf("error locking form: %w", err)
			}

			var exists bool
			err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM responses WHERE form_id = $1 AND user_id = $2)`,
				resp.FormID, resp.UserID).Scan(&exists)
			if err != nil {
				return fmt.Errorf("error checking existing response: %w", err)
			}
			if exists {
				return apperrors.ErrAlreadyResponded
			}
		}

		if err := tx.QueryRow(ctx, insertSQL, insertArgs...).Scan(&resp.ID, &resp.UpdatedAt); err != nil {
			logger.Error().Err(err).Int64("formID", resp.FormID).Int64("userID", resp.UserID).Msg("Error creating response")
			return fmt.Errorf("error creating response: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM form_attempts WHERE form_id = $1 AND user_id = $2`, resp.FormID, resp.UserID); err != nil {
			return fmt.Errorf("error closing attempt: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a response
func (r *ResponseRepository) GetByID(ctx context.Context, id int64) (*models.Response, error) {
	sql, args, err := r.sb.Select(responseColumns...).From("responses").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get response query: %w", err)
	}

	resp, err := scanResponse(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrResponseNotFound
		}
		logger.Error().Err(err).Int64("responseID", id).Msg("Error scanning response row")
		return nil, fmt.Errorf("error getting response: %w", err)
	}
	return resp, nil
}

// ListByForm lists a form's responses in submission order
func (r *ResponseRepository) ListByForm(ctx context.Context, formID int64) ([]*models.Response, error) {
	return collect(ctx, r.db, r.sb.Select(responseColumns...).
		From("responses").
		Where(squirrel.Eq{"form_id": formID}).
		OrderBy("submitted_at", "id"), scanResponse, "list responses")
}

// ListByUser lists a user's responses to a form, newest first
func (r *ResponseRepository) ListByUser(ctx context.Context, formID, userID int64) ([]*models.Response, error) {
	return collect(ctx, r.db, r.sb.Select(responseColumns...).
		From("responses").
		Where(squirrel.Eq{"form_id": formID, "user_id": userID}).
		OrderBy("submitted_at DESC", "id DESC"), scanResponse, "list user responses")
}

// ListByClass lists every response submitted in a class
func (r *ResponseRepository) ListByClass(ctx context.Context, classID int64) ([]*models.Response, error) {
	return collect(ctx, r.db, r.sb.Select(responseColumns...).
		From("responses").
		Where(squirrel.Eq{"class_id": classID}).
		OrderBy("form_id", "submitted_at", "id"), scanResponse, "list class responses")
}

// update saves answers and grading state
func (r *ResponseRepository) update(ctx context.Context, db execer, resp *models.Response) error {
	answers, err := jsonb(resp.Answers)
	if err != nil {
		return err
	}
	resp.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, db, r.sb.Update("responses").
		Set("answers", answers).
		Set("score", resp.Score).
		Set("total_points", resp.TotalPoints).
		Set("status", resp.Status).
		Set("released", resp.Released).
		Set("graded_at", resp.GradedAt).
		Set("graded_by", resp.GradedBy).
		Set("updated_at", resp.UpdatedAt).
		Where(squirrel.Eq{"id": resp.ID}), apperrors.ErrResponseNotFound, "update response")
}

// Mutate applies fn to a response while holding its row lock and saves the result.
// Nothing is written when fn fails.
func (r *ResponseRepository) Mutate(ctx context.Context, id int64, fn func(*models.Response) error) (*models.Response, error) {
	sql, args, err := r.sb.Select(responseColumns...).From("responses").Where(squirrel.Eq{"id": id}).Suffix("FOR UPDATE").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build lock response query: %w", err)
	}

	var resp *models.Response
	err = db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		locked, err := scanResponse(tx.QueryRow(ctx, sql, args...))
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.ErrResponseNotFound
			}
			return fmt.Errorf("error locking response: %w", err)
		}
		if err := fn(locked); err != nil {
			return err
		}
		if err := r.update(ctx, tx, locked); err != nil {
			return err
		}
		resp = locked
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// StartAttempt records when a user opened a form. An attempt that is still open
// keeps its original start.
func (r *ResponseRepository) StartAttempt(ctx context.Context, formID, userID int64, now time.Time) (time.Time, error) {
	var startedAt time.Time
	err := r.db.QueryRow(ctx, `
		INSERT INTO form_attempts (form_id, user_id, started_at) VALUES ($1, $2, $3)
		ON CONFLICT (form_id, user_id) DO UPDATE SET started_at = form_attempts.started_at
		RETURNING started_at`, formID, userID, now).Scan(&startedAt)
	if err != nil {
		logger.Error().Err(err).Int64("formID", formID).Int64("userID", userID).Msg("Error starting attempt")
		return time.Time{}, fmt.Errorf("error starting attempt: %w", err)
	}
	return startedAt, nil
}

// GetAttempt returns the start of the user's open attempt, or nil
func (r *ResponseRepository) GetAttempt(ctx context.Context, formID, userID int64) (*time.Time, error) {
	var startedAt time.Time
	err := r.db.QueryRow(ctx, `SELECT started_at FROM form_attempts WHERE form_id = $1 AND user_id = $2`,
		formID, userID).Scan(&startedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("error getting attempt: %w", err)
	}
	return &startedAt, nil
}

// ReleaseGraded releases every graded, unreleased response of a form
func (r *ResponseRepository) ReleaseGraded(ctx context.Context, formID int64) ([]*models.Response, error) {
	return collect(ctx, r.db, r.sb.Update("responses").
		Set("released", true).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"form_id": formID, "status": models.ResponseGraded, "released": false}).
		Suffix("RETURNING "+joinColumns(responseColumns)), scanResponse, "release scores")
}
