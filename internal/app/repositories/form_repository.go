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

var formColumns = []string{
	"id", "class_id", "title", "description", "questions", "settings", "published", "published_at",
	"created_by", "created_at", "updated_at",
}

// FormRepository handles form database operations. Questions and settings
// live in JSONB columns next to the form row.
type FormRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewFormRepository creates a new FormRepository
func NewFormRepository(db *pgxpool.Pool) *FormRepository {
	return &FormRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanForm(row pgx.Row) (*models.Form, error) {
	f := &models.Form{}
	err := row.Scan(&f.ID, &f.ClassID, &f.Title, &f.Description, &f.Questions, &f.Settings,
		&f.Published, &f.PublishedAt, &f.CreatedBy, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func encodeForm(f *models.Form) (questions, settings []byte, err error) {
	if questions, err = jsonb(f.Questions); err != nil {
		return nil, nil, err
	}
	if settings, err = jsonb(f.Settings); err != nil {
		return nil, nil, err
	}
	return questions, settings, nil
}

// Create inserts a form
func (r *FormRepository) Create(ctx context.Context, f *models.Form) error {
	questions, settings, err := encodeForm(f)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Insert("forms").
		Columns("class_id", "title", "description", "questions", "settings", "published", "published_at", "created_by").
		Values(f.ClassID, f.Title, f.Description, questions, settings, f.Published, f.PublishedAt, f.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create form query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&f.ID, &f.CreatedAt, &f.UpdatedAt); err != nil {
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrClassNotFound
		}
		logger.Error().Err(err).Int64("classID", f.ClassID).Msg("Error creating form")
		return fmt.Errorf("error creating form: %w", err)
	}
	return nil
}

// GetByID retrieves a form
func (r *FormRepository) GetByID(ctx context.Context, id int64) (*models.Form, error) {
	sql, args, err := r.sb.Select(formColumns...).From("forms").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get form query: %w", err)
	}

	f, err := scanForm(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrFormNotFound
		}
		logger.Error().Err(err).Int64("formID", id).Msg("Error scanning form row")
		return nil, fmt.Errorf("error getting form: %w", err)
	}
	return f, nil
}

// ListByClass lists a class's forms, newest first
func (r *FormRepository) ListByClass(ctx context.Context, classID int64, publishedOnly bool) ([]*models.Form, error) {
	where := squirrel.Eq{"class_id": classID}
	if publishedOnly {
		where["published"] = true
	}
	return collect(ctx, r.db, r.sb.Select(formColumns...).
		From("forms").
		Where(where).
		OrderBy("created_at DESC", "id DESC"), scanForm, "list forms")
}

// Update saves the whole form document
func (r *FormRepository) Update(ctx context.Context, f *models.Form) error {
	questions, settings, err := encodeForm(f)
	if err != nil {
		return err
	}
	f.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("forms").
		Set("title", f.Title).
		Set("description", f.Description).
		Set("questions", questions).
		Set("settings", settings).
		Set("published", f.Published).
		Set("published_at", f.PublishedAt).
		Set("updated_at", f.UpdatedAt).
		Where(squirrel.Eq{"id": f.ID}), apperrors.ErrFormNotFound, "update form")
}

// Delete removes a form with its responses
func (r *FormRepository) Delete(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("forms").Where(squirrel.Eq{"id": id}),
		apperrors.ErrFormNotFound, "delete form")
}
