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
	"github.com/yigit/classroom/internal/pkg/logger"
)

var materialColumns = []string{
	"id", "class_id", "title", "description", "files", "links", "created_by", "created_at", "updated_at",
}

// MaterialRepository handles material database operations
type MaterialRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewMaterialRepository creates a new MaterialRepository
func NewMaterialRepository(db *pgxpool.Pool) *MaterialRepository {
	return &MaterialRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanMaterial(row pgx.Row) (*models.Material, error) {
	m := &models.Material{}
	err := row.Scan(&m.ID, &m.ClassID, &m.Title, &m.Description, &m.Files, &m.Links,
		&m.CreatedBy, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return m, nil
}

// Create inserts a material
func (r *MaterialRepository) Create(ctx context.Context, m *models.Material) error {
	files, err := jsonb(m.Files)
	if err != nil {
		return err
	}
	links, err := jsonb(m.Links)
	if err != nil {
		return err
	}

	sql, args, err := r.sb.Insert("materials").
		Columns("class_id", "title", "description", "files", "links", "created_by").
		Values(m.ClassID, m.Title, m.Description, files, links, m.CreatedBy).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create material query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("classID", m.ClassID).Msg("Error creating material")
		return fmt.Errorf("error creating material: %w", err)
	}
	return nil
}

// GetByID retrieves a material
func (r *MaterialRepository) GetByID(ctx context.Context, id int64) (*models.Material, error) {
	sql, args, err := r.sb.Select(materialColumns...).From("materials").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get material query: %w", err)
	}

	m, err := scanMaterial(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrMaterialNotFound
		}
		return nil, fmt.Errorf("error getting material: %w", err)
	}
	return m, nil
}

// ListByClass lists a class's materials, newest first
func (r *MaterialRepository) ListByClass(ctx context.Context, classID int64) ([]*models.Material, error) {
	return collect(ctx, r.db, r.sb.Select(materialColumns...).
		From("materials").
		Where(squirrel.Eq{"class_id": classID}).
		OrderBy("created_at DESC", "id DESC"), scanMaterial, "list materials")
}

// Update saves editable material fields
func (r *MaterialRepository) Update(ctx context.Context, m *models.Material) error {
	files, err := jsonb(m.Files)
	if err != nil {
		return err
	}
	links, err := jsonb(m.Links)
	if err != nil {
		return err
	}
	m.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("materials").
		Set("title", m.Title).
		Set("description", m.Description).
		Set("files", files).
		Set("links", links).
		Set("updated_at", m.UpdatedAt).
		Where(squirrel.Eq{"id": m.ID}), apperrors.ErrMaterialNotFound, "update material")
}

// Delete removes a material
func (r *MaterialRepository) Delete(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("materials").Where(squirrel.Eq{"id": id}),
		apperrors.ErrMaterialNotFound, "delete material")
}
