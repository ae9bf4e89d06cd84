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
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
)

var commentColumns = []string{
	"id", "class_id", "target_type", "target_id", "author_id", "body", "created_at", "updated_at",
}

// CommentRepository handles comment database operations
type CommentRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanComment(row pgx.Row) (*models.Comment, error) {
	c := &models.Comment{}
	err := row.Scan(&c.ID, &c.ClassID, &c.TargetType, &c.TargetID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanCommentWithAuthor(row pgx.Row) (*models.Comment, error) {
	c := &models.Comment{Author: &models.User{}}
	u := c.Author
	err := row.Scan(&c.ID, &c.ClassID, &c.TargetType, &c.TargetID, &c.AuthorID, &c.Body, &c.CreatedAt, &c.UpdatedAt,
		&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
		&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts a comment
func (r *CommentRepository) Create(ctx context.Context, c *models.Comment) error {
	sql, args, err := r.sb.Insert("comments").
		Columns("class_id", "target_type", "target_id", "author_id", "body").
		Values(c.ClassID, c.TargetType, c.TargetID, c.AuthorID, c.Body).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build create comment query: %w", err)
	}

	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		logger.Error().Err(err).Int64("classID", c.ClassID).Msg("Error creating comment")
		return fmt.Errorf("error creating comment: %w", err)
	}
	return nil
}

// GetByID retrieves a comment
func (r *CommentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	sql, args, err := r.sb.Select(commentColumns...).From("comments").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get comment query: %w", err)
	}

	c, err := scanComment(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrCommentNotFound
		}
		return nil, fmt.Errorf("error getting comment: %w", err)
	}
	return c, nil
}

// ListByTarget pages the comments on a resource, oldest first
func (r *CommentRepository) ListByTarget(ctx context.Context, target models.CommentTarget, targetID int64, page, size int) ([]*models.Comment, int64, error) {
	where := squirrel.Eq{"c.target_type": target, "c.target_id": targetID}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").From("comments c").Where(where), "comments")
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*models.Comment{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	columns := append(prefixed("c", commentColumns), prefixed("u", userColumns)...)
	comments, err := collect(ctx, r.db, r.sb.Select(columns...).
		From("comments c").
		Join("users u ON u.id = c.author_id").
		Where(where).
		OrderBy("c.created_at", "c.id").
		Limit(uint64(limit)).
		Offset(offset), scanCommentWithAuthor, "list comments")
	if err != nil {
		return nil, 0, err
	}
	return comments, total, nil
}

// Update saves the comment body
func (r *CommentRepository) Update(ctx context.Context, c *models.Comment) error {
	c.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("comments").
		Set("body", c.Body).
		Set("updated_at", c.UpdatedAt).
		Where(squirrel.Eq{"id": c.ID}), apperrors.ErrCommentNotFound, "update comment")
}

// Delete removes a comment
func (r *CommentRepository) Delete(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("comments").Where(squirrel.Eq{"id": id}),
		apperrors.ErrCommentNotFound, "delete comment")
}
