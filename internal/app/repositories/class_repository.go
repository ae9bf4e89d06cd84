package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/classroom/internal/app/models"
	"github.com/yigit/classroom/internal/db"
	"github.com/yigit/classroom/internal/pkg/apperrors"
	"github.com/yigit/classroom/internal/pkg/dberrors"
	"github.com/yigit/classroom/internal/pkg/helpers"
	"github.com/yigit/classroom/internal/pkg/logger"
)

var classColumns = []string{
	"id", "name", "section", "subject", "description", "code", "teacher_id", "archived", "created_at", "updated_at",
}

// ClassRepository handles class and membership database operations
type ClassRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewClassRepository creates a new ClassRepository
func NewClassRepository(db *pgxpool.Pool) *ClassRepository {
	return &ClassRepository{
		db: db,
		sb: newBuilder(),
	}
}

func scanClass(row pgx.Row) (*models.Class, error) {
	c := &models.Class{}
	err := row.Scan(&c.ID, &c.Name, &c.Section, &c.Subject, &c.Description, &c.Code,
		&c.TeacherID, &c.Archived, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Create inserts the class and its owner's membership in one transaction
func (r *ClassRepository) Create(ctx context.Context, class *models.Class) error {
	return db.WithTransaction(ctx, r.db, func(ctx context.Context, tx pgx.Tx) error {
		sql, args, err := r.sb.Insert("classes").
			Columns("name", "section", "subject", "description", "code", "teacher_id", "archived").
			Values(class.Name, class.Section, class.Subject, class.Description, class.Code, class.TeacherID, class.Archived).
			Suffix("RETURNING id, created_at, updated_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build create class query: %w", err)
		}

		if err := tx.QueryRow(ctx, sql, args...).Scan(&class.ID, &class.CreatedAt, &class.UpdatedAt); err != nil {
			if dberrors.IsDuplicateConstraintError(err, "classes_code_key") {
				return apperrors.NewConflictError("class code already in use")
			}
			logger.Error().Err(err).Msg("Error creating class")
			return fmt.Errorf("error creating class: %w", err)
		}

		sql, args, err = r.sb.Insert("class_members").
			Columns("class_id", "user_id", "role", "joined_at").
			Values(class.ID, class.TeacherID, models.MemberTeacher, class.CreatedAt).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build add owner query: %w", err)
		}
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("error adding class owner: %w", err)
		}
		return nil
	})
}

func (r *ClassRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.Class, error) {
	sql, args, err := r.sb.Select(classColumns...).From("classes").Where(where).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get class query: %w", err)
	}

	class, err := scanClass(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrClassNotFound
		}
		logger.Error().Err(err).Msg("Error scanning class row")
		return nil, fmt.Errorf("error getting class: %w", err)
	}
	return class, nil
}

// GetByID retrieves a class by id
func (r *ClassRepository) GetByID(ctx context.Context, id int64) (*models.Class, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByCode retrieves a class by its join code
func (r *ClassRepository) GetByCode(ctx context.Context, code string) (*models.Class, error) {
	return r.getOne(ctx, squirrel.Eq{"code": strings.ToUpper(code)})
}

// ListForUser pages the classes a user belongs to, newest first
func (r *ClassRepository) ListForUser(ctx context.Context, userID int64, includeArchived bool, page, size int) ([]*models.Class, int64, error) {
	where := squirrel.And{squirrel.Eq{"m.user_id": userID}}
	if !includeArchived {
		where = append(where, squirrel.Eq{"c.archived": false})
	}

	total, err := count(ctx, r.db, r.sb.Select("COUNT(*)").
		From("classes c").
		Join("class_members m ON m.class_id = c.id").
		Where(where), "classes")
	if err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []*models.Class{}, 0, nil
	}

	offset, limit := helpers.CalculateOffsetLimit(page, size)
	classes, err := collect(ctx, r.db, r.sb.Select(prefixed("c", classColumns)...).
		From("classes c").
		Join("class_members m ON m.class_id = c.id").
		Where(where).
		OrderBy("c.created_at DESC", "c.id DESC").
		Limit(uint64(limit)).
		Offset(offset), scanClass, "list classes")
	if err != nil {
		return nil, 0, err
	}
	return classes, total, nil
}

// Update saves editable class fields
func (r *ClassRepository) Update(ctx context.Context, class *models.Class) error {
	class.UpdatedAt = time.Now().UTC()
	return execAffecting(ctx, r.db, r.sb.Update("classes").
		Set("name", class.Name).
		Set("section", class.Section).
		Set("subject", class.Subject).
		Set("description", class.Description).
		Set("archived", class.Archived).
		Set("updated_at", class.UpdatedAt).
		Where(squirrel.Eq{"id": class.ID}), apperrors.ErrClassNotFound, "update class")
}

// UpdateCode replaces the join code
func (r *ClassRepository) UpdateCode(ctx context.Context, classID int64, code string) error {
	err := execAffecting(ctx, r.db, r.sb.Update("classes").
		Set("code", code).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.Eq{"id": classID}), apperrors.ErrClassNotFound, "update class code")
	if err != nil && dberrors.IsDuplicateConstraintError(err, "classes_code_key") {
		return apperrors.NewConflictError("class code already in use")
	}
	return err
}

// Delete removes a class; dependent rows cascade
func (r *ClassRepository) Delete(ctx context.Context, id int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("classes").Where(squirrel.Eq{"id": id}),
		apperrors.ErrClassNotFound, "delete class")
}

// AddMember enrolls a user
func (r *ClassRepository) AddMember(ctx context.Context, member *models.ClassMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = time.Now().UTC()
	}
	sql, args, err := r.sb.Insert("class_members").
		Columns("class_id", "user_id", "role", "joined_at").
		Values(member.ClassID, member.UserID, member.Role, member.JoinedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build add member query: %w", err)
	}

	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, "class_members_pkey") {
			return apperrors.ErrAlreadyEnrolled
		}
		if dberrors.IsForeignKeyError(err) {
			return apperrors.ErrClassNotFound
		}
		logger.Error().Err(err).Int64("classID", member.ClassID).Int64("userID", member.UserID).Msg("Error adding member")
		return fmt.Errorf("error adding member: %w", err)
	}
	return nil
}

// GetMember retrieves one membership
func (r *ClassRepository) GetMember(ctx context.Context, classID, userID int64) (*models.ClassMember, error) {
	sql, args, err := r.sb.Select("class_id", "user_id", "role", "joined_at").
		From("class_members").
		Where(squirrel.Eq{"class_id": classID, "user_id": userID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get member query: %w", err)
	}

	m := &models.ClassMember{}
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&m.ClassID, &m.UserID, &m.Role, &m.JoinedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotClassMember
		}
		return nil, fmt.Errorf("error getting member: %w", err)
	}
	return m, nil
}

// ListMembers lists memberships with users attached, teachers first
func (r *ClassRepository) ListMembers(ctx context.Context, classID int64) ([]*models.ClassMember, error) {
	columns := append([]string{"m.class_id", "m.user_id", "m.role", "m.joined_at"}, prefixed("u", userColumns)...)
	return collect(ctx, r.db, r.sb.Select(columns...).
		From("class_members m").
		Join("users u ON u.id = m.user_id").
		Where(squirrel.Eq{"m.class_id": classID}).
		OrderBy("m.role DESC", "u.last_name", "u.first_name", "u.id"),
		func(row pgx.Row) (*models.ClassMember, error) {
			m := &models.ClassMember{User: &models.User{}}
			u := m.User
			err := row.Scan(&m.ClassID, &m.UserID, &m.Role, &m.JoinedAt,
				&u.ID, &u.Username, &u.Email, &u.Password, &u.FirstName, &u.LastName,
				&u.RoleType, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
			return m, err
		}, "list members")
}

// RemoveMember deletes a membership
func (r *ClassRepository) RemoveMember(ctx context.Context, classID, userID int64) error {
	return execAffecting(ctx, r.db, r.sb.Delete("class_members").
		Where(squirrel.Eq{"class_id": classID, "user_id": userID}), apperrors.ErrNotClassMember, "remove member")
}

// MemberIDs lists the user ids of a class, optionally filtered by role
func (r *ClassRepository) MemberIDs(ctx context.Context, classID int64, role models.MemberRole) ([]int64, error) {
	where := squirrel.Eq{"class_id": classID}
	if role != "" {
		where["role"] = role
	}
	return collect(ctx, r.db, r.sb.Select("user_id").From("class_members").Where(where).OrderBy("user_id"),
		func(row pgx.Row) (int64, error) {
			var id int64
			err := row.Scan(&id)
			return id, err
		}, "member ids")
}
