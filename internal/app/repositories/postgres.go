package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/yigit/classroom/internal/pkg/logger"
)

// execer is implemented by pgxpool.Pool and pgx.Tx
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func newBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

// prefixed qualifies columns with a table alias
func prefixed(alias string, columns []string) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = alias + "." + c
	}
	return out
}

// jsonb encodes a nested document for a JSONB column. Nil slices are stored as [].
func jsonb(v interface{}) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	if string(data) == "null" {
		return []byte("[]"), nil
	}
	return data, nil
}

// execAffecting runs a write and maps "no rows changed" to notFound
func execAffecting(ctx context.Context, db execer, builder squirrel.Sqlizer, notFound error, op string) error {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Str("op", op).Msg("Error building SQL")
		return fmt.Errorf("failed to build %s query: %w", op, err)
	}

	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("op", op).Msg("Error executing query")
		return fmt.Errorf("error executing %s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

// collect runs a select and scans every row with scan
func collect[T any](ctx context.Context, db pgxQuerier, builder squirrel.Sqlizer, scan func(pgx.Row) (T, error), op string) ([]T, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		logger.Error().Err(err).Str("op", op).Msg("Error building SQL")
		return nil, fmt.Errorf("failed to build %s query: %w", op, err)
	}

	rows, err := db.Query(ctx, sql, args...)
	if err != nil {
		logger.Error().Err(err).Str("op", op).Msg("Error executing query")
		return nil, fmt.Errorf("error executing %s: %w", op, err)
	}

	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (T, error) {
		return scan(row)
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning %s rows: %w", op, err)
	}
	return items, nil
}

// count runs a SELECT COUNT(*) builder
func count(ctx context.Context, db pgxQuerier, builder squirrel.Sqlizer, op string) (int64, error) {
	sql, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build %s count query: %w", op, err)
	}

	var total int64
	if err := db.QueryRow(ctx, sql, args...).Scan(&total); err != nil {
		logger.Error().Err(err).Str("op", op).Msg("Error executing count query")
		return 0, fmt.Errorf("error counting %s: %w", op, err)
	}
	return total, nil
}

// pgxQuerier is implemented by pgxpool.Pool and pgx.Tx
type pgxQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func joinColumns(columns []string) string {
	return strings.Join(columns, ", ")
}
