package sequence

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// PostgresAllocator keeps counters in the sequence_counters table. Each
// allocation is a single upsert statement, so concurrent callers serialise on
// the row lock and never observe the same value.
type PostgresAllocator struct {
	db dbtx
}

// NewPostgresAllocator constructs the allocator.
func NewPostgresAllocator(db dbtx) *PostgresAllocator {
	return &PostgresAllocator{db: db}
}

const nextSQL = `
INSERT INTO sequence_counters (partition_key, value, updated_at)
VALUES ($1, 1, NOW())
ON CONFLICT (partition_key)
DO UPDATE SET value = sequence_counters.value + 1, updated_at = NOW()
RETURNING value`

// Next implements Allocator.
func (a *PostgresAllocator) Next(ctx context.Context, key string) (int64, error) {
	var value int64
	if err := a.db.QueryRow(ctx, nextSQL, key).Scan(&value); err != nil {
		return 0, fmt.Errorf("%w: next %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Current implements Allocator.
func (a *PostgresAllocator) Current(ctx context.Context, key string) (int64, error) {
	var value int64
	err := a.db.QueryRow(ctx, `SELECT value FROM sequence_counters WHERE partition_key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: current %s: %v", ErrUnavailable, key, err)
	}
	return value, nil
}

// Set implements Allocator.
func (a *PostgresAllocator) Set(ctx context.Context, key string, value int64) error {
	if value < 0 {
		return ErrBackwards
	}
	tag, err := a.db.Exec(ctx, `
INSERT INTO sequence_counters (partition_key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (partition_key)
DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
WHERE sequence_counters.value <= EXCLUDED.value`, key, value)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrUnavailable, key, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBackwards
	}
	return nil
}
