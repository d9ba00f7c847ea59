package registers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/db"
	"github.com/jrr-automobiles/portal/internal/shared"
)

const kindDayConstraint = "register_days_kind_day_key"

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed Repository. Entries are stored as
// a JSONB array on the day row.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const selectColumns = `id, kind, day, entries, total_daily_amount, created_at, updated_at`

func scanDay(row pgx.Row) (*Day, error) {
	var (
		d       Day
		kind    string
		entries []byte
	)
	if err := row.Scan(&d.ID, &kind, &d.Date, &entries, &d.TotalDailyAmount, &d.CreatedAt, &d.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d.Kind = Kind(kind)
	list, err := decodeEntries(entries)
	if err != nil {
		return nil, err
	}
	d.Entries = list
	return &d, nil
}

func decodeEntries(raw []byte) ([]Entry, error) {
	entries := []Entry{}
	if len(raw) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode entries: %w", err)
	}
	return entries, nil
}

func encodeEntries(entries []Entry) ([]byte, error) {
	if entries == nil {
		entries = []Entry{}
	}
	return json.Marshal(entries)
}

func (r *repository) Upsert(ctx context.Context, day *Day) ([]Entry, bool, error) {
	entries, err := encodeEntries(day.Entries)
	if err != nil {
		return nil, false, err
	}
	var (
		created  bool
		previous []byte
	)
	err = r.pool.QueryRow(ctx, `
		WITH prev AS (
			SELECT entries FROM register_days WHERE kind = $1 AND day = $2
		)
		INSERT INTO register_days (kind, day, entries, total_daily_amount)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (kind, day) DO UPDATE SET
			entries = EXCLUDED.entries,
			total_daily_amount = EXCLUDED.total_daily_amount,
			updated_at = NOW()
		RETURNING id, created_at, updated_at, (xmax = 0), (SELECT entries FROM prev)`,
		string(day.Kind), day.Date, entries, day.TotalDailyAmount,
	).Scan(&day.ID, &day.CreatedAt, &day.UpdatedAt, &created, &previous)
	if err != nil {
		return nil, false, err
	}
	replaced, err := decodeEntries(previous)
	if err != nil {
		return nil, false, err
	}
	return replaced, created, nil
}

func (r *repository) Mutate(ctx context.Context, kind Kind, id int64, fn func(*Day) error) (*Day, error) {
	var out *Day
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		day, err := scanDay(tx.QueryRow(ctx,
			`SELECT `+selectColumns+` FROM register_days WHERE kind = $1 AND id = $2 FOR UPDATE`,
			string(kind), id))
		if err != nil {
			return err
		}
		if err := fn(day); err != nil {
			return err
		}
		entries, err := encodeEntries(day.Entries)
		if err != nil {
			return err
		}
		err = tx.QueryRow(ctx, `
			UPDATE register_days SET
				day = $3, entries = $4, total_daily_amount = $5, updated_at = NOW()
			WHERE kind = $1 AND id = $2
			RETURNING updated_at`,
			string(kind), id, day.Date, entries, day.TotalDailyAmount,
		).Scan(&day.UpdatedAt)
		if err != nil {
			if db.IsUniqueViolation(err, kindDayConstraint) {
				return ErrDayTaken
			}
			return err
		}
		out = day
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repository) Delete(ctx context.Context, kind Kind, id int64) (*Day, error) {
	return scanDay(r.pool.QueryRow(ctx,
		`DELETE FROM register_days WHERE kind = $1 AND id = $2 RETURNING `+selectColumns, string(kind), id))
}

func (r *repository) Get(ctx context.Context, kind Kind, id int64) (*Day, error) {
	return scanDay(r.pool.QueryRow(ctx,
		`SELECT `+selectColumns+` FROM register_days WHERE kind = $1 AND id = $2`, string(kind), id))
}

func (r *repository) List(ctx context.Context, kind Kind, period shared.Period) ([]Day, error) {
	conditions := []string{"kind = $1"}
	args := []interface{}{string(kind)}
	if period.From != nil {
		args = append(args, *period.From)
		conditions = append(conditions, fmt.Sprintf("day >= $%d", len(args)))
	}
	if period.To != nil {
		args = append(args, *period.To)
		conditions = append(conditions, fmt.Sprintf("day <= $%d", len(args)))
	}
	rows, err := r.pool.Query(ctx,
		`SELECT `+selectColumns+` FROM register_days WHERE `+strings.Join(conditions, " AND ")+` ORDER BY day DESC`,
		args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := []Day{}
	for rows.Next() {
		d, err := scanDay(rows)
		if err != nil {
			return nil, err
		}
		days = append(days, *d)
	}
	return days, rows.Err()
}

func (r *repository) SumPayments(ctx context.Context, kind Kind, displayID string) (decimal.Decimal, error) {
	match, err := json.Marshal([]map[string]string{{"jobcard_no": displayID}})
	if err != nil {
		return decimal.Zero, err
	}
	var sum decimal.Decimal
	err = r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM((e->>'amount')::numeric), 0)
		FROM register_days d, jsonb_array_elements(d.entries) AS e
		WHERE d.kind = $1 AND d.entries @> $2::jsonb AND e->>'jobcard_no' = $3`,
		string(kind), match, displayID,
	).Scan(&sum)
	return sum, err
}
