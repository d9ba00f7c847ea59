package jobcards

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jrr-automobiles/portal/internal/platform/db"
)

const displayIDConstraint = "job_cards_display_id_key"

type dbtx interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type repository struct {
	db dbtx
}

// NewRepository returns a Postgres-backed Repository. Line items are stored
// as JSONB arrays on the card row.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const selectColumns = `
	id, display_id, business_date, customer_name, email, mobile_no, address, reg_no,
	vehicle_model, brand, fuel_type, kilometers, remarks, spares, labours,
	spares_total, labours_total, grand_total, advance_paid, collected, amount_paid,
	balance, status, status_overridden, created_at, updated_at`

func scanCard(row pgx.Row) (*JobCard, error) {
	var (
		c              JobCard
		status         string
		spares, labour []byte
	)
	err := row.Scan(
		&c.ID, &c.DisplayID, &c.Date, &c.CustomerName, &c.Email, &c.MobileNo, &c.Address, &c.RegNo,
		&c.VehicleModel, &c.Brand, &c.FuelType, &c.Kilometers, &c.Remarks, &spares, &labour,
		&c.SparesTotal, &c.LaboursTotal, &c.GrandTotal, &c.AdvancePaid, &c.Collected, &c.AmountPaid,
		&c.Balance, &status, &c.StatusOverridden, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	c.Status = Status(status)
	if err := json.Unmarshal(spares, &c.Spares); err != nil {
		return nil, fmt.Errorf("decode spares: %w", err)
	}
	if err := json.Unmarshal(labour, &c.Labours); err != nil {
		return nil, fmt.Errorf("decode labours: %w", err)
	}
	if c.Spares == nil {
		c.Spares = []LineItem{}
	}
	if c.Labours == nil {
		c.Labours = []LineItem{}
	}
	return &c, nil
}

func encodeItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.Marshal(items)
}

func (r *repository) Insert(ctx context.Context, card *JobCard) error {
	spares, err := encodeItems(card.Spares)
	if err != nil {
		return err
	}
	labours, err := encodeItems(card.Labours)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		INSERT INTO job_cards (
			display_id, business_date, customer_name, email, mobile_no, address, reg_no,
			vehicle_model, brand, fuel_type, kilometers, remarks, spares, labours,
			spares_total, labours_total, grand_total, advance_paid, collected, amount_paid,
			balance, status, status_overridden
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23)
		RETURNING id, created_at, updated_at`,
		card.DisplayID, card.Date, card.CustomerName, card.Email, card.MobileNo, card.Address, card.RegNo,
		card.VehicleModel, card.Brand, card.FuelType, card.Kilometers, card.Remarks, spares, labours,
		card.SparesTotal, card.LaboursTotal, card.GrandTotal, card.AdvancePaid, card.Collected, card.AmountPaid,
		card.Balance, string(card.Status), card.StatusOverridden,
	).Scan(&card.ID, &card.CreatedAt, &card.UpdatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, displayIDConstraint) {
			return ErrDisplayIDTaken
		}
		return err
	}
	return nil
}

func (r *repository) Update(ctx context.Context, card *JobCard) error {
	spares, err := encodeItems(card.Spares)
	if err != nil {
		return err
	}
	labours, err := encodeItems(card.Labours)
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, `
		UPDATE job_cards SET
			business_date = $2, customer_name = $3, email = $4, mobile_no = $5, address = $6,
			reg_no = $7, vehicle_model = $8, brand = $9, fuel_type = $10, kilometers = $11,
			remarks = $12, spares = $13, labours = $14, spares_total = $15, labours_total = $16,
			grand_total = $17, advance_paid = $18, collected = $19, amount_paid = $20,
			balance = $21, status = $22, status_overridden = $23, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`,
		card.ID, card.Date, card.CustomerName, card.Email, card.MobileNo, card.Address,
		card.RegNo, card.VehicleModel, card.Brand, card.FuelType, card.Kilometers,
		card.Remarks, spares, labours, card.SparesTotal, card.LaboursTotal,
		card.GrandTotal, card.AdvancePaid, card.Collected, card.AmountPaid,
		card.Balance, string(card.Status), card.StatusOverridden,
	).Scan(&card.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *repository) UpdatePayments(ctx context.Context, id int64, collected decimal.Decimal) (*JobCard, error) {
	return scanCard(r.db.QueryRow(ctx, `
		UPDATE job_cards SET
			collected = $2::numeric,
			amount_paid = advance_paid + $2::numeric,
			balance = grand_total - (advance_paid + $2::numeric),
			updated_at = NOW()
		WHERE id = $1
		RETURNING `+selectColumns, id, collected))
}

func (r *repository) Delete(ctx context.Context, id int64) (*JobCard, error) {
	return scanCard(r.db.QueryRow(ctx, `DELETE FROM job_cards WHERE id = $1 RETURNING `+selectColumns, id))
}

func (r *repository) Get(ctx context.Context, id int64) (*JobCard, error) {
	return scanCard(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM job_cards WHERE id = $1`, id))
}

func (r *repository) GetByDisplayID(ctx context.Context, displayID string) (*JobCard, error) {
	return scanCard(r.db.QueryRow(ctx, `SELECT `+selectColumns+` FROM job_cards WHERE display_id = $1`, displayID))
}

func (r *repository) List(ctx context.Context, filter ListFilter) ([]JobCard, int, error) {
	var conditions []string
	var args []interface{}
	argPos := 1

	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", argPos))
		args = append(args, string(*filter.Status))
		argPos++
	}
	if filter.RegNo != "" {
		conditions = append(conditions, fmt.Sprintf("reg_no = $%d", argPos))
		args = append(args, strings.ToUpper(filter.RegNo))
		argPos++
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(display_id ILIKE $%[1]d OR customer_name ILIKE $%[1]d OR reg_no ILIKE $%[1]d OR mobile_no ILIKE $%[1]d)", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("business_date >= $%d", argPos))
		args = append(args, *filter.DateFrom)
		argPos++
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("business_date <= $%d", argPos))
		args = append(args, *filter.DateTo)
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM job_cards "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM job_cards %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`,
		selectColumns, whereClause, argPos, argPos+1)
	args = append(args, filter.Limit, filter.Offset)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	cards := []JobCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, 0, err
		}
		cards = append(cards, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return cards, total, nil
}

func (r *repository) ListDisplayIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT display_id FROM job_cards ORDER BY id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
