package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/jackc/pgx/v5"
)

const counterColumns = `id, user_id, year, month, usage_count, abuse_reached, usage_dates, created_at, updated_at`

type counterRepository struct {
	db *database.DB
}

func NewCounterRepository(db *database.DB) buffer.CounterRepository {
	return &counterRepository{db: db}
}

// Get implements buffer.CounterRepository. Inside a transaction the row is locked
// so concurrent increments of the same month serialize.
func (r *counterRepository) Get(ctx context.Context, key buffer.Key) (buffer.Counter, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + counterColumns + ` FROM buffer_counters WHERE user_id = $1 AND year = $2 AND month = $3`
	if _, inTx := q.(pgx.Tx); inTx {
		query += ` FOR UPDATE`
	}

	c, err := scanCounter(q.QueryRow(ctx, query, key.UserID, key.Year, int(key.Month)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return buffer.Counter{}, buffer.ErrCounterNotFound
		}
		return buffer.Counter{}, fmt.Errorf("failed to get buffer counter: %w", err)
	}
	return c, nil
}

// Create implements buffer.CounterRepository.
func (r *counterRepository) Create(ctx context.Context, c buffer.Counter) (buffer.Counter, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO buffer_counters (user_id, year, month, usage_count, abuse_reached, usage_dates)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (user_id, year, month) DO NOTHING
	`
	if _, err := q.Exec(ctx, query, c.UserID, c.Year, int(c.Month), c.UsageCount, c.AbuseReached, dateArgs(c.UsageDates)); err != nil {
		return buffer.Counter{}, fmt.Errorf("failed to create buffer counter: %w", err)
	}
	return r.Get(ctx, c.Key())
}

// Update implements buffer.CounterRepository.
func (r *counterRepository) Update(ctx context.Context, c buffer.Counter) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE buffer_counters
		SET usage_count = $1, abuse_reached = $2, usage_dates = $3, updated_at = NOW()
		WHERE id = $4
	`
	cmdTag, err := q.Exec(ctx, query, c.UsageCount, c.AbuseReached, dateArgs(c.UsageDates), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update buffer counter: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return buffer.ErrCounterNotFound
	}
	return nil
}

// ListByUser implements buffer.CounterRepository.
func (r *counterRepository) ListByUser(ctx context.Context, userID string, limit int) ([]buffer.Counter, error) {
	query := `
		SELECT ` + counterColumns + `
		FROM buffer_counters
		WHERE user_id = $1
		ORDER BY year DESC, month DESC
		LIMIT $2
	`
	return r.query(ctx, query, userID, limit)
}

// ListByMonth implements buffer.CounterRepository.
func (r *counterRepository) ListByMonth(ctx context.Context, year int, month int) ([]buffer.Counter, error) {
	query := `
		SELECT ` + counterColumns + `
		FROM buffer_counters
		WHERE year = $1 AND month = $2
		ORDER BY usage_count DESC, user_id ASC
	`
	return r.query(ctx, query, year, month)
}

func (r *counterRepository) query(ctx context.Context, query string, args ...interface{}) ([]buffer.Counter, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query buffer counters: %w", err)
	}
	defer rows.Close()

	counters := make([]buffer.Counter, 0)
	for rows.Next() {
		c, err := scanCounter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan buffer counter: %w", err)
		}
		counters = append(counters, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate buffer counters: %w", err)
	}
	return counters, nil
}

func scanCounter(row pgx.Row) (buffer.Counter, error) {
	var (
		c     buffer.Counter
		month int
		dates []time.Time
	)
	err := row.Scan(&c.ID, &c.UserID, &c.Year, &month, &c.UsageCount, &c.AbuseReached, &dates, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return buffer.Counter{}, err
	}
	c.Month = time.Month(month)
	c.UsageDates = make([]workday.Date, 0, len(dates))
	for _, d := range dates {
		c.UsageDates = append(c.UsageDates, workday.FromTime(d))
	}
	return c, nil
}

func dateArgs(dates []workday.Date) []time.Time {
	out := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		out = append(out, d.Time())
	}
	return out
}
