package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/jackc/pgx/v5"
)

const settingsColumns = `
	id, version, buffer_minutes, reduced_buffer_minutes, safe_zone_minutes, buffer_abuse_limit,
	default_start_minutes, default_end_minutes, force_default_hours, holidays,
	last_attendance_fetched_date, is_active, effective_from, created_by, created_at, updated_at`

// holidayRecord is the JSONB shape of one calendar entry.
type holidayRecord struct {
	Date        workday.Date `json:"date"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	AddedBy     *string      `json:"added_by,omitempty"`
	AddedAt     time.Time    `json:"added_at"`
}

type settingsRepository struct {
	db *database.DB
}

func NewSettingsRepository(db *database.DB) settings.SettingsRepository {
	return &settingsRepository{db: db}
}

// GetActive implements settings.SettingsRepository.
func (r *settingsRepository) GetActive(ctx context.Context) (settings.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + settingsColumns + ` FROM attendance_settings WHERE is_active LIMIT 1`
	s, err := scanSettings(q.QueryRow(ctx, query))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return settings.Settings{}, settings.ErrNoActiveSettings
		}
		return settings.Settings{}, fmt.Errorf("failed to get active settings: %w", err)
	}
	return s, nil
}

// Create implements settings.SettingsRepository. Deactivation and insert share
// one transaction so there is never more than one active version.
func (r *settingsRepository) Create(ctx context.Context, s settings.Settings) (settings.Settings, error) {
	var created settings.Settings
	err := NewTransactor(r.db).WithinTransaction(ctx, func(ctx context.Context) error {
		q := GetQuerier(ctx, r.db)

		var latest int
		if err := q.QueryRow(ctx, `SELECT COALESCE(MAX(version), 0) FROM attendance_settings`).Scan(&latest); err != nil {
			return fmt.Errorf("failed to get latest settings version: %w", err)
		}
		s.Version = max(s.Version, latest+1)

		if _, err := q.Exec(ctx, `UPDATE attendance_settings SET is_active = FALSE, updated_at = NOW() WHERE is_active`); err != nil {
			return fmt.Errorf("failed to deactivate settings: %w", err)
		}

		holidays, err := encodeHolidays(s.Holidays)
		if err != nil {
			return err
		}
		if s.EffectiveFrom.IsZero() {
			s.EffectiveFrom = time.Now().UTC()
		}

		query := `
			INSERT INTO attendance_settings (
				version, buffer_minutes, reduced_buffer_minutes, safe_zone_minutes, buffer_abuse_limit,
				default_start_minutes, default_end_minutes, force_default_hours, holidays,
				last_attendance_fetched_date, is_active, effective_from, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, TRUE, $11, $12)
			RETURNING ` + settingsColumns

		created, err = scanSettings(q.QueryRow(ctx, query,
			s.Version,
			s.BufferMinutes,
			s.ReducedBufferMinutes,
			s.SafeZoneMinutes,
			s.BufferAbuseLimit,
			s.DefaultStart.Minutes(),
			s.DefaultEnd.Minutes(),
			s.ForceDefaultHours,
			holidays,
			s.LastAttendanceFetchedDate,
			s.EffectiveFrom,
			s.CreatedBy,
		))
		if err != nil {
			return fmt.Errorf("failed to create settings: %w", err)
		}
		return nil
	})
	if err != nil {
		return settings.Settings{}, err
	}
	return created, nil
}

// History implements settings.SettingsRepository.
func (r *settingsRepository) History(ctx context.Context, limit int) ([]settings.Settings, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + settingsColumns + ` FROM attendance_settings ORDER BY version DESC LIMIT $1`
	rows, err := q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings history: %w", err)
	}
	defer rows.Close()

	versions := make([]settings.Settings, 0)
	for rows.Next() {
		s, err := scanSettings(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan settings: %w", err)
		}
		versions = append(versions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate settings: %w", err)
	}
	return versions, nil
}

// SaveHolidays implements settings.SettingsRepository.
func (r *settingsRepository) SaveHolidays(ctx context.Context, settingsID string, holidays []settings.Holiday) error {
	q := GetQuerier(ctx, r.db)

	encoded, err := encodeHolidays(holidays)
	if err != nil {
		return err
	}
	cmdTag, err := q.Exec(ctx, `UPDATE attendance_settings SET holidays = $1, updated_at = NOW() WHERE id = $2`, encoded, settingsID)
	if err != nil {
		return fmt.Errorf("failed to save holidays: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return settings.ErrSettingsNotFound
	}
	return nil
}

// UpdateLastFetchedDate implements settings.SettingsRepository.
func (r *settingsRepository) UpdateLastFetchedDate(ctx context.Context, settingsID string, fetched time.Time) error {
	q := GetQuerier(ctx, r.db)

	query := `UPDATE attendance_settings SET last_attendance_fetched_date = $1, updated_at = NOW() WHERE id = $2`
	cmdTag, err := q.Exec(ctx, query, fetched, settingsID)
	if err != nil {
		return fmt.Errorf("failed to update last fetched date: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return settings.ErrSettingsNotFound
	}
	return nil
}

func scanSettings(row pgx.Row) (settings.Settings, error) {
	var (
		s                        settings.Settings
		defaultStart, defaultEnd int
		holidays                 []byte
	)
	err := row.Scan(
		&s.ID, &s.Version, &s.BufferMinutes, &s.ReducedBufferMinutes, &s.SafeZoneMinutes, &s.BufferAbuseLimit,
		&defaultStart, &defaultEnd, &s.ForceDefaultHours, &holidays,
		&s.LastAttendanceFetchedDate, &s.IsActive, &s.EffectiveFrom, &s.CreatedBy, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return settings.Settings{}, err
	}
	s.DefaultStart = workday.TimeOfDay(defaultStart)
	s.DefaultEnd = workday.TimeOfDay(defaultEnd)

	var records []holidayRecord
	if err := json.Unmarshal(holidays, &records); err != nil {
		return settings.Settings{}, fmt.Errorf("invalid holiday calendar: %w", err)
	}
	s.Holidays = make([]settings.Holiday, 0, len(records))
	for _, h := range records {
		s.Holidays = append(s.Holidays, settings.Holiday(h))
	}
	return s, nil
}

func encodeHolidays(holidays []settings.Holiday) ([]byte, error) {
	records := make([]holidayRecord, 0, len(holidays))
	for _, h := range holidays {
		records = append(records, holidayRecord(h))
	}
	b, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("failed to encode holidays: %w", err)
	}
	return b, nil
}
