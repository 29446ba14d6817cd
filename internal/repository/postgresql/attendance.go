package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const attendanceColumns = `
	id, user_id, COALESCE(team_id::text, ''), date,
	check_in_minutes, check_out_minutes, office_start_minutes, office_end_minutes,
	total_work_minutes, deduction_minutes, extra_minutes,
	is_late, has_deduction, has_extra_hours, is_buffer_used, is_buffer_abused,
	is_safe_zone, is_early_checkout, is_worked_from_home, no_rules_applied,
	buffer_count_snapshot, buffer_incremented_this_day, settings_snapshot,
	is_weekend_work, is_holiday_work, holiday_bonus_minutes,
	approval_status, payout_multiplier::text, entry_no, COALESCE(split_parent_id::text, ''),
	ignore_deduction, is_half_day, leave_kind, remarks, adjustment_history,
	calculated_at, created_at, updated_at`

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	if a.EntryNo < 1 {
		a.EntryNo = 1
	}
	args, err := attendanceArgs(a)
	if err != nil {
		return attendance.Attendance{}, err
	}

	query := `
		INSERT INTO attendances (
			user_id, team_id, date,
			check_in_minutes, check_out_minutes, office_start_minutes, office_end_minutes,
			total_work_minutes, deduction_minutes, extra_minutes,
			is_late, has_deduction, has_extra_hours, is_buffer_used, is_buffer_abused,
			is_safe_zone, is_early_checkout, is_worked_from_home, no_rules_applied,
			buffer_count_snapshot, buffer_incremented_this_day, settings_snapshot,
			is_weekend_work, is_holiday_work, holiday_bonus_minutes,
			approval_status, payout_multiplier, entry_no, ignore_deduction, is_half_day,
			leave_kind, remarks, adjustment_history, calculated_at, split_parent_id
		) VALUES (
			$1, NULLIF($2, '')::uuid, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
			$31, $32, $33, $34, NULLIF($35, '')::uuid
		) RETURNING id, created_at, updated_at
	`

	err = q.QueryRow(ctx, query, args...).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return attendance.Attendance{}, attendance.ErrAttendanceExists
		}
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return a, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, a attendance.Attendance) error {
	q := GetQuerier(ctx, r.db)

	args, err := attendanceArgs(a)
	if err != nil {
		return err
	}
	args = append(args, a.ID)

	query := `
		UPDATE attendances SET
			user_id = $1, team_id = NULLIF($2, '')::uuid, date = $3,
			check_in_minutes = $4, check_out_minutes = $5,
			office_start_minutes = $6, office_end_minutes = $7,
			total_work_minutes = $8, deduction_minutes = $9, extra_minutes = $10,
			is_late = $11, has_deduction = $12, has_extra_hours = $13,
			is_buffer_used = $14, is_buffer_abused = $15, is_safe_zone = $16,
			is_early_checkout = $17, is_worked_from_home = $18, no_rules_applied = $19,
			buffer_count_snapshot = $20, buffer_incremented_this_day = $21, settings_snapshot = $22,
			is_weekend_work = $23, is_holiday_work = $24, holiday_bonus_minutes = $25,
			approval_status = $26, payout_multiplier = $27, entry_no = $28,
			ignore_deduction = $29, is_half_day = $30, leave_kind = $31, remarks = $32,
			adjustment_history = $33, calculated_at = $34,
			split_parent_id = NULLIF($35, '')::uuid,
			updated_at = NOW()
		WHERE id = $36
	`

	cmdTag, err := q.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}
	return nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	cmdTag, err := q.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete attendance: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}
	return nil
}

// DeleteSplitSegments implements attendance.AttendanceRepository.
func (r *attendanceRepository) DeleteSplitSegments(ctx context.Context, parentID string) ([]attendance.Attendance, error) {
	if parentID == "" {
		return nil, nil
	}
	query := `DELETE FROM attendances WHERE split_parent_id = $1 RETURNING ` + attendanceColumns
	return r.query(ctx, query, parentID)
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE id = $1`
	a, err := scanAttendance(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance by id: %w", err)
	}
	return a, nil
}

// GetPrimary implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetPrimary(ctx context.Context, userID string, date workday.Date) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + attendanceColumns + ` FROM attendances WHERE user_id = $1 AND date = $2 AND entry_no = 1`
	a, err := scanAttendance(q.QueryRow(ctx, query, userID, date.Time()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get primary attendance: %w", err)
	}
	return a, nil
}

// ExistsPrimary implements attendance.AttendanceRepository.
func (r *attendanceRepository) ExistsPrimary(ctx context.Context, userID string, date workday.Date) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM attendances WHERE user_id = $1 AND date = $2 AND entry_no = 1)`
	if err := q.QueryRow(ctx, query, userID, date.Time()).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check primary attendance: %w", err)
	}
	return exists, nil
}

// CountEntries implements attendance.AttendanceRepository.
func (r *attendanceRepository) CountEntries(ctx context.Context, userID string, date workday.Date) (int, error) {
	q := GetQuerier(ctx, r.db)

	var count int
	query := `SELECT COUNT(*) FROM attendances WHERE user_id = $1 AND date = $2`
	if err := q.QueryRow(ctx, query, userID, date.Time()).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count attendance entries: %w", err)
	}
	return count, nil
}

// ListByUserAndRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByUserAndRange(ctx context.Context, userID string, from, to workday.Date) ([]attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE user_id = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC, entry_no ASC
	`
	return r.query(ctx, query, userID, from.Time(), to.Time())
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(ctx context.Context, date workday.Date) ([]attendance.Attendance, error) {
	query := `
		SELECT ` + attendanceColumns + `
		FROM attendances
		WHERE date = $1
		ORDER BY user_id ASC, entry_no ASC
	`
	return r.query(ctx, query, date.Time())
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, r.db)

	// Build WHERE clause
	baseWhere := "1 = 1"
	args := []interface{}{}
	argIdx := 1

	if filter.UserID != nil && *filter.UserID != "" {
		baseWhere += fmt.Sprintf(" AND user_id = $%d", argIdx)
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.TeamID != nil && *filter.TeamID != "" {
		baseWhere += fmt.Sprintf(" AND team_id = $%d", argIdx)
		args = append(args, *filter.TeamID)
		argIdx++
	}
	if filter.Status != nil && *filter.Status != "" {
		baseWhere += fmt.Sprintf(" AND approval_status = $%d", argIdx)
		args = append(args, *filter.Status)
		argIdx++
	}
	from, to := filter.Range()
	if from != nil {
		baseWhere += fmt.Sprintf(" AND date >= $%d", argIdx)
		args = append(args, from.Time())
		argIdx++
	}
	if to != nil {
		baseWhere += fmt.Sprintf(" AND date <= $%d", argIdx)
		args = append(args, to.Time())
		argIdx++
	}

	var total int64
	countQuery := "SELECT COUNT(*) FROM attendances WHERE " + baseWhere
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := max(filter.Page, 1)
	offset := (page - 1) * limit

	selectQuery := fmt.Sprintf(`
		SELECT %s
		FROM attendances
		WHERE %s
		ORDER BY date DESC, user_id ASC, entry_no ASC
		LIMIT $%d OFFSET $%d
	`, attendanceColumns, baseWhere, argIdx, argIdx+1)
	args = append(args, limit, offset)

	records, err := r.query(ctx, selectQuery, args...)
	if err != nil {
		return nil, 0, err
	}
	return records, total, nil
}

func (r *attendanceRepository) query(ctx context.Context, query string, args ...interface{}) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendances: %w", err)
	}
	defer rows.Close()

	records := make([]attendance.Attendance, 0)
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		records = append(records, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate attendances: %w", err)
	}
	return records, nil
}

func attendanceArgs(a attendance.Attendance) ([]interface{}, error) {
	snapshot, err := json.Marshal(a.SettingsSnapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings snapshot: %w", err)
	}
	history := a.AdjustmentHistory
	if history == nil {
		history = []attendance.Adjustment{}
	}
	adjustments, err := json.Marshal(history)
	if err != nil {
		return nil, fmt.Errorf("failed to encode adjustment history: %w", err)
	}
	var leaveKind *string
	if a.LeaveKind != nil {
		kind := string(*a.LeaveKind)
		leaveKind = &kind
	}
	calculatedAt := a.CalculatedAt
	if calculatedAt.IsZero() {
		calculatedAt = time.Now().UTC()
	}

	return []interface{}{
		a.UserID, a.TeamID, a.Date.Time(),
		minutesOrNil(a.CheckIn), minutesOrNil(a.CheckOut),
		a.OfficeStart.Minutes(), a.OfficeEnd.Minutes(),
		a.TotalWorkMinutes, a.DeductionMinutes, a.ExtraMinutes,
		a.Flags.IsLate, a.Flags.HasDeduction, a.Flags.HasExtraHours,
		a.Flags.IsBufferUsed, a.Flags.IsBufferAbused, a.Flags.IsSafeZone,
		a.Flags.IsEarlyCheckout, a.Flags.IsWorkedFromHome, a.Flags.NoRulesApplied,
		a.BufferCountSnapshot, a.BufferIncrementedThisDay, snapshot,
		a.IsWeekendWork, a.IsHolidayWork, a.HolidayBonusMinutes,
		string(a.ApprovalStatus), a.PayoutMultiplier.String(), a.EntryNo,
		a.IgnoreDeduction, a.IsHalfDay, leaveKind, a.Remarks,
		adjustments, calculatedAt, a.SplitParentID,
	}, nil
}

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var (
		a                      attendance.Attendance
		date                   time.Time
		checkIn, checkOut      *int
		officeStart, officeEnd int
		snapshot, adjustments  []byte
		status, multiplier     string
		leaveKind              *string
	)

	err := row.Scan(
		&a.ID, &a.UserID, &a.TeamID, &date,
		&checkIn, &checkOut, &officeStart, &officeEnd,
		&a.TotalWorkMinutes, &a.DeductionMinutes, &a.ExtraMinutes,
		&a.Flags.IsLate, &a.Flags.HasDeduction, &a.Flags.HasExtraHours,
		&a.Flags.IsBufferUsed, &a.Flags.IsBufferAbused, &a.Flags.IsSafeZone,
		&a.Flags.IsEarlyCheckout, &a.Flags.IsWorkedFromHome, &a.Flags.NoRulesApplied,
		&a.BufferCountSnapshot, &a.BufferIncrementedThisDay, &snapshot,
		&a.IsWeekendWork, &a.IsHolidayWork, &a.HolidayBonusMinutes,
		&status, &multiplier, &a.EntryNo, &a.SplitParentID,
		&a.IgnoreDeduction, &a.IsHalfDay, &leaveKind, &a.Remarks, &adjustments,
		&a.CalculatedAt, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return attendance.Attendance{}, err
	}

	a.Date = workday.FromTime(date)
	a.CheckIn = timeOfDayOrNil(checkIn)
	a.CheckOut = timeOfDayOrNil(checkOut)
	a.OfficeStart = workday.TimeOfDay(officeStart)
	a.OfficeEnd = workday.TimeOfDay(officeEnd)
	a.ApprovalStatus = attendance.ApprovalStatus(status)
	if leaveKind != nil {
		kind := attendance.LeaveKind(*leaveKind)
		a.LeaveKind = &kind
	}
	if a.PayoutMultiplier, err = decimal.NewFromString(multiplier); err != nil {
		return attendance.Attendance{}, fmt.Errorf("invalid payout multiplier %q: %w", multiplier, err)
	}
	if err := json.Unmarshal(snapshot, &a.SettingsSnapshot); err != nil {
		return attendance.Attendance{}, fmt.Errorf("invalid settings snapshot: %w", err)
	}
	if err := json.Unmarshal(adjustments, &a.AdjustmentHistory); err != nil {
		return attendance.Attendance{}, fmt.Errorf("invalid adjustment history: %w", err)
	}
	return a, nil
}

func minutesOrNil(t *workday.TimeOfDay) *int {
	if t == nil {
		return nil
	}
	m := t.Minutes()
	return &m
}

func timeOfDayOrNil(m *int) *workday.TimeOfDay {
	if m == nil {
		return nil
	}
	t := workday.TimeOfDay(*m)
	return &t
}
