package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rules"
)

// Reconciler is the only writer that mutates records other than the one a
// request targets.
type Reconciler struct {
	attendance.AttendanceRepository
	now func() time.Time
}

func NewReconciler(attendanceRepo attendance.AttendanceRepository) *Reconciler {
	return &Reconciler{
		AttendanceRepository: attendanceRepo,
		now:                  time.Now,
	}
}

// PolicyOf extracts the buffer windows of a settings version.
func PolicyOf(s settings.Settings) rules.Policy {
	return rules.Policy{
		BufferMinutes:        s.BufferMinutes,
		ReducedBufferMinutes: s.ReducedBufferMinutes,
		SafeZoneMinutes:      s.SafeZoneMinutes,
	}
}

// Handle runs the sweep matching a counter transition. TransitionNone is a no-op.
func (r *Reconciler) Handle(ctx context.Context, userID string, month workday.Date, t buffer.Transition, active settings.Settings) (int, error) {
	switch t {
	case buffer.TransitionAbuseReached:
		return r.Forward(ctx, userID, month, PolicyOf(active))
	case buffer.TransitionAbuseCleared:
		return r.Reverse(ctx, userID, month, PolicyOf(active))
	default:
		return 0, nil
	}
}

// Forward applies the reduced buffer window to the month's qualifying records.
func (r *Reconciler) Forward(ctx context.Context, userID string, month workday.Date, policy rules.Policy) (int, error) {
	return r.sweep(ctx, "forward", userID, month, func(a *attendance.Attendance) bool {
		return ApplyReducedBuffer(a, policy)
	})
}

// Reverse restores the full buffer window on the month's abuse-marked records.
func (r *Reconciler) Reverse(ctx context.Context, userID string, month workday.Date, policy rules.Policy) (int, error) {
	return r.sweep(ctx, "reverse", userID, month, func(a *attendance.Attendance) bool {
		return RestoreFullBuffer(a, policy)
	})
}

func (r *Reconciler) sweep(ctx context.Context, direction, userID string, month workday.Date, apply func(*attendance.Attendance) bool) (int, error) {
	from, to := monthBounds(month)
	records, err := r.AttendanceRepository.ListByUserAndRange(ctx, userID, from, to)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance for reconciliation: %w", err)
	}

	changed := 0
	for _, rec := range records {
		if !apply(&rec) {
			continue
		}
		rec.CalculatedAt = r.now().UTC()
		if err := r.AttendanceRepository.Update(ctx, rec); err != nil {
			slog.Error("Failed to reconcile attendance record",
				"direction", direction,
				"attendance_id", rec.ID,
				"user_id", userID,
				"error", err)
			continue
		}
		changed++
	}

	slog.Info("Buffer reconciliation completed",
		"direction", direction,
		"user_id", userID,
		"month", from.String()[:7],
		"records_changed", changed)
	return changed, nil
}
