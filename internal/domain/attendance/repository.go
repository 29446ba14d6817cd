package attendance

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// AttendanceRepository defines data access methods for attendance outcomes.
type AttendanceRepository interface {
	Create(ctx context.Context, a Attendance) (Attendance, error)
	Update(ctx context.Context, a Attendance) error
	Delete(ctx context.Context, id string) error

	// DeleteSplitSegments removes the day-two segments created from the given primary record.
	DeleteSplitSegments(ctx context.Context, parentID string) ([]Attendance, error)

	// GetByID returns ErrAttendanceNotFound when missing.
	GetByID(ctx context.Context, id string) (Attendance, error)

	// GetPrimary returns the entry #1 record of (user, date) or ErrAttendanceNotFound.
	GetPrimary(ctx context.Context, userID string, date workday.Date) (Attendance, error)

	ExistsPrimary(ctx context.Context, userID string, date workday.Date) (bool, error)

	// CountEntries counts primary and additional records of (user, date).
	CountEntries(ctx context.Context, userID string, date workday.Date) (int, error)

	// ListByUserAndRange lists records with from <= date <= to in ascending date order.
	ListByUserAndRange(ctx context.Context, userID string, from, to workday.Date) ([]Attendance, error)

	ListByDate(ctx context.Context, date workday.Date) ([]Attendance, error)

	List(ctx context.Context, filter AttendanceFilter) ([]Attendance, int64, error)
}
