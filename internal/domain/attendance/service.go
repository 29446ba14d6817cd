package attendance

import (
	"context"
)

// AttendanceService defines business logic for attendance outcomes
type AttendanceService interface {
	// RecordSession evaluates one session through the rule engine and persists the outcome(s).
	// It returns ErrAttendanceExists when a primary record already exists for the date.
	RecordSession(ctx context.Context, req SessionRequest) ([]AttendanceResponse, error)

	// CreateManual is the admin entry point of RecordSession.
	CreateManual(ctx context.Context, req ManualEntryRequest) ([]AttendanceResponse, error)

	// UpdateManual re-evaluates an existing record with new times.
	UpdateManual(ctx context.Context, req UpdateEntryRequest) ([]AttendanceResponse, error)

	// AddEntry records an additional session without rules.
	AddEntry(ctx context.Context, req AdditionalEntryRequest) ([]AttendanceResponse, error)

	Delete(ctx context.Context, id string) error
	AdjustHours(ctx context.Context, req AdjustHoursRequest) (AttendanceResponse, error)
	MarkLeave(ctx context.Context, req MarkLeaveRequest) (AttendanceResponse, error)
	ToggleIgnoreDeduction(ctx context.Context, id string, ignore bool) (AttendanceResponse, error)

	UpdateStatus(ctx context.Context, req UpdateStatusRequest) (AttendanceResponse, error)
	BulkUpdateStatus(ctx context.Context, req BulkStatusRequest) (BulkStatusResponse, error)

	Get(ctx context.Context, id string) (AttendanceResponse, error)
	List(ctx context.Context, filter AttendanceFilter) (ListAttendanceResponse, error)
	MonthlyStats(ctx context.Context, req MonthlyStatsRequest) (MonthlyStatsResponse, error)
}
