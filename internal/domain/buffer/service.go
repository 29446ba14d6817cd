package buffer

import (
	"context"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

type BufferService interface {
	// Get returns the counter for the month of date, creating a zeroed one when absent.
	Get(ctx context.Context, userID string, date workday.Date) (Counter, error)

	// Increment records date as a buffer usage. Repeating a date is a no-op.
	Increment(ctx context.Context, userID string, date workday.Date) (Change, error)

	// Decrement removes date from the usages. Unknown dates are a no-op.
	Decrement(ctx context.Context, userID string, date workday.Date) (Change, error)

	History(ctx context.Context, userID string, months int) ([]CounterResponse, error)
	MonthlyReport(ctx context.Context, req MonthlyReportRequest) (MonthlyReportResponse, error)

	// EnsureMonth creates zeroed counters for every given user in the month of date.
	EnsureMonth(ctx context.Context, userIDs []string, date workday.Date) (int, error)
}
