package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/auth"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	// Check if it's a validation error
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	// Auth errors
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, user.ErrAdminPrivilegeRequired):
		Forbidden(w, "Admin privilege required")

	// Attendance domain errors
	case errors.Is(err, attendance.ErrAttendanceNotFound):
		NotFound(w, "Attendance record not found")
	case errors.Is(err, attendance.ErrNoRecordsFound):
		NotFound(w, "No attendance records found")
	case errors.Is(err, attendance.ErrAttendanceExists):
		Conflict(w, "Attendance already recorded for this user and date")
	case errors.Is(err, attendance.ErrBulkSpansMultipleMonths):
		Conflict(w, "Bulk status updates must stay within one calendar month")
	case errors.Is(err, attendance.ErrMaxEntriesReached):
		Conflict(w, "Maximum number of entries for this date reached")
	case errors.Is(err, attendance.ErrPrimaryEntryRequired):
		BadRequest(w, "A primary entry must exist before adding another entry", nil)
	case errors.Is(err, attendance.ErrMissingTimes):
		BadRequest(w, "Attendance record has no check-in or check-out time", nil)

	// User directory errors
	case errors.Is(err, user.ErrUserNotFound):
		NotFound(w, "User not found")
	case errors.Is(err, user.ErrTeamNotFound):
		NotFound(w, "Team not found")
	case errors.Is(err, user.ErrInactiveUser):
		BadRequest(w, "User is inactive", nil)

	// Settings and holiday errors
	case errors.Is(err, settings.ErrHolidayNotFound):
		NotFound(w, "Holiday not found")
	case errors.Is(err, settings.ErrSettingsNotFound):
		NotFound(w, "Settings version not found")
	case errors.Is(err, settings.ErrHolidayExists):
		Conflict(w, "A holiday already exists on this date")
	case errors.Is(err, settings.ErrInvalidOfficeTime):
		BadRequest(w, err.Error(), nil)
	case errors.Is(err, settings.ErrNoActiveSettings), errors.Is(err, buffer.ErrDateRequired):
		slog.Error("Attendance engine misconfigured", "error", err)
		ServiceUnavailable(w, "Attendance settings are not configured")

	// Automation errors
	case errors.Is(err, automation.ErrAlreadyRunning):
		Conflict(w, "Attendance automation is already running")
	case errors.Is(err, punch.ErrUpstreamFetch):
		BadGateway(w, "Failed to fetch punches from the biometric device")

	// Default
	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
