package attendance

import "errors"

// Attendance domain errors
var (
	ErrAttendanceNotFound      = errors.New("attendance record not found")
	ErrAttendanceExists        = errors.New("an attendance record already exists for this user and date")
	ErrBulkSpansMultipleMonths = errors.New("bulk status updates must stay within one calendar month")
	ErrNoRecordsFound          = errors.New("no attendance records found")
	ErrMaxEntriesReached       = errors.New("maximum number of entries for this date reached")
	ErrPrimaryEntryRequired    = errors.New("a primary entry must exist before adding another entry")
	ErrMissingTimes            = errors.New("attendance record has no check-in or check-out time")
)
