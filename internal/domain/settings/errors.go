package settings

import "errors"

var (
	ErrNoActiveSettings  = errors.New("no active attendance settings")
	ErrSettingsNotFound  = errors.New("settings version not found")
	ErrHolidayExists     = errors.New("a holiday already exists on this date")
	ErrHolidayNotFound   = errors.New("holiday not found")
	ErrInvalidOfficeTime = errors.New("office end time must be after office start time")
)
