package automation

import "errors"

var (
	ErrAlreadyRunning = errors.New("attendance automation is already running")
	ErrInvalidWindow  = errors.New("start date must not be after end date")
)
