package automation

import "time"

// Stats accumulates over every run since process start.
type Stats struct {
	TotalProcessed int
	TotalSaved     int
	TotalSkipped   int
	LastRunTime    *time.Time
}

// State is the runner's observable status.
type State struct {
	IsRunning     bool
	LastFetchTime *time.Time
	LastError     string
	Stats         Stats
}

// Window is the inclusive range of device time fetched in one run.
type Window struct {
	Start time.Time
	End   time.Time
}
