package automation

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// RunRequest optionally pins the fetch window. Both dates are inclusive work dates.
type RunRequest struct {
	StartDate string `json:"start_date,omitempty"`
	EndDate   string `json:"end_date,omitempty"`
}

func (r *RunRequest) Validate() error {
	var errs validator.ValidationErrors

	if (r.StartDate == "") != (r.EndDate == "") {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date and end_date must be provided together",
		})
	}
	start, startErr := workday.ParseDate(r.StartDate)
	if r.StartDate != "" && startErr != nil {
		errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be YYYY-MM-DD"})
	}
	end, endErr := workday.ParseDate(r.EndDate)
	if r.EndDate != "" && endErr != nil {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be YYYY-MM-DD"})
	}
	if startErr == nil && endErr == nil && end.Before(start) {
		errs = append(errs, validator.ValidationError{Field: "end_date", Message: ErrInvalidWindow.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Custom reports whether the caller pinned the window.
func (r *RunRequest) Custom() bool {
	return r.StartDate != "" && r.EndDate != ""
}

type RunResult struct {
	Processed int       `json:"processed"`
	Saved     int       `json:"saved"`
	Skipped   int       `json:"skipped"`
	Duration  string    `json:"duration"`
	Start     time.Time `json:"window_start"`
	End       time.Time `json:"window_end"`
}

type StateResponse struct {
	IsRunning      bool       `json:"is_running"`
	LastFetchTime  *time.Time `json:"last_fetch_time"`
	LastError      string     `json:"last_error,omitempty"`
	TotalProcessed int        `json:"total_processed"`
	TotalSaved     int        `json:"total_saved"`
	TotalSkipped   int        `json:"total_skipped"`
	LastRunTime    *time.Time `json:"last_run_time"`
}

func ToStateResponse(s State) StateResponse {
	return StateResponse{
		IsRunning:      s.IsRunning,
		LastFetchTime:  s.LastFetchTime,
		LastError:      s.LastError,
		TotalProcessed: s.Stats.TotalProcessed,
		TotalSaved:     s.Stats.TotalSaved,
		TotalSkipped:   s.Stats.TotalSkipped,
		LastRunTime:    s.Stats.LastRunTime,
	}
}
