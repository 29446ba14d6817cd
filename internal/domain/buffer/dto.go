package buffer

import (
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type CounterResponse struct {
	ID           string   `json:"id"`
	UserID       string   `json:"user_id"`
	UserName     string   `json:"user_name,omitempty"`
	Year         int      `json:"year"`
	Month        int      `json:"month"`
	UsageCount   int      `json:"usage_count"`
	AbuseReached bool     `json:"abuse_reached"`
	UsageDates   []string `json:"usage_dates"`
}

type MonthlyReportRequest struct {
	Year  int
	Month int
}

func (r *MonthlyReportRequest) Validate() error {
	var errs validator.ValidationErrors
	if r.Year < 2000 || r.Year > 9999 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "year is invalid"})
	}
	if !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "month must be between 1 and 12"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MonthlyReportResponse struct {
	Year        int               `json:"year"`
	Month       int               `json:"month"`
	AbuseCount  int               `json:"abuse_count"`
	TotalUsages int               `json:"total_usages"`
	Counters    []CounterResponse `json:"counters"`
}

func ToResponse(c Counter) CounterResponse {
	dates := make([]string, 0, len(c.UsageDates))
	for _, d := range c.UsageDates {
		dates = append(dates, d.String())
	}
	return CounterResponse{
		ID:           c.ID,
		UserID:       c.UserID,
		Year:         c.Year,
		Month:        int(c.Month),
		UsageCount:   c.UsageCount,
		AbuseReached: c.AbuseReached,
		UsageDates:   dates,
	}
}
