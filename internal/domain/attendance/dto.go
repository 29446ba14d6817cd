package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// ========================================
// ENTRY DTOs
// ========================================

// SessionRequest is one check-in/check-out pair for a user on a work date.
// Manual entries and biometric automation both resolve to it.
type SessionRequest struct {
	UserID           string
	Date             workday.Date
	CheckIn          workday.TimeOfDay
	CheckOut         workday.TimeOfDay
	ApplyRules       bool
	IsWorkedFromHome bool
	Remarks          string
}

type ManualEntryRequest struct {
	UserID           string `json:"user_id"`
	Date             string `json:"date"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	ApplyRules       *bool  `json:"apply_rules,omitempty"`
	IsWorkedFromHome bool   `json:"is_worked_from_home"`
	Remarks          string `json:"remarks"`
}

func (r *ManualEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}
	errs = validateDate(errs, "date", r.Date)
	errs = validateClock(errs, "check_in", r.CheckIn)
	errs = validateClock(errs, "check_out", r.CheckOut)
	if r.CheckIn != "" && r.CheckIn == r.CheckOut {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out must differ from check_in",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Session converts a validated request.
func (r *ManualEntryRequest) Session() SessionRequest {
	date, _ := workday.ParseDate(r.Date)
	checkIn, _ := workday.ParseTimeOfDay(r.CheckIn)
	checkOut, _ := workday.ParseTimeOfDay(r.CheckOut)
	applyRules := !r.IsWorkedFromHome
	if r.ApplyRules != nil {
		applyRules = *r.ApplyRules
	}
	return SessionRequest{
		UserID:           r.UserID,
		Date:             date,
		CheckIn:          checkIn,
		CheckOut:         checkOut,
		ApplyRules:       applyRules,
		IsWorkedFromHome: r.IsWorkedFromHome,
		Remarks:          r.Remarks,
	}
}

type UpdateEntryRequest struct {
	ID               string  `json:"-"`
	CheckIn          string  `json:"check_in"`
	CheckOut         string  `json:"check_out"`
	ApplyRules       *bool   `json:"apply_rules,omitempty"`
	IsWorkedFromHome *bool   `json:"is_worked_from_home,omitempty"`
	Remarks          *string `json:"remarks,omitempty"`
}

func (r *UpdateEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{
			Field:   "id",
			Message: "id is required",
		})
	}
	errs = validateClock(errs, "check_in", r.CheckIn)
	errs = validateClock(errs, "check_out", r.CheckOut)
	if r.CheckIn != "" && r.CheckIn == r.CheckOut {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out must differ from check_in",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// AdditionalEntryRequest records a 2nd or 3rd session on a date, never rule-evaluated.
type AdditionalEntryRequest struct {
	UserID           string `json:"user_id"`
	Date             string `json:"date"`
	CheckIn          string `json:"check_in"`
	CheckOut         string `json:"check_out"`
	IsWorkedFromHome bool   `json:"is_worked_from_home"`
	Remarks          string `json:"remarks"`
}

func (r *AdditionalEntryRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}
	errs = validateDate(errs, "date", r.Date)
	errs = validateClock(errs, "check_in", r.CheckIn)
	errs = validateClock(errs, "check_out", r.CheckOut)
	if r.CheckIn != "" && r.CheckIn == r.CheckOut {
		errs = append(errs, validator.ValidationError{
			Field:   "check_out",
			Message: "check_out must differ from check_in",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type AdjustHoursRequest struct {
	ID               string `json:"-"`
	DeductionMinutes *int   `json:"deduction_minutes,omitempty"`
	ExtraMinutes     *int   `json:"extra_minutes,omitempty"`
	IsHalfDay        *bool  `json:"is_half_day,omitempty"`
	Reason           string `json:"reason"`
	ActorID          string `json:"-"`
}

func (r *AdjustHoursRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.DeductionMinutes == nil && r.ExtraMinutes == nil && r.IsHalfDay == nil {
		errs = append(errs, validator.ValidationError{
			Field:   "deduction_minutes",
			Message: "at least one of deduction_minutes, extra_minutes or is_half_day is required",
		})
	}
	if r.DeductionMinutes != nil && *r.DeductionMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "deduction_minutes",
			Message: "deduction_minutes must not be negative",
		})
	}
	if r.ExtraMinutes != nil && *r.ExtraMinutes < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "extra_minutes",
			Message: "extra_minutes must not be negative",
		})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason is required",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MarkLeaveRequest struct {
	UserID  string `json:"user_id"`
	Date    string `json:"date"`
	Kind    string `json:"kind"`
	Remarks string `json:"remarks"`
}

func (r *MarkLeaveRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}
	errs = validateDate(errs, "date", r.Date)
	if r.Kind == "" {
		r.Kind = string(LeaveKindLeave)
	}
	if !validator.IsInSlice(r.Kind, []string{string(LeaveKindLeave), string(LeaveKindAbsent)}) {
		errs = append(errs, validator.ValidationError{
			Field:   "kind",
			Message: "kind must be one of: leave, absent",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ========================================
// APPROVAL DTOs
// ========================================

type UpdateStatusRequest struct {
	ID     string `json:"-"`
	Status string `json:"status"`
}

func (r *UpdateStatusRequest) Validate() error {
	var errs validator.ValidationErrors
	errs = validateStatus(errs, r.Status)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BulkStatusRequest struct {
	IDs    []string `json:"ids"`
	Status string   `json:"status"`
}

func (r *BulkStatusRequest) Validate() error {
	var errs validator.ValidationErrors

	if len(r.IDs) == 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "ids",
			Message: "ids must contain at least one record id",
		})
	}
	errs = validateStatus(errs, r.Status)

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type BulkStatusResponse struct {
	Updated int                  `json:"updated"`
	Skipped int                  `json:"skipped"`
	Records []AttendanceResponse `json:"records"`
}

// ========================================
// QUERY DTOs
// ========================================

type AttendanceFilter struct {
	UserID    *string `json:"user_id,omitempty"`
	TeamID    *string `json:"team_id,omitempty"`
	Status    *string `json:"status,omitempty"`
	StartDate *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate   *string `json:"end_date,omitempty"`   // YYYY-MM-DD
	Month     int     `json:"month,omitempty"`
	Year      int     `json:"year,omitempty"`

	// Pagination
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

func (f *AttendanceFilter) Validate() error {
	var errs validator.ValidationErrors

	if f.Page < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "page",
			Message: "page must be a positive number",
		})
	}
	if f.Page == 0 {
		f.Page = 1
	}

	if f.Limit < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must be a positive number",
		})
	}
	if f.Limit == 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		errs = append(errs, validator.ValidationError{
			Field:   "limit",
			Message: "limit must not exceed 100",
		})
	}

	if f.Status != nil {
		errs = validateStatus(errs, *f.Status)
	}
	if f.StartDate != nil && *f.StartDate != "" {
		errs = validateDate(errs, "start_date", *f.StartDate)
	}
	if f.EndDate != nil && *f.EndDate != "" {
		errs = validateDate(errs, "end_date", *f.EndDate)
	}

	if f.Month != 0 || f.Year != 0 {
		if !validator.IsValidMonth(f.Month) {
			errs = append(errs, validator.ValidationError{
				Field:   "month",
				Message: "month must be between 1 and 12",
			})
		}
		if f.Year < 2000 {
			errs = append(errs, validator.ValidationError{
				Field:   "year",
				Message: "year is required with month",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Range resolves the filter's date bounds. Month and year take precedence over explicit dates.
func (f *AttendanceFilter) Range() (from, to *workday.Date) {
	if f.Month != 0 && f.Year != 0 {
		first := workday.NewDate(f.Year, time.Month(f.Month), 1)
		last := first.LastOfMonth()
		return &first, &last
	}
	if f.StartDate != nil && *f.StartDate != "" {
		if d, err := workday.ParseDate(*f.StartDate); err == nil {
			from = &d
		}
	}
	if f.EndDate != nil && *f.EndDate != "" {
		if d, err := workday.ParseDate(*f.EndDate); err == nil {
			to = &d
		}
	}
	return from, to
}

type MonthlyStatsRequest struct {
	UserID string
	Year   int
	Month  int
}

func (r *MonthlyStatsRequest) Validate() error {
	var errs validator.ValidationErrors
	if validator.IsEmpty(r.UserID) {
		errs = append(errs, validator.ValidationError{Field: "user_id", Message: "user_id is required"})
	}
	if !validator.IsValidMonth(r.Month) {
		errs = append(errs, validator.ValidationError{Field: "month", Message: "month must be between 1 and 12"})
	}
	if r.Year < 2000 {
		errs = append(errs, validator.ValidationError{Field: "year", Message: "year is invalid"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type MonthlyStatsResponse struct {
	UserID                string `json:"user_id"`
	Year                  int    `json:"year"`
	Month                 int    `json:"month"`
	TotalDays             int    `json:"total_days"`
	TotalWorkMinutes      int    `json:"total_work_minutes"`
	TotalDeductionMinutes int    `json:"total_deduction_minutes"`
	TotalExtraMinutes     int    `json:"total_extra_minutes"`
	TotalHolidayBonus     int    `json:"total_holiday_bonus_minutes"`
	LateDays              int    `json:"late_days"`
	EarlyCheckouts        int    `json:"early_checkouts"`
	BufferUsedDays        int    `json:"buffer_used_days"`
	ApprovedRecords       int    `json:"approved_records"`
	PendingRecords        int    `json:"pending_records"`
	RejectedRecords       int    `json:"rejected_records"`
	SinglePayRecords      int    `json:"single_pay_records"`
	NARecords             int    `json:"na_records"`
	TotalWorkHours        string `json:"total_work_hours"`
	TotalDeductionHours   string `json:"total_deduction_hours"`
	TotalExtraHours       string `json:"total_extra_hours"`
	PayableExtraHours     string `json:"payable_extra_hours"`
}

// ========================================
// RESPONSE DTOs
// ========================================

type AttendanceResponse struct {
	ID                       string            `json:"id"`
	UserID                   string            `json:"user_id"`
	TeamID                   string            `json:"team_id"`
	Date                     string            `json:"date"`
	CheckIn                  *string           `json:"check_in"`
	CheckOut                 *string           `json:"check_out"`
	OfficeStart              string            `json:"office_start"`
	OfficeEnd                string            `json:"office_end"`
	TotalWorkMinutes         int               `json:"total_work_minutes"`
	DeductionMinutes         int               `json:"deduction_minutes"`
	ExtraMinutes             int               `json:"extra_minutes"`
	Flags                    Flags             `json:"rules_applied"`
	BufferCountSnapshot      int               `json:"buffer_count_snapshot"`
	BufferIncrementedThisDay bool              `json:"buffer_incremented_this_day"`
	SettingsSnapshot         settings.Snapshot `json:"settings_snapshot"`
	IsWeekendWork            bool              `json:"is_weekend_work"`
	IsHolidayWork            bool              `json:"is_holiday_work"`
	HolidayBonusMinutes      int               `json:"holiday_bonus_minutes"`
	ApprovalStatus           string            `json:"approval_status"`
	PayoutMultiplier         string            `json:"payout_multiplier"`
	EntryNo                  int               `json:"entry_no"`
	IsAdditionalEntry        bool              `json:"is_additional_entry"`
	SplitParentID            string            `json:"split_parent_id,omitempty"`
	IgnoreDeduction          bool              `json:"ignore_deduction"`
	IsHalfDay                bool              `json:"is_half_day"`
	LeaveKind                *string           `json:"leave_kind,omitempty"`
	Remarks                  string            `json:"remarks,omitempty"`
	AdjustmentHistory        []Adjustment      `json:"adjustment_history"`
	CalculatedAt             time.Time         `json:"calculated_at"`
}

type ListAttendanceResponse struct {
	TotalCount  int64                `json:"total_count"`
	Page        int                  `json:"page"`
	Limit       int                  `json:"limit"`
	TotalPages  int                  `json:"total_pages"`
	Attendances []AttendanceResponse `json:"attendances"`
}

func ToResponse(a Attendance) AttendanceResponse {
	resp := AttendanceResponse{
		ID:                       a.ID,
		UserID:                   a.UserID,
		TeamID:                   a.TeamID,
		Date:                     a.Date.String(),
		OfficeStart:              a.OfficeStart.String(),
		OfficeEnd:                a.OfficeEnd.String(),
		TotalWorkMinutes:         a.TotalWorkMinutes,
		DeductionMinutes:         a.DeductionMinutes,
		ExtraMinutes:             a.ExtraMinutes,
		Flags:                    a.Flags,
		BufferCountSnapshot:      a.BufferCountSnapshot,
		BufferIncrementedThisDay: a.BufferIncrementedThisDay,
		SettingsSnapshot:         a.SettingsSnapshot,
		IsWeekendWork:            a.IsWeekendWork,
		IsHolidayWork:            a.IsHolidayWork,
		HolidayBonusMinutes:      a.HolidayBonusMinutes,
		ApprovalStatus:           string(a.ApprovalStatus),
		PayoutMultiplier:         a.PayoutMultiplier.String(),
		EntryNo:                  a.EntryNo,
		IsAdditionalEntry:        a.IsAdditionalEntry(),
		SplitParentID:            a.SplitParentID,
		IgnoreDeduction:          a.IgnoreDeduction,
		IsHalfDay:                a.IsHalfDay,
		Remarks:                  a.Remarks,
		AdjustmentHistory:        a.AdjustmentHistory,
		CalculatedAt:             a.CalculatedAt,
	}
	if a.CheckIn != nil {
		s := a.CheckIn.String()
		resp.CheckIn = &s
	}
	if a.CheckOut != nil {
		s := a.CheckOut.String()
		resp.CheckOut = &s
	}
	if a.LeaveKind != nil {
		s := string(*a.LeaveKind)
		resp.LeaveKind = &s
	}
	if resp.AdjustmentHistory == nil {
		resp.AdjustmentHistory = []Adjustment{}
	}
	return resp
}

func ToResponses(records []Attendance) []AttendanceResponse {
	out := make([]AttendanceResponse, 0, len(records))
	for _, r := range records {
		out = append(out, ToResponse(r))
	}
	return out
}

func validateDate(errs validator.ValidationErrors, field, value string) validator.ValidationErrors {
	if _, ok := validator.IsValidDate(value); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " must be in YYYY-MM-DD format",
		})
	}
	return errs
}

func validateClock(errs validator.ValidationErrors, field, value string) validator.ValidationErrors {
	if !validator.IsValidTimeOfDay(value) {
		errs = append(errs, validator.ValidationError{
			Field:   field,
			Message: field + " must be in HH:mm format",
		})
	}
	return errs
}

func validateStatus(errs validator.ValidationErrors, status string) validator.ValidationErrors {
	if !validator.IsInSlice(status, ApprovalStatuses) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: Pending, NA, Approved, SinglePay, Rejected",
		})
	}
	return errs
}
