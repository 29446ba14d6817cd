package attendance

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/shopspring/decimal"
)

type ApprovalStatus string

const (
	StatusPending   ApprovalStatus = "Pending"
	StatusNA        ApprovalStatus = "NA"
	StatusApproved  ApprovalStatus = "Approved"
	StatusSinglePay ApprovalStatus = "SinglePay"
	StatusRejected  ApprovalStatus = "Rejected"
)

var ApprovalStatuses = []string{
	string(StatusPending),
	string(StatusNA),
	string(StatusApproved),
	string(StatusSinglePay),
	string(StatusRejected),
}

type LeaveKind string

const (
	LeaveKindLeave  LeaveKind = "leave"
	LeaveKindAbsent LeaveKind = "absent"
)

// MaxEntriesPerDay caps primary plus additional sessions on one date.
const MaxEntriesPerDay = 3

// WeekendMultiplier is the payout multiplier of weekend work.
var WeekendMultiplier = decimal.NewFromInt(2)

type Flags struct {
	IsLate           bool `json:"is_late"`
	HasDeduction     bool `json:"has_deduction"`
	HasExtraHours    bool `json:"has_extra_hours"`
	IsBufferUsed     bool `json:"is_buffer_used"`
	IsBufferAbused   bool `json:"is_buffer_abused"`
	IsSafeZone       bool `json:"is_safe_zone"`
	IsEarlyCheckout  bool `json:"is_early_checkout"`
	IsWorkedFromHome bool `json:"is_worked_from_home"`
	NoRulesApplied   bool `json:"no_rules_applied"`
}

// Adjustment is one manual override of the computed minutes.
type Adjustment struct {
	Reason        string    `json:"reason"`
	FromDeduction int       `json:"from_deduction_minutes"`
	ToDeduction   int       `json:"to_deduction_minutes"`
	FromExtra     int       `json:"from_extra_minutes"`
	ToExtra       int       `json:"to_extra_minutes"`
	AdjustedBy    string    `json:"adjusted_by"`
	AdjustedAt    time.Time `json:"adjusted_at"`
}

// Attendance is the computed outcome of one work session on one calendar date.
type Attendance struct {
	ID     string
	UserID string
	TeamID string
	Date   workday.Date

	CheckIn     *workday.TimeOfDay
	CheckOut    *workday.TimeOfDay
	OfficeStart workday.TimeOfDay
	OfficeEnd   workday.TimeOfDay

	TotalWorkMinutes int
	DeductionMinutes int
	ExtraMinutes     int
	Flags            Flags

	BufferCountSnapshot      int
	BufferIncrementedThisDay bool
	SettingsSnapshot         settings.Snapshot

	IsWeekendWork       bool
	IsHolidayWork       bool
	HolidayBonusMinutes int

	ApprovalStatus   ApprovalStatus
	PayoutMultiplier decimal.Decimal

	// EntryNo is 1 for the primary record, 2 or 3 for additional entries.
	EntryNo           int
	// SplitParentID links the day-two segment of an overnight session to its primary record.
	SplitParentID     string
	IgnoreDeduction   bool
	IsHalfDay         bool
	LeaveKind         *LeaveKind
	Remarks           string
	AdjustmentHistory []Adjustment

	CalculatedAt time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (a Attendance) IsAdditionalEntry() bool {
	return a.EntryNo > 1
}

// IsSplitSegment reports whether the record is the day-two half of an overnight session.
func (a Attendance) IsSplitSegment() bool {
	return a.SplitParentID != ""
}

func (a Attendance) HasTimes() bool {
	return a.CheckIn != nil && a.CheckOut != nil
}

// CountsTowardBuffer reports whether status changes on the record may move the buffer counter.
func (a Attendance) CountsTowardBuffer() bool {
	return !a.IsWeekendWork && !a.IsAdditionalEntry() && a.Flags.IsBufferUsed
}
