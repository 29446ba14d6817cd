// Package rules evaluates a single work session against the attendance policy.
// It performs no I/O; buffer mutation and persistence are left to the caller.
package rules

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// Arrival classifies check-in relative to office start.
type Arrival int

const (
	ArrivalNone Arrival = iota
	ArrivalSafeZone
	ArrivalBufferUsed
	ArrivalLate
)

func (a Arrival) String() string {
	switch a {
	case ArrivalSafeZone:
		return "safe_zone"
	case ArrivalBufferUsed:
		return "buffer_used"
	case ArrivalLate:
		return "late"
	default:
		return "none"
	}
}

type Policy struct {
	BufferMinutes        int
	ReducedBufferMinutes int
	SafeZoneMinutes      int
}

// Session is a check-in/check-out pair on a work date. A check-out earlier than
// the check-in falls on the next calendar day.
type Session struct {
	Date     workday.Date
	CheckIn  workday.TimeOfDay
	CheckOut workday.TimeOfDay
}

func (s Session) Overnight() bool {
	return s.CheckOut < s.CheckIn
}

// checkOutMinutes is the check-out offset from midnight of the work date.
func (s Session) checkOutMinutes() int {
	if s.Overnight() {
		return int(s.CheckOut) + workday.MinutesPerDay
	}
	return int(s.CheckOut)
}

// Span is the worked duration in minutes.
func (s Session) Span() int {
	return s.checkOutMinutes() - int(s.CheckIn)
}

type Input struct {
	Session
	OfficeStart   workday.TimeOfDay
	OfficeEnd     workday.TimeOfDay
	Policy        Policy
	BufferAbused  bool
	IsWeekendWork bool
	ApplyRules    bool
	TeamName      string
}

// Evaluation is the outcome of the whole session before any overnight split.
type Evaluation struct {
	Arrival          Arrival
	Flags            attendance.Flags
	TotalWorkMinutes int
	DeductionMinutes int
	ExtraMinutes     int

	EarlyCheckoutMinutes   int
	OperationsBonusMinutes int

	IncrementBuffer bool
	IsWeekendWork   bool
	Overnight       bool
}

// Classify places a check-in into the safe zone, the buffer window, or late.
func Classify(checkIn, officeStart workday.TimeOfDay, policy Policy, abused bool) Arrival {
	window := policy.BufferMinutes
	if abused {
		window = policy.ReducedBufferMinutes
	}
	switch {
	case checkIn > officeStart.Add(window):
		return ArrivalLate
	case checkIn > officeStart.Add(policy.SafeZoneMinutes):
		return ArrivalBufferUsed
	default:
		return ArrivalSafeZone
	}
}

// Evaluate applies the policy to one session.
func Evaluate(in Input) Evaluation {
	ev := Evaluation{
		TotalWorkMinutes: in.Span(),
		IsWeekendWork:    in.IsWeekendWork,
		Overnight:        in.Overnight(),
	}

	if in.IsWeekendWork {
		ev.ExtraMinutes = ev.TotalWorkMinutes
		ev.Flags.HasExtraHours = ev.ExtraMinutes > 0
		return ev
	}

	if !in.ApplyRules {
		ev.ExtraMinutes = ev.TotalWorkMinutes
		ev.Flags.HasExtraHours = ev.ExtraMinutes > 0
		ev.Flags.NoRulesApplied = true
		return ev
	}

	checkIn := int(in.CheckIn)
	checkOut := in.checkOutMinutes()
	start := int(in.OfficeStart)
	end := int(in.OfficeEnd)

	ev.Flags.IsBufferAbused = in.BufferAbused
	ev.Arrival = Classify(in.CheckIn, in.OfficeStart, in.Policy, in.BufferAbused)

	switch ev.Arrival {
	case ArrivalLate:
		ev.Flags.IsLate = true
		ev.Flags.HasDeduction = true
		ev.DeductionMinutes = checkIn - start
	case ArrivalBufferUsed:
		ev.Flags.IsBufferUsed = true
	default:
		ev.Flags.IsSafeZone = true
	}

	// An overnight check-out is always past office end.
	if checkOut < end {
		ev.EarlyCheckoutMinutes = end - checkOut
		ev.Flags.IsEarlyCheckout = true
		ev.Flags.HasDeduction = true
		ev.DeductionMinutes += ev.EarlyCheckoutMinutes
		// A short day loses the buffer forgiveness.
		if ev.Arrival == ArrivalBufferUsed {
			ev.DeductionMinutes += checkIn - start
		}
	}

	switch ev.Arrival {
	case ArrivalBufferUsed:
		required := end - start
		switch {
		case ev.TotalWorkMinutes > required:
			ev.ExtraMinutes = ev.TotalWorkMinutes - required
		case ev.TotalWorkMinutes == required:
			// Exactly the required hours neither earns extra nor consumes a buffer credit.
		case !ev.Flags.IsEarlyCheckout:
			ev.IncrementBuffer = true
		}
	default:
		ev.ExtraMinutes = max(0, checkOut-end)
	}

	if in.TeamName == user.OperationsTeam && checkIn < start {
		ev.OperationsBonusMinutes = start - checkIn
		ev.ExtraMinutes += ev.OperationsBonusMinutes
	}

	ev.Flags.HasExtraHours = ev.ExtraMinutes > 0
	return ev
}
