// Package reconcile re-evaluates already stored outcomes of one user and month
// after the buffer abuse flag of that month changes.
package reconcile

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rules"
)

// earlyCheckoutMinutes is the early-leave part of a stored deduction.
func earlyCheckoutMinutes(a attendance.Attendance) int {
	if !a.Flags.IsEarlyCheckout || a.CheckOut == nil {
		return 0
	}
	return max(0, int(a.OfficeEnd)-int(*a.CheckOut))
}

// QualifiesForward reports whether a record benefited from the full buffer
// without consuming a credit of its own.
func QualifiesForward(a attendance.Attendance) bool {
	return a.ApprovalStatus == attendance.StatusPending &&
		!a.BufferIncrementedThisDay &&
		a.Flags.IsBufferUsed &&
		!a.IsWeekendWork &&
		!a.IsAdditionalEntry() &&
		a.HasTimes()
}

// ApplyReducedBuffer re-classifies a buffer-used record against the reduced
// window. It reports whether any field changed.
func ApplyReducedBuffer(a *attendance.Attendance, policy rules.Policy) bool {
	if !QualifiesForward(*a) {
		return false
	}
	checkIn := int(*a.CheckIn)
	start := int(a.OfficeStart)
	if checkIn <= int(a.OfficeStart.Add(policy.ReducedBufferMinutes)) {
		return false
	}

	before := *a
	a.Flags.IsLate = true
	a.Flags.HasDeduction = true
	a.Flags.IsBufferAbused = true
	a.DeductionMinutes = checkIn - start + earlyCheckoutMinutes(*a)
	a.ExtraMinutes = max(0, int(*a.CheckOut)-int(a.OfficeEnd))
	a.Flags.HasExtraHours = a.ExtraMinutes > 0

	return !sameOutcome(before, *a)
}

// RestoreFullBuffer clears the abuse mark of a record and, when its check-in
// falls inside the full buffer window, reverts it from late to buffer-used.
// It reports whether any field changed.
func RestoreFullBuffer(a *attendance.Attendance, policy rules.Policy) bool {
	if !a.Flags.IsBufferAbused {
		return false
	}
	before := *a
	a.Flags.IsBufferAbused = false

	if a.Flags.IsLate && a.HasTimes() {
		checkIn := *a.CheckIn
		safeZoneEnd := a.OfficeStart.Add(policy.SafeZoneMinutes)
		bufferEnd := a.OfficeStart.Add(policy.BufferMinutes)
		if checkIn > safeZoneEnd && checkIn <= bufferEnd {
			early := earlyCheckoutMinutes(*a)
			a.Flags.IsLate = false
			a.Flags.IsSafeZone = false
			a.Flags.IsBufferUsed = true
			a.DeductionMinutes = early
			a.Flags.HasDeduction = early > 0

			required := int(a.OfficeEnd) - int(a.OfficeStart)
			switch {
			case a.Flags.IsEarlyCheckout:
				a.ExtraMinutes = 0
			case a.TotalWorkMinutes > required:
				a.ExtraMinutes = a.TotalWorkMinutes - required
			default:
				a.ExtraMinutes = 0
			}
			a.Flags.HasExtraHours = a.ExtraMinutes > 0
		}
	}

	return !sameOutcome(before, *a)
}

func sameOutcome(a, b attendance.Attendance) bool {
	return a.Flags == b.Flags &&
		a.DeductionMinutes == b.DeductionMinutes &&
		a.ExtraMinutes == b.ExtraMinutes
}

// monthBounds returns the first and last date of the month containing d.
func monthBounds(d workday.Date) (workday.Date, workday.Date) {
	return d.FirstOfMonth(), d.LastOfMonth()
}
