package holiday

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// FlatBonusMinutes is credited on top of the core minutes of any holiday session.
const FlatBonusMinutes = 9 * 60

// IsHoliday reports whether the date is on the active holiday calendar.
func IsHoliday(active settings.Settings, date workday.Date) bool {
	_, ok := active.HolidayOn(date)
	return ok
}

// Bonus is the core minutes from check-in up to the earlier of check-out and
// office end, floored at zero, plus the flat bonus.
func Bonus(officeEnd, checkIn, checkOut workday.TimeOfDay) int {
	in := int(checkIn)
	out := int(checkOut)
	if out < in {
		out += workday.MinutesPerDay
	}
	return max(0, min(out, int(officeEnd))-in) + FlatBonusMinutes
}

// Overlay sets or clears the holiday fields of a record. Weekend records never
// carry a holiday bonus.
func Overlay(a *attendance.Attendance, active settings.Settings) {
	a.IsHolidayWork = false
	a.HolidayBonusMinutes = 0

	if a.IsWeekendWork || a.Date.IsWeekend() || !a.HasTimes() || a.LeaveKind != nil {
		return
	}
	if !IsHoliday(active, a.Date) {
		return
	}
	a.IsHolidayWork = true
	a.HolidayBonusMinutes = Bonus(a.OfficeEnd, *a.CheckIn, *a.CheckOut)
}
