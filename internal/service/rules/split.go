package rules

import (
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// Segment is the part of a session stored as one record.
type Segment struct {
	Date             workday.Date
	CheckIn          workday.TimeOfDay
	CheckOut         workday.TimeOfDay
	TotalWorkMinutes int
	DeductionMinutes int
	ExtraMinutes     int
	Flags            attendance.Flags
	EntryNo          int
	IsWeekendWork    bool
	// IncrementsBuffer is only ever true on the segment of the work date.
	IncrementsBuffer bool
}

// Split turns an evaluation into one segment, or two when the session crosses midnight.
// The first segment keeps the whole deduction. The second runs from 00:00 and counts fully as extra.
// entryNo is the entry number of the first segment.
func Split(in Input, ev Evaluation, entryNo int) []Segment {
	if !ev.Overnight {
		return []Segment{{
			Date:             in.Date,
			CheckIn:          in.CheckIn,
			CheckOut:         in.CheckOut,
			TotalWorkMinutes: ev.TotalWorkMinutes,
			DeductionMinutes: ev.DeductionMinutes,
			ExtraMinutes:     ev.ExtraMinutes,
			Flags:            ev.Flags,
			EntryNo:          entryNo,
			IsWeekendWork:    ev.IsWeekendWork,
			IncrementsBuffer: ev.IncrementBuffer,
		}}
	}

	// Minutes up to midnight so both halves sum to the full span; the record still shows 23:59.
	firstTotal := workday.MinutesPerDay - int(in.CheckIn)
	first := Segment{
		Date:             in.Date,
		CheckIn:          in.CheckIn,
		CheckOut:         workday.LastMinute,
		TotalWorkMinutes: firstTotal,
		DeductionMinutes: ev.DeductionMinutes,
		Flags:            ev.Flags,
		EntryNo:          entryNo,
		IsWeekendWork:    ev.IsWeekendWork,
		IncrementsBuffer: ev.IncrementBuffer,
	}
	if ev.IsWeekendWork || ev.Flags.NoRulesApplied {
		first.ExtraMinutes = firstTotal
	} else {
		first.ExtraMinutes = max(0, int(workday.LastMinute)-int(in.OfficeEnd)) + ev.OperationsBonusMinutes
	}
	first.Flags.HasExtraHours = first.ExtraMinutes > 0

	nextDate := in.Date.AddDays(1)
	secondTotal := int(in.CheckOut)
	second := Segment{
		Date:             nextDate,
		CheckIn:          workday.Midnight,
		CheckOut:         in.CheckOut,
		TotalWorkMinutes: secondTotal,
		ExtraMinutes:     secondTotal,
		Flags: attendance.Flags{
			HasExtraHours:  secondTotal > 0,
			NoRulesApplied: ev.Flags.NoRulesApplied,
		},
		EntryNo:       min(entryNo+1, attendance.MaxEntriesPerDay),
		IsWeekendWork: nextDate.IsWeekend(),
	}
	return []Segment{first, second}
}
