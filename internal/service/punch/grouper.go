// Package punch turns raw device punches into per-employee work-day sessions.
package punch

import (
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// DayRolloverHour is the hour before which a punch belongs to the previous work day.
const DayRolloverHour = 6

type groupKey struct {
	employeeID string
	date       workday.Date
}

// WorkDateOf resolves the work day a punch belongs to.
func WorkDateOf(ts time.Time) workday.Date {
	d := workday.FromTime(ts)
	if ts.Hour() < DayRolloverHour {
		return d.AddDays(-1)
	}
	return d
}

// Group buckets punches by employee and work date. Groups with fewer than two
// punches are dropped. The result is ordered by employee, then date, and the
// punches within a group are sorted ascending.
func Group(punches []punch.Punch) []punch.Group {
	buckets := make(map[groupKey][]time.Time)
	for _, p := range punches {
		if p.EmployeeID == "" || p.Timestamp.IsZero() {
			continue
		}
		k := groupKey{employeeID: p.EmployeeID, date: WorkDateOf(p.Timestamp)}
		buckets[k] = append(buckets[k], p.Timestamp)
	}

	groups := make([]punch.Group, 0, len(buckets))
	for k, times := range buckets {
		if len(times) < 2 {
			continue
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
		groups = append(groups, punch.Group{
			EmployeeID: k.employeeID,
			WorkDate:   k.date,
			Punches:    times,
		})
	}

	sort.Slice(groups, func(i, j int) bool {
		if groups[i].EmployeeID != groups[j].EmployeeID {
			return groups[i].EmployeeID < groups[j].EmployeeID
		}
		return groups[i].WorkDate.Before(groups[j].WorkDate)
	})
	return groups
}

// ByEmployee splits ordered groups per employee, keeping date order.
func ByEmployee(groups []punch.Group) map[string][]punch.Group {
	out := make(map[string][]punch.Group)
	for _, g := range groups {
		out[g.EmployeeID] = append(out[g.EmployeeID], g)
	}
	return out
}
