package punch

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// Punch is one raw device event. Timestamp carries device wall-clock time in UTC fields.
type Punch struct {
	EmployeeID string
	Timestamp  time.Time
}

// Group is the set of punches attributed to one employee's work day.
type Group struct {
	EmployeeID string
	WorkDate   workday.Date
	Punches    []time.Time
}

// First is the earliest punch of the group.
func (g Group) First() time.Time {
	return g.Punches[0]
}

// Last is the latest punch of the group.
func (g Group) Last() time.Time {
	return g.Punches[len(g.Punches)-1]
}
