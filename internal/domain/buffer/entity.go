package buffer

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

// Counter tracks buffer-zone usages for one user in one calendar month.
type Counter struct {
	ID           string
	UserID       string
	Year         int
	Month        time.Month
	UsageCount   int
	AbuseReached bool
	UsageDates   []workday.Date
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Key identifies a counter.
type Key struct {
	UserID string
	Year   int
	Month  time.Month
}

func KeyFor(userID string, d workday.Date) Key {
	return Key{UserID: userID, Year: d.Year, Month: d.Month}
}

func (c Counter) Key() Key {
	return Key{UserID: c.UserID, Year: c.Year, Month: c.Month}
}

func (c Counter) HasDate(d workday.Date) bool {
	for _, used := range c.UsageDates {
		if used == d {
			return true
		}
	}
	return false
}

// Transition is the change of the abuse flag caused by one mutation.
type Transition int

const (
	TransitionNone Transition = iota
	// TransitionAbuseReached is a false to true change of AbuseReached.
	TransitionAbuseReached
	// TransitionAbuseCleared is a true to false change of AbuseReached.
	TransitionAbuseCleared
)

func (t Transition) String() string {
	switch t {
	case TransitionAbuseReached:
		return "abuse_reached"
	case TransitionAbuseCleared:
		return "abuse_cleared"
	default:
		return "none"
	}
}

// Change is the result of an increment or decrement.
type Change struct {
	Counter    Counter
	Applied    bool
	Transition Transition
}

func TransitionBetween(before, after bool) Transition {
	switch {
	case !before && after:
		return TransitionAbuseReached
	case before && !after:
		return TransitionAbuseCleared
	default:
		return TransitionNone
	}
}
