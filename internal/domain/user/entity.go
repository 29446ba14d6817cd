package user

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/shopspring/decimal"
)

// OperationsTeam earns early-arrival credit before office start.
const OperationsTeam = "Operations"

type User struct {
	ID               string
	Name             string
	BiometricID      string
	TeamID           string
	OfficeStart      *workday.TimeOfDay
	OfficeEnd        *workday.TimeOfDay
	PayoutMultiplier decimal.Decimal
	IsActive         bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Team struct {
	ID   string
	Name string
}

// OfficeHours resolves the user's office window against the policy defaults.
func (u User) OfficeHours(defaultStart, defaultEnd workday.TimeOfDay, forceDefault bool) (workday.TimeOfDay, workday.TimeOfDay) {
	if forceDefault {
		return defaultStart, defaultEnd
	}
	start, end := defaultStart, defaultEnd
	if u.OfficeStart != nil {
		start = *u.OfficeStart
	}
	if u.OfficeEnd != nil {
		end = *u.OfficeEnd
	}
	return start, end
}

// Multiplier returns the user's payout multiplier, defaulting to one.
func (u User) Multiplier() decimal.Decimal {
	if u.PayoutMultiplier.IsZero() {
		return decimal.NewFromInt(1)
	}
	return u.PayoutMultiplier
}
