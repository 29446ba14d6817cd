package settings

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

const (
	DefaultBufferMinutes        = 30
	DefaultReducedBufferMinutes = 10
	DefaultSafeZoneMinutes      = 10
	DefaultBufferAbuseLimit     = 5
	DefaultOfficeStart          = "10:00"
	DefaultOfficeEnd            = "19:00"
)

// Settings is one version of the attendance policy. Exactly one version is active.
type Settings struct {
	ID                        string
	Version                   int
	BufferMinutes             int
	ReducedBufferMinutes      int
	SafeZoneMinutes           int
	BufferAbuseLimit          int
	DefaultStart              workday.TimeOfDay
	DefaultEnd                workday.TimeOfDay
	ForceDefaultHours         bool
	Holidays                  []Holiday
	LastAttendanceFetchedDate *time.Time
	IsActive                  bool
	EffectiveFrom             time.Time
	CreatedBy                 *string
	CreatedAt                 time.Time
	UpdatedAt                 time.Time
}

type Holiday struct {
	Date        workday.Date
	Name        string
	Description string
	AddedBy     *string
	AddedAt     time.Time
}

// Snapshot is the subset of policy values recorded on each outcome.
type Snapshot struct {
	BufferMinutes        int       `json:"buffer_minutes"`
	ReducedBufferMinutes int       `json:"reduced_buffer_minutes"`
	SafeZoneMinutes      int       `json:"safe_zone_minutes"`
	BufferAbuseLimit     int       `json:"buffer_abuse_limit"`
	Version              int       `json:"version"`
	EffectiveFrom        time.Time `json:"effective_from"`
}

// Defaults returns the policy used when the store holds no settings yet.
func Defaults() Settings {
	return Settings{
		Version:              1,
		BufferMinutes:        DefaultBufferMinutes,
		ReducedBufferMinutes: DefaultReducedBufferMinutes,
		SafeZoneMinutes:      DefaultSafeZoneMinutes,
		BufferAbuseLimit:     DefaultBufferAbuseLimit,
		DefaultStart:         workday.MustParseTimeOfDay(DefaultOfficeStart),
		DefaultEnd:           workday.MustParseTimeOfDay(DefaultOfficeEnd),
		IsActive:             true,
	}
}

func (s Settings) Snapshot() Snapshot {
	return Snapshot{
		BufferMinutes:        s.BufferMinutes,
		ReducedBufferMinutes: s.ReducedBufferMinutes,
		SafeZoneMinutes:      s.SafeZoneMinutes,
		BufferAbuseLimit:     s.BufferAbuseLimit,
		Version:              s.Version,
		EffectiveFrom:        s.EffectiveFrom,
	}
}

// HolidayOn returns the holiday declared for the date, if any.
func (s Settings) HolidayOn(d workday.Date) (Holiday, bool) {
	for _, h := range s.Holidays {
		if h.Date == d {
			return h, true
		}
	}
	return Holiday{}, false
}
