package settings

import (
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
)

type UpdateSettingsRequest struct {
	BufferMinutes        *int    `json:"buffer_minutes,omitempty"`
	ReducedBufferMinutes *int    `json:"reduced_buffer_minutes,omitempty"`
	SafeZoneMinutes      *int    `json:"safe_zone_minutes,omitempty"`
	BufferAbuseLimit     *int    `json:"buffer_abuse_limit,omitempty"`
	DefaultStart         *string `json:"default_start_time,omitempty"`
	DefaultEnd           *string `json:"default_end_time,omitempty"`
	ForceDefaultHours    *bool   `json:"force_default_hours,omitempty"`
	ActorID              string  `json:"-"`
}

func (r *UpdateSettingsRequest) Validate() error {
	var errs validator.ValidationErrors

	nonNegative := func(field string, v *int) {
		if v != nil && *v < 0 {
			errs = append(errs, validator.ValidationError{Field: field, Message: field + " must not be negative"})
		}
	}
	nonNegative("buffer_minutes", r.BufferMinutes)
	nonNegative("reduced_buffer_minutes", r.ReducedBufferMinutes)
	nonNegative("safe_zone_minutes", r.SafeZoneMinutes)

	if r.BufferAbuseLimit != nil && *r.BufferAbuseLimit < 1 {
		errs = append(errs, validator.ValidationError{Field: "buffer_abuse_limit", Message: "buffer_abuse_limit must be at least 1"})
	}
	if r.DefaultStart != nil && !validator.IsValidTimeOfDay(*r.DefaultStart) {
		errs = append(errs, validator.ValidationError{Field: "default_start_time", Message: "default_start_time must be HH:mm"})
	}
	if r.DefaultEnd != nil && !validator.IsValidTimeOfDay(*r.DefaultEnd) {
		errs = append(errs, validator.ValidationError{Field: "default_end_time", Message: "default_end_time must be HH:mm"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type SettingsResponse struct {
	ID                        string            `json:"id"`
	Version                   int               `json:"version"`
	BufferMinutes             int               `json:"buffer_minutes"`
	ReducedBufferMinutes      int               `json:"reduced_buffer_minutes"`
	SafeZoneMinutes           int               `json:"safe_zone_minutes"`
	BufferAbuseLimit          int               `json:"buffer_abuse_limit"`
	DefaultStart              string            `json:"default_start_time"`
	DefaultEnd                string            `json:"default_end_time"`
	ForceDefaultHours         bool              `json:"force_default_hours"`
	Holidays                  []HolidayResponse `json:"holidays"`
	LastAttendanceFetchedDate *time.Time        `json:"last_attendance_fetched_date,omitempty"`
	IsActive                  bool              `json:"is_active"`
	EffectiveFrom             time.Time         `json:"effective_from"`
}

type HolidayRequest struct {
	Date        string `json:"date"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ActorID     string `json:"-"`
}

func (r *HolidayRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type RenameHolidayRequest struct {
	Date        string `json:"-"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (r *RenameHolidayRequest) Validate() error {
	var errs validator.ValidationErrors
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be YYYY-MM-DD"})
	}
	if validator.IsEmpty(r.Name) {
		errs = append(errs, validator.ValidationError{Field: "name", Message: "name is required"})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

type HolidayResponse struct {
	Date        string    `json:"date"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	AddedBy     *string   `json:"added_by,omitempty"`
	AddedAt     time.Time `json:"added_at"`
}

// HolidayChangeResponse reports how many outcomes a holiday change touched.
type HolidayChangeResponse struct {
	Holiday         HolidayResponse `json:"holiday"`
	RecordsAffected int             `json:"records_affected"`
}

func ToResponse(s Settings) SettingsResponse {
	resp := SettingsResponse{
		ID:                        s.ID,
		Version:                   s.Version,
		BufferMinutes:             s.BufferMinutes,
		ReducedBufferMinutes:      s.ReducedBufferMinutes,
		SafeZoneMinutes:           s.SafeZoneMinutes,
		BufferAbuseLimit:          s.BufferAbuseLimit,
		DefaultStart:              s.DefaultStart.String(),
		DefaultEnd:                s.DefaultEnd.String(),
		ForceDefaultHours:         s.ForceDefaultHours,
		Holidays:                  make([]HolidayResponse, 0, len(s.Holidays)),
		LastAttendanceFetchedDate: s.LastAttendanceFetchedDate,
		IsActive:                  s.IsActive,
		EffectiveFrom:             s.EffectiveFrom,
	}
	for _, h := range s.Holidays {
		resp.Holidays = append(resp.Holidays, HolidayToResponse(h))
	}
	return resp
}

func HolidayToResponse(h Holiday) HolidayResponse {
	return HolidayResponse{
		Date:        h.Date.String(),
		Name:        h.Name,
		Description: h.Description,
		AddedBy:     h.AddedBy,
		AddedAt:     h.AddedAt,
	}
}
