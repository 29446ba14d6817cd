package settings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

type SettingsServiceImpl struct {
	settings.SettingsRepository
	now func() time.Time
}

// EnsureDefaults seeds the default policy when the store has no active version.
func (s *SettingsServiceImpl) EnsureDefaults(ctx context.Context) (settings.Settings, error) {
	active, err := s.SettingsRepository.GetActive(ctx)
	if err == nil {
		return active, nil
	}
	if !errors.Is(err, settings.ErrNoActiveSettings) {
		return settings.Settings{}, fmt.Errorf("failed to get active settings: %w", err)
	}

	defaults := settings.Defaults()
	defaults.EffectiveFrom = s.now().UTC()
	created, err := s.SettingsRepository.Create(ctx, defaults)
	if err != nil {
		return settings.Settings{}, fmt.Errorf("failed to seed default settings: %w", err)
	}
	slog.Info("Seeded default attendance settings", "version", created.Version)
	return created, nil
}

// GetActive implements settings.SettingsService.
func (s *SettingsServiceImpl) GetActive(ctx context.Context) (settings.Settings, error) {
	active, err := s.SettingsRepository.GetActive(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrNoActiveSettings) {
			return settings.Settings{}, err
		}
		return settings.Settings{}, fmt.Errorf("failed to get active settings: %w", err)
	}
	return active, nil
}

// Update implements settings.SettingsService. Every change is stored as a new version.
func (s *SettingsServiceImpl) Update(ctx context.Context, req settings.UpdateSettingsRequest) (settings.SettingsResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.SettingsResponse{}, err
	}

	active, err := s.GetActive(ctx)
	if err != nil {
		return settings.SettingsResponse{}, err
	}

	next := active
	next.ID = ""
	next.Version = active.Version + 1
	next.EffectiveFrom = s.now().UTC()
	next.Holidays = append([]settings.Holiday(nil), active.Holidays...)
	if req.ActorID != "" {
		actor := req.ActorID
		next.CreatedBy = &actor
	}

	if req.BufferMinutes != nil {
		next.BufferMinutes = *req.BufferMinutes
	}
	if req.ReducedBufferMinutes != nil {
		next.ReducedBufferMinutes = *req.ReducedBufferMinutes
	}
	if req.SafeZoneMinutes != nil {
		next.SafeZoneMinutes = *req.SafeZoneMinutes
	}
	if req.BufferAbuseLimit != nil {
		next.BufferAbuseLimit = *req.BufferAbuseLimit
	}
	if req.ForceDefaultHours != nil {
		next.ForceDefaultHours = *req.ForceDefaultHours
	}
	if req.DefaultStart != nil {
		next.DefaultStart, _ = workday.ParseTimeOfDay(*req.DefaultStart)
	}
	if req.DefaultEnd != nil {
		next.DefaultEnd, _ = workday.ParseTimeOfDay(*req.DefaultEnd)
	}
	if next.DefaultEnd <= next.DefaultStart {
		return settings.SettingsResponse{}, settings.ErrInvalidOfficeTime
	}

	created, err := s.SettingsRepository.Create(ctx, next)
	if err != nil {
		return settings.SettingsResponse{}, fmt.Errorf("failed to create settings version: %w", err)
	}

	slog.Info("Attendance settings updated",
		"version", created.Version,
		"buffer_minutes", created.BufferMinutes,
		"reduced_buffer_minutes", created.ReducedBufferMinutes,
		"safe_zone_minutes", created.SafeZoneMinutes,
		"buffer_abuse_limit", created.BufferAbuseLimit)

	return settings.ToResponse(created), nil
}

// History implements settings.SettingsService.
func (s *SettingsServiceImpl) History(ctx context.Context, limit int) ([]settings.SettingsResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	versions, err := s.SettingsRepository.History(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list settings history: %w", err)
	}
	out := make([]settings.SettingsResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, settings.ToResponse(v))
	}
	return out, nil
}

// MarkFetched implements settings.SettingsService.
func (s *SettingsServiceImpl) MarkFetched(ctx context.Context, fetched time.Time) error {
	active, err := s.GetActive(ctx)
	if err != nil {
		return err
	}
	if err := s.SettingsRepository.UpdateLastFetchedDate(ctx, active.ID, fetched); err != nil {
		return fmt.Errorf("failed to update last fetched date: %w", err)
	}
	return nil
}

func NewSettingsService(settingsRepo settings.SettingsRepository) settings.SettingsService {
	return &SettingsServiceImpl{
		SettingsRepository: settingsRepo,
		now:                time.Now,
	}
}
