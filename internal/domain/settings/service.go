package settings

import (
	"context"
	"time"
)

type SettingsService interface {
	// GetActive returns ErrNoActiveSettings when no version is active.
	GetActive(ctx context.Context) (Settings, error)
	// EnsureDefaults seeds the default policy when no version is active.
	EnsureDefaults(ctx context.Context) (Settings, error)
	Update(ctx context.Context, req UpdateSettingsRequest) (SettingsResponse, error)
	History(ctx context.Context, limit int) ([]SettingsResponse, error)
	MarkFetched(ctx context.Context, fetched time.Time) error
}

type HolidayService interface {
	List(ctx context.Context) ([]HolidayResponse, error)
	Add(ctx context.Context, req HolidayRequest) (HolidayChangeResponse, error)
	Remove(ctx context.Context, date string) (HolidayChangeResponse, error)
	Rename(ctx context.Context, req RenameHolidayRequest) (HolidayResponse, error)
}
