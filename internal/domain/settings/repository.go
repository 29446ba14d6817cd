package settings

import (
	"context"
	"time"
)

type SettingsRepository interface {
	// GetActive returns ErrNoActiveSettings when no version is active.
	GetActive(ctx context.Context) (Settings, error)

	// Create stores a new version and deactivates every other version.
	Create(ctx context.Context, s Settings) (Settings, error)

	// History lists versions newest first.
	History(ctx context.Context, limit int) ([]Settings, error)

	// SaveHolidays replaces the holiday calendar of the active version in place.
	SaveHolidays(ctx context.Context, settingsID string, holidays []Holiday) error

	UpdateLastFetchedDate(ctx context.Context, settingsID string, fetched time.Time) error
}
