package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
)

type settingsRepository struct {
	store *Store
}

func NewSettingsRepository(store *Store) settings.SettingsRepository {
	return &settingsRepository{store: store}
}

// GetActive implements settings.SettingsRepository.
func (r *settingsRepository) GetActive(ctx context.Context) (settings.Settings, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, st := range r.store.settings {
		if st.IsActive {
			return cloneSettings(st), nil
		}
	}
	return settings.Settings{}, settings.ErrNoActiveSettings
}

// Create implements settings.SettingsRepository.
func (r *settingsRepository) Create(ctx context.Context, st settings.Settings) (settings.Settings, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	latest := 0
	for id, existing := range r.store.settings {
		latest = max(latest, existing.Version)
		if existing.IsActive {
			existing.IsActive = false
			r.store.settings[id] = existing
		}
	}
	if st.Version <= latest {
		st.Version = latest + 1
	}

	now := r.store.now().UTC()
	st.ID = newID()
	st.IsActive = true
	st.CreatedAt = now
	st.UpdatedAt = now
	if st.EffectiveFrom.IsZero() {
		st.EffectiveFrom = now
	}
	r.store.settings[st.ID] = cloneSettings(st)
	return st, nil
}

// History implements settings.SettingsRepository.
func (r *settingsRepository) History(ctx context.Context, limit int) ([]settings.Settings, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]settings.Settings, 0, len(r.store.settings))
	for _, st := range r.store.settings {
		out = append(out, cloneSettings(st))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// SaveHolidays implements settings.SettingsRepository.
func (r *settingsRepository) SaveHolidays(ctx context.Context, settingsID string, holidays []settings.Holiday) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	st, ok := r.store.settings[settingsID]
	if !ok {
		return settings.ErrSettingsNotFound
	}
	st.Holidays = slices.Clone(holidays)
	st.UpdatedAt = r.store.now().UTC()
	r.store.settings[settingsID] = st
	return nil
}

// UpdateLastFetchedDate implements settings.SettingsRepository.
func (r *settingsRepository) UpdateLastFetchedDate(ctx context.Context, settingsID string, fetched time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	st, ok := r.store.settings[settingsID]
	if !ok {
		return settings.ErrSettingsNotFound
	}
	st.LastAttendanceFetchedDate = &fetched
	st.UpdatedAt = r.store.now().UTC()
	r.store.settings[settingsID] = st
	return nil
}
