// Package memory keeps every repository in process memory. It backs the
// service tests and the DB-less development mode.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/google/uuid"
)

type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex

	attendances map[string]attendance.Attendance
	counters    map[buffer.Key]buffer.Counter
	settings    map[string]settings.Settings
	users       map[string]user.User
	teams       map[string]user.Team

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		attendances: make(map[string]attendance.Attendance),
		counters:    make(map[buffer.Key]buffer.Counter),
		settings:    make(map[string]settings.Settings),
		users:       make(map[string]user.User),
		teams:       make(map[string]user.Team),
		now:         time.Now,
	}
}

func newID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// AddTeam registers a team, assigning an id when empty.
func (s *Store) AddTeam(t user.Team) user.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = newID()
	}
	s.teams[t.ID] = t
	return t
}

// AddUser registers a user, assigning an id when empty.
func (s *Store) AddUser(u user.User) user.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u.ID == "" {
		u.ID = newID()
	}
	now := s.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	s.users[u.ID] = u
	return u
}

type snapshot struct {
	attendances map[string]attendance.Attendance
	counters    map[buffer.Key]buffer.Counter
	settings    map[string]settings.Settings
}

func (s *Store) snapshot() snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		attendances: make(map[string]attendance.Attendance, len(s.attendances)),
		counters:    make(map[buffer.Key]buffer.Counter, len(s.counters)),
		settings:    make(map[string]settings.Settings, len(s.settings)),
	}
	for k, v := range s.attendances {
		snap.attendances[k] = cloneAttendance(v)
	}
	for k, v := range s.counters {
		snap.counters[k] = cloneCounter(v)
	}
	for k, v := range s.settings {
		snap.settings[k] = cloneSettings(v)
	}
	return snap
}

func (s *Store) restore(snap snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attendances = snap.attendances
	s.counters = snap.counters
	s.settings = snap.settings
}

type txKey struct{}

// Transactor serializes transactions and rolls the store back to its state
// at begin when fn fails. Nested calls join the outer transaction.
type Transactor struct {
	store *Store
}

func NewTransactor(store *Store) *Transactor {
	return &Transactor{store: store}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(bool); ok {
		return fn(ctx)
	}

	t.store.txMu.Lock()
	defer t.store.txMu.Unlock()

	snap := t.store.snapshot()
	defer func() {
		if p := recover(); p != nil {
			t.store.restore(snap)
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		t.store.restore(snap)
		return err
	}
	return nil
}

func cloneAttendance(a attendance.Attendance) attendance.Attendance {
	a.AdjustmentHistory = slices.Clone(a.AdjustmentHistory)
	return a
}

func cloneCounter(c buffer.Counter) buffer.Counter {
	c.UsageDates = slices.Clone(c.UsageDates)
	return c
}

func cloneSettings(st settings.Settings) settings.Settings {
	st.Holidays = slices.Clone(st.Holidays)
	return st
}

// values returns the map values in unspecified order.
func values[K comparable, V any](m map[K]V) []V {
	return slices.Collect(maps.Values(m))
}
