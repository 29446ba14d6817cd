package memory

import (
	"context"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
)

type counterRepository struct {
	store *Store
}

func NewCounterRepository(store *Store) buffer.CounterRepository {
	return &counterRepository{store: store}
}

// Get implements buffer.CounterRepository.
func (r *counterRepository) Get(ctx context.Context, key buffer.Key) (buffer.Counter, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.counters[key]
	if !ok {
		return buffer.Counter{}, buffer.ErrCounterNotFound
	}
	return cloneCounter(c), nil
}

// Create implements buffer.CounterRepository.
func (r *counterRepository) Create(ctx context.Context, c buffer.Counter) (buffer.Counter, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if existing, ok := r.store.counters[c.Key()]; ok {
		return cloneCounter(existing), nil
	}
	now := r.store.now().UTC()
	c.ID = newID()
	c.CreatedAt = now
	c.UpdatedAt = now
	r.store.counters[c.Key()] = cloneCounter(c)
	return c, nil
}

// Update implements buffer.CounterRepository.
func (r *counterRepository) Update(ctx context.Context, c buffer.Counter) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.counters[c.Key()]
	if !ok {
		return buffer.ErrCounterNotFound
	}
	c.ID = existing.ID
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = r.store.now().UTC()
	r.store.counters[c.Key()] = cloneCounter(c)
	return nil
}

// ListByUser implements buffer.CounterRepository.
func (r *counterRepository) ListByUser(ctx context.Context, userID string, limit int) ([]buffer.Counter, error) {
	out := r.collect(func(c buffer.Counter) bool { return c.UserID == userID })
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ListByMonth implements buffer.CounterRepository.
func (r *counterRepository) ListByMonth(ctx context.Context, year int, month int) ([]buffer.Counter, error) {
	out := r.collect(func(c buffer.Counter) bool {
		return c.Year == year && c.Month == time.Month(month)
	})
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (r *counterRepository) collect(match func(buffer.Counter) bool) []buffer.Counter {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]buffer.Counter, 0)
	for _, c := range r.store.counters {
		if match(c) {
			out = append(out, cloneCounter(c))
		}
	}
	return out
}
