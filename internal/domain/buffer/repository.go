package buffer

import "context"

type CounterRepository interface {
	// Get returns ErrCounterNotFound when no counter exists for the key.
	Get(ctx context.Context, key Key) (Counter, error)

	// Create inserts a zeroed counter, returning the existing one on conflict.
	Create(ctx context.Context, c Counter) (Counter, error)

	Update(ctx context.Context, c Counter) error

	// ListByUser lists counters newest month first.
	ListByUser(ctx context.Context, userID string, limit int) ([]Counter, error)

	ListByMonth(ctx context.Context, year int, month int) ([]Counter, error)
}
