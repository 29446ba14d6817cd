package punch

import (
	"context"
	"time"
)

// Source fetches raw punches in [start, end]. Failures wrap ErrUpstreamFetch.
type Source interface {
	Fetch(ctx context.Context, start, end time.Time) ([]Punch, error)
}
