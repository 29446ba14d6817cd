package buffer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

const defaultHistoryMonths = 6

type BufferServiceImpl struct {
	buffer.CounterRepository
	users           user.UserRepository
	settingsService settings.SettingsService

	mu    sync.Mutex
	locks map[buffer.Key]*sync.Mutex
}

// lock serializes read-modify-write cycles on one counter within the process.
func (b *BufferServiceImpl) lock(key buffer.Key) func() {
	b.mu.Lock()
	l, ok := b.locks[key]
	if !ok {
		l = &sync.Mutex{}
		b.locks[key] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func (b *BufferServiceImpl) getOrCreate(ctx context.Context, key buffer.Key) (buffer.Counter, bool, error) {
	counter, err := b.CounterRepository.Get(ctx, key)
	if err == nil {
		return counter, false, nil
	}
	if !errors.Is(err, buffer.ErrCounterNotFound) {
		return buffer.Counter{}, false, fmt.Errorf("failed to get buffer counter: %w", err)
	}

	counter, err = b.CounterRepository.Create(ctx, buffer.Counter{
		UserID: key.UserID,
		Year:   key.Year,
		Month:  key.Month,
	})
	if err != nil {
		return buffer.Counter{}, false, fmt.Errorf("failed to create buffer counter: %w", err)
	}
	return counter, true, nil
}

// Get implements buffer.BufferService.
func (b *BufferServiceImpl) Get(ctx context.Context, userID string, date workday.Date) (buffer.Counter, error) {
	if date.IsZero() {
		return buffer.Counter{}, buffer.ErrDateRequired
	}
	key := buffer.KeyFor(userID, date)
	defer b.lock(key)()

	counter, _, err := b.getOrCreate(ctx, key)
	return counter, err
}

// Increment implements buffer.BufferService.
func (b *BufferServiceImpl) Increment(ctx context.Context, userID string, date workday.Date) (buffer.Change, error) {
	if date.IsZero() {
		return buffer.Change{}, buffer.ErrDateRequired
	}
	active, err := b.settingsService.GetActive(ctx)
	if err != nil {
		return buffer.Change{}, err
	}

	key := buffer.KeyFor(userID, date)
	defer b.lock(key)()

	counter, _, err := b.getOrCreate(ctx, key)
	if err != nil {
		return buffer.Change{}, err
	}
	if counter.HasDate(date) {
		return buffer.Change{Counter: counter}, nil
	}

	before := counter.AbuseReached
	counter.UsageDates = append(counter.UsageDates, date)
	counter.UsageCount++
	counter.AbuseReached = counter.UsageCount >= active.BufferAbuseLimit

	if err := b.CounterRepository.Update(ctx, counter); err != nil {
		return buffer.Change{}, fmt.Errorf("failed to update buffer counter: %w", err)
	}

	change := buffer.Change{
		Counter:    counter,
		Applied:    true,
		Transition: buffer.TransitionBetween(before, counter.AbuseReached),
	}
	slog.Debug("Buffer counter incremented",
		"user_id", userID,
		"date", date.String(),
		"usage_count", counter.UsageCount,
		"transition", change.Transition.String())
	return change, nil
}

// Decrement implements buffer.BufferService.
func (b *BufferServiceImpl) Decrement(ctx context.Context, userID string, date workday.Date) (buffer.Change, error) {
	if date.IsZero() {
		return buffer.Change{}, buffer.ErrDateRequired
	}
	active, err := b.settingsService.GetActive(ctx)
	if err != nil {
		return buffer.Change{}, err
	}

	key := buffer.KeyFor(userID, date)
	defer b.lock(key)()

	counter, _, err := b.getOrCreate(ctx, key)
	if err != nil {
		return buffer.Change{}, err
	}
	if !counter.HasDate(date) {
		return buffer.Change{Counter: counter}, nil
	}

	before := counter.AbuseReached
	remaining := make([]workday.Date, 0, len(counter.UsageDates))
	for _, d := range counter.UsageDates {
		if d != date {
			remaining = append(remaining, d)
		}
	}
	counter.UsageDates = remaining
	counter.UsageCount = max(0, counter.UsageCount-1)
	counter.AbuseReached = counter.UsageCount >= active.BufferAbuseLimit

	if err := b.CounterRepository.Update(ctx, counter); err != nil {
		return buffer.Change{}, fmt.Errorf("failed to update buffer counter: %w", err)
	}

	change := buffer.Change{
		Counter:    counter,
		Applied:    true,
		Transition: buffer.TransitionBetween(before, counter.AbuseReached),
	}
	slog.Debug("Buffer counter decremented",
		"user_id", userID,
		"date", date.String(),
		"usage_count", counter.UsageCount,
		"transition", change.Transition.String())
	return change, nil
}

// History implements buffer.BufferService.
func (b *BufferServiceImpl) History(ctx context.Context, userID string, months int) ([]buffer.CounterResponse, error) {
	if months <= 0 {
		months = defaultHistoryMonths
	}
	if _, err := b.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	counters, err := b.CounterRepository.ListByUser(ctx, userID, months)
	if err != nil {
		return nil, fmt.Errorf("failed to list buffer history: %w", err)
	}

	out := make([]buffer.CounterResponse, 0, len(counters))
	for _, c := range counters {
		out = append(out, buffer.ToResponse(c))
	}
	return out, nil
}

// MonthlyReport implements buffer.BufferService.
func (b *BufferServiceImpl) MonthlyReport(ctx context.Context, req buffer.MonthlyReportRequest) (buffer.MonthlyReportResponse, error) {
	if err := req.Validate(); err != nil {
		return buffer.MonthlyReportResponse{}, err
	}

	counters, err := b.CounterRepository.ListByMonth(ctx, req.Year, req.Month)
	if err != nil {
		return buffer.MonthlyReportResponse{}, fmt.Errorf("failed to list buffer counters: %w", err)
	}

	sort.SliceStable(counters, func(i, j int) bool {
		return counters[i].UsageCount > counters[j].UsageCount
	})

	report := buffer.MonthlyReportResponse{
		Year:     req.Year,
		Month:    req.Month,
		Counters: make([]buffer.CounterResponse, 0, len(counters)),
	}
	for _, c := range counters {
		resp := buffer.ToResponse(c)
		if u, err := b.users.GetByID(ctx, c.UserID); err == nil {
			resp.UserName = u.Name
		}
		if c.AbuseReached {
			report.AbuseCount++
		}
		report.TotalUsages += c.UsageCount
		report.Counters = append(report.Counters, resp)
	}
	return report, nil
}

// EnsureMonth implements buffer.BufferService.
func (b *BufferServiceImpl) EnsureMonth(ctx context.Context, userIDs []string, date workday.Date) (int, error) {
	if date.IsZero() {
		return 0, buffer.ErrDateRequired
	}

	created := 0
	for _, userID := range userIDs {
		key := buffer.KeyFor(userID, date)
		unlock := b.lock(key)
		_, isNew, err := b.getOrCreate(ctx, key)
		unlock()
		if err != nil {
			slog.Error("Failed to ensure buffer counter", "user_id", userID, "error", err)
			continue
		}
		if isNew {
			created++
		}
	}
	return created, nil
}

func NewBufferService(counterRepo buffer.CounterRepository, userRepo user.UserRepository, settingsService settings.SettingsService) buffer.BufferService {
	return &BufferServiceImpl{
		CounterRepository: counterRepo,
		users:             userRepo,
		settingsService:   settingsService,
		locks:             make(map[buffer.Key]*sync.Mutex),
	}
}
