package buffer

import (
	"context"
	"sync"
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	settingsService "github.com/cmlabs-hris/attendance-engine/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBufferService(t *testing.T) (buffer.BufferService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	settingsSvc := settingsService.NewSettingsService(memory.NewSettingsRepository(store))
	_, err := settingsSvc.EnsureDefaults(context.Background())
	require.NoError(t, err)
	return NewBufferService(memory.NewCounterRepository(store), memory.NewUserRepository(store), settingsSvc), store
}

func march(day int) workday.Date {
	return workday.NewDate(2024, 3, day)
}

// ===== INCREMENT TESTS =====

func TestBufferService_Increment_IsIdempotentPerDate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	first, err := svc.Increment(ctx, "u1", march(4))
	require.NoError(t, err)
	assert.True(t, first.Applied)
	assert.Equal(t, 1, first.Counter.UsageCount)

	again, err := svc.Increment(ctx, "u1", march(4))
	require.NoError(t, err)
	assert.False(t, again.Applied)
	assert.Equal(t, 1, again.Counter.UsageCount)
	assert.Equal(t, []workday.Date{march(4)}, again.Counter.UsageDates)
}

func TestBufferService_Increment_ReachesAbuseAtLimit(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	var last buffer.Change
	for day := 4; day <= 8; day++ {
		change, err := svc.Increment(ctx, "u1", march(day))
		require.NoError(t, err)
		if day < 8 {
			assert.Equal(t, buffer.TransitionNone, change.Transition, "day %d", day)
			assert.False(t, change.Counter.AbuseReached)
		}
		last = change
	}

	assert.Equal(t, 5, last.Counter.UsageCount)
	assert.True(t, last.Counter.AbuseReached)
	assert.Equal(t, buffer.TransitionAbuseReached, last.Transition)
}

func TestBufferService_Increment_SeparateMonths(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	_, err := svc.Increment(ctx, "u1", march(29))
	require.NoError(t, err)
	april, err := svc.Increment(ctx, "u1", workday.NewDate(2024, 4, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, april.Counter.UsageCount)
	assert.Equal(t, 4, int(april.Counter.Month))
}

func TestBufferService_Increment_RequiresDate(t *testing.T) {
	svc, _ := newTestBufferService(t)
	_, err := svc.Increment(context.Background(), "u1", workday.Date{})
	assert.ErrorIs(t, err, buffer.ErrDateRequired)
}

func TestBufferService_Increment_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	var wg sync.WaitGroup
	for day := 1; day <= 10; day++ {
		wg.Add(2)
		for range 2 {
			go func() {
				defer wg.Done()
				_, err := svc.Increment(ctx, "u1", march(day))
				assert.NoError(t, err)
			}()
		}
	}
	wg.Wait()

	counter, err := svc.Get(ctx, "u1", march(1))
	require.NoError(t, err)
	assert.Equal(t, 10, counter.UsageCount)
	assert.Len(t, counter.UsageDates, 10)
}

// ===== DECREMENT TESTS =====

func TestBufferService_Decrement_ClearsAbuse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	for day := 4; day <= 8; day++ {
		_, err := svc.Increment(ctx, "u1", march(day))
		require.NoError(t, err)
	}

	change, err := svc.Decrement(ctx, "u1", march(6))
	require.NoError(t, err)
	assert.True(t, change.Applied)
	assert.Equal(t, 4, change.Counter.UsageCount)
	assert.False(t, change.Counter.AbuseReached)
	assert.Equal(t, buffer.TransitionAbuseCleared, change.Transition)
	assert.NotContains(t, change.Counter.UsageDates, march(6))
}

func TestBufferService_Decrement_UnusedDateIsNoop(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	_, err := svc.Increment(ctx, "u1", march(4))
	require.NoError(t, err)

	change, err := svc.Decrement(ctx, "u1", march(5))
	require.NoError(t, err)
	assert.False(t, change.Applied)
	assert.Equal(t, 1, change.Counter.UsageCount)
}

// ===== HISTORY AND REPORT TESTS =====

func TestBufferService_History(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestBufferService(t)
	u := store.AddUser(user.User{Name: "Budi", BiometricID: "101", IsActive: true})

	for _, date := range []workday.Date{workday.NewDate(2024, 1, 10), workday.NewDate(2024, 2, 12), march(4)} {
		_, err := svc.Increment(ctx, u.ID, date)
		require.NoError(t, err)
	}

	history, err := svc.History(ctx, u.ID, 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 3, history[0].Month)
	assert.Equal(t, 2, history[1].Month)

	_, err = svc.History(ctx, "missing", 0)
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}

func TestBufferService_MonthlyReport(t *testing.T) {
	ctx := context.Background()
	svc, store := newTestBufferService(t)
	heavy := store.AddUser(user.User{Name: "Budi", BiometricID: "101", IsActive: true})
	light := store.AddUser(user.User{Name: "Sari", BiometricID: "102", IsActive: true})

	for day := 4; day <= 8; day++ {
		_, err := svc.Increment(ctx, heavy.ID, march(day))
		require.NoError(t, err)
	}
	_, err := svc.Increment(ctx, light.ID, march(4))
	require.NoError(t, err)

	report, err := svc.MonthlyReport(ctx, buffer.MonthlyReportRequest{Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, 6, report.TotalUsages)
	assert.Equal(t, 1, report.AbuseCount)
	require.Len(t, report.Counters, 2)
	assert.Equal(t, "Budi", report.Counters[0].UserName)
	assert.Equal(t, 5, report.Counters[0].UsageCount)

	_, err = svc.MonthlyReport(ctx, buffer.MonthlyReportRequest{Year: 2024, Month: 13})
	var validationErrs validator.ValidationErrors
	assert.ErrorAs(t, err, &validationErrs)
}

// ===== ENSURE MONTH TESTS =====

func TestBufferService_EnsureMonth(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestBufferService(t)

	_, err := svc.Increment(ctx, "u1", march(4))
	require.NoError(t, err)

	created, err := svc.EnsureMonth(ctx, []string{"u1", "u2", "u3"}, march(1))
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	counter, err := svc.Get(ctx, "u1", march(1))
	require.NoError(t, err)
	assert.Equal(t, 1, counter.UsageCount)

	created, err = svc.EnsureMonth(ctx, []string{"u1", "u2", "u3"}, march(1))
	require.NoError(t, err)
	assert.Equal(t, 0, created)
}
