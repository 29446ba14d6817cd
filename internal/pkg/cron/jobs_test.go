package cron

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	bufferService "github.com/cmlabs-hris/attendance-engine/internal/service/buffer"
	settingsService "github.com/cmlabs-hris/attendance-engine/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAutomation struct {
	runs int32
	err  error
}

func (f *fakeAutomation) Run(ctx context.Context, req automation.RunRequest) (automation.RunResult, error) {
	atomic.AddInt32(&f.runs, 1)
	return automation.RunResult{Processed: 2, Saved: 2}, f.err
}

func (f *fakeAutomation) State() automation.StateResponse {
	return automation.StateResponse{}
}

func newTestJobs(t *testing.T, auto automation.AutomationService) (*AttendanceJobs, *memory.Store, buffer.CounterRepository) {
	t.Helper()
	store := memory.NewStore()
	counters := memory.NewCounterRepository(store)
	settingsSvc := settingsService.NewSettingsService(memory.NewSettingsRepository(store))
	_, err := settingsSvc.EnsureDefaults(context.Background())
	require.NoError(t, err)

	jobs := NewAttendanceJobs(
		auto,
		bufferService.NewBufferService(counters, memory.NewUserRepository(store), settingsSvc),
		memory.NewUserRepository(store),
		time.UTC,
	)
	return jobs, store, counters
}

// ===== MONTHLY BUFFER TESTS =====

func TestAttendanceJobs_EnsureMonthlyBuffers(t *testing.T) {
	ctx := context.Background()
	jobs, store, counters := newTestJobs(t, &fakeAutomation{})
	jobs.now = func() time.Time { return time.Date(2024, 3, 1, 0, 30, 0, 0, time.UTC) }

	active := store.AddUser(user.User{Name: "Budi", BiometricID: "101", IsActive: true})
	inactive := store.AddUser(user.User{Name: "Sari", BiometricID: "102", IsActive: false})

	require.NoError(t, jobs.EnsureMonthlyBuffers(ctx))
	require.NoError(t, jobs.EnsureMonthlyBuffers(ctx))

	counter, err := counters.Get(ctx, buffer.Key{UserID: active.ID, Year: 2024, Month: 3})
	require.NoError(t, err)
	assert.Equal(t, 0, counter.UsageCount)

	_, err = counters.Get(ctx, buffer.Key{UserID: inactive.ID, Year: 2024, Month: 3})
	assert.ErrorIs(t, err, buffer.ErrCounterNotFound)
}

func TestAttendanceJobs_EnsureMonthlyBuffers_NoUsers(t *testing.T) {
	jobs, _, _ := newTestJobs(t, &fakeAutomation{})
	assert.NoError(t, jobs.EnsureMonthlyBuffers(context.Background()))
}

// ===== AUTOMATION TESTS =====

func TestAttendanceJobs_FetchBiometricAttendance(t *testing.T) {
	auto := &fakeAutomation{}
	jobs, _, _ := newTestJobs(t, auto)

	assert.NoError(t, jobs.FetchBiometricAttendance(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&auto.runs))
}

func TestAttendanceJobs_FetchBiometricAttendance_AlreadyRunning(t *testing.T) {
	jobs, _, _ := newTestJobs(t, &fakeAutomation{err: automation.ErrAlreadyRunning})
	assert.NoError(t, jobs.FetchBiometricAttendance(context.Background()))
}

func TestAttendanceJobs_FetchBiometricAttendance_Failure(t *testing.T) {
	boom := errors.New("device unreachable")
	jobs, _, _ := newTestJobs(t, &fakeAutomation{err: boom})
	assert.ErrorIs(t, jobs.FetchBiometricAttendance(context.Background()), boom)
}

// ===== SCHEDULER TESTS =====

func TestScheduler_RunOnce(t *testing.T) {
	auto := &fakeAutomation{}
	jobs, _, _ := newTestJobs(t, auto)

	scheduler := NewScheduler()
	jobs.RegisterJobs(scheduler, time.Hour)
	scheduler.RunOnce(context.Background())

	assert.Equal(t, int32(1), atomic.LoadInt32(&auto.runs))
}

func TestScheduler_StartStop(t *testing.T) {
	var calls int32
	scheduler := NewScheduler()
	scheduler.AddJob(Job{
		Name:       "tick",
		Interval:   10 * time.Millisecond,
		RunOnStart: true,
		Fn: func(ctx context.Context) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})

	scheduler.Start(context.Background())
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) >= 2 }, time.Second, 5*time.Millisecond)
	scheduler.Stop()

	stopped := atomic.LoadInt32(&calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, stopped, atomic.LoadInt32(&calls))
}
