package automation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/validator"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	attendancesvc "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	buffersvc "github.com/cmlabs-hris/attendance-engine/internal/service/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconcile"
	settingssvc "github.com/cmlabs-hris/attendance-engine/internal/service/settings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	mu      sync.Mutex
	punches []punch.Punch
	err     error
	windows []automation.Window
	block   chan struct{}
}

func (f *fakeSource) Fetch(ctx context.Context, start, end time.Time) ([]punch.Punch, error) {
	f.mu.Lock()
	f.windows = append(f.windows, automation.Window{Start: start, End: end})
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.punches, f.err
}

type testEnv struct {
	svc         *AutomationServiceImpl
	source      *fakeSource
	attendances attendance.AttendanceRepository
	settings    settings.SettingsService
	user        user.User
}

func at(date string, clock string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		panic(err)
	}
	return t
}

func newTestEnv(t *testing.T, source *fakeSource) testEnv {
	t.Helper()
	ctx := context.Background()

	store := memory.NewStore()
	tx := memory.NewTransactor(store)
	attendanceRepo := memory.NewAttendanceRepository(store)
	userRepo := memory.NewUserRepository(store)

	settingsService := settingssvc.NewSettingsService(memory.NewSettingsRepository(store))
	_, err := settingsService.EnsureDefaults(ctx)
	require.NoError(t, err)
	bufferService := buffersvc.NewBufferService(memory.NewCounterRepository(store), userRepo, settingsService)

	team := store.AddTeam(user.Team{Name: "Engineering"})
	usr := store.AddUser(user.User{Name: "Budi", BiometricID: "101", TeamID: team.ID, IsActive: true})

	attendanceService := attendancesvc.NewAttendanceService(
		attendanceRepo,
		userRepo,
		memory.NewTeamRepository(store),
		settingsService,
		bufferService,
		reconcile.NewReconciler(attendanceRepo),
		tx,
	)

	svc := NewAutomationService(source, userRepo, attendanceService, settingsService, 2, time.UTC).(*AutomationServiceImpl)
	svc.now = func() time.Time { return at("2024-03-20", "12:00") }

	return testEnv{
		svc:         svc,
		source:      source,
		attendances: attendanceRepo,
		settings:    settingsService,
		user:        usr,
	}
}

// ===== RUN TESTS =====

func TestAutomationService_Run_RecordsSessions(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{punches: []punch.Punch{
		{EmployeeID: "101", Timestamp: at("2024-03-11", "10:20")},
		{EmployeeID: "101", Timestamp: at("2024-03-11", "14:00")},
		{EmployeeID: "101", Timestamp: at("2024-03-11", "19:30")},
		{EmployeeID: "101", Timestamp: at("2024-03-12", "09:55")},
		{EmployeeID: "101", Timestamp: at("2024-03-12", "19:05")},
		{EmployeeID: "999", Timestamp: at("2024-03-11", "10:00")},
		{EmployeeID: "999", Timestamp: at("2024-03-11", "19:00")},
		{EmployeeID: "102", Timestamp: at("2024-03-11", "10:00")},
	}}
	env := newTestEnv(t, source)

	result, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Processed)
	assert.Equal(t, 2, result.Saved)
	assert.Equal(t, 1, result.Skipped)

	first, err := env.attendances.GetPrimary(ctx, env.user.ID, workday.NewDate(2024, 3, 11))
	require.NoError(t, err)
	require.True(t, first.HasTimes())
	assert.Equal(t, workday.MustParseTimeOfDay("10:20"), *first.CheckIn)
	assert.Equal(t, workday.MustParseTimeOfDay("19:30"), *first.CheckOut)
	assert.True(t, first.Flags.IsBufferUsed)

	state := env.svc.State()
	assert.False(t, state.IsRunning)
	assert.Equal(t, 3, state.TotalProcessed)
	assert.Equal(t, 2, state.TotalSaved)
	assert.Empty(t, state.LastError)
	require.NotNil(t, state.LastFetchTime)
}

func TestAutomationService_Run_IsIdempotent(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{punches: []punch.Punch{
		{EmployeeID: "101", Timestamp: at("2024-03-11", "10:20")},
		{EmployeeID: "101", Timestamp: at("2024-03-11", "19:30")},
	}}
	env := newTestEnv(t, source)

	_, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	again, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, again.Saved)
	assert.Equal(t, 1, again.Skipped)

	count, err := env.attendances.CountEntries(ctx, env.user.ID, workday.NewDate(2024, 3, 11))
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	assert.Equal(t, 2, env.svc.State().TotalProcessed)
}

func TestAutomationService_Run_OvernightSession(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{punches: []punch.Punch{
		{EmployeeID: "101", Timestamp: at("2024-03-11", "18:00")},
		{EmployeeID: "101", Timestamp: at("2024-03-12", "02:30")},
	}}
	env := newTestEnv(t, source)

	result, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Processed)

	count, err := env.attendances.CountEntries(ctx, env.user.ID, workday.NewDate(2024, 3, 11))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)
	exists, err := env.attendances.ExistsPrimary(ctx, env.user.ID, workday.NewDate(2024, 3, 12))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestAutomationService_Run_DaysProcessedInOrder(t *testing.T) {
	ctx := context.Background()
	// Five buffered days reach the abuse limit before the sixth is classified.
	var punches []punch.Punch
	for day := 4; day <= 11; day++ {
		date := workday.NewDate(2024, 3, day)
		if date.IsWeekend() {
			continue
		}
		punches = append(punches,
			punch.Punch{EmployeeID: "101", Timestamp: at(date.String(), "10:20")},
			punch.Punch{EmployeeID: "101", Timestamp: at(date.String(), "19:00")},
		)
	}
	env := newTestEnv(t, &fakeSource{punches: punches})

	result, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, 6, result.Saved)

	last, err := env.attendances.GetPrimary(ctx, env.user.ID, workday.NewDate(2024, 3, 11))
	require.NoError(t, err)
	assert.True(t, last.Flags.IsBufferAbused)
	assert.True(t, last.Flags.IsLate)
}

// ===== WINDOW TESTS =====

func TestAutomationService_Run_DefaultWindowStartsPreviousMonth(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeSource{})

	_, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	require.Len(t, env.source.windows, 1)
	assert.Equal(t, at("2024-02-01", "00:00"), env.source.windows[0].Start)
	assert.Equal(t, at("2024-03-20", "12:00"), env.source.windows[0].End)

	env.svc.now = func() time.Time { return at("2024-03-21", "08:00") }
	_, err = env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	require.Len(t, env.source.windows, 2)
	assert.Equal(t, at("2024-03-20", "00:00"), env.source.windows[1].Start)
}

func TestAutomationService_Run_CustomWindowCoversWorkDays(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeSource{})

	_, err := env.svc.Run(ctx, automation.RunRequest{StartDate: "2024-03-01", EndDate: "2024-03-05"})
	require.NoError(t, err)
	require.Len(t, env.source.windows, 1)
	assert.Equal(t, at("2024-03-01", "06:00"), env.source.windows[0].Start)
	assert.Equal(t, at("2024-03-06", "06:00").Add(-time.Second), env.source.windows[0].End)

	active, err := env.settings.GetActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, active.LastAttendanceFetchedDate)
}

func TestAutomationService_Run_DeviceTimezone(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t, &fakeSource{})
	env.svc.location = time.FixedZone("device", 5*60*60)

	_, err := env.svc.Run(ctx, automation.RunRequest{})
	require.NoError(t, err)
	assert.Equal(t, at("2024-03-20", "17:00"), env.source.windows[0].End)
}

func TestAutomationService_Run_InvalidRequest(t *testing.T) {
	env := newTestEnv(t, &fakeSource{})

	_, err := env.svc.Run(context.Background(), automation.RunRequest{StartDate: "2024-03-05"})
	var verrs validator.ValidationErrors
	require.ErrorAs(t, err, &verrs)

	_, err = env.svc.Run(context.Background(), automation.RunRequest{StartDate: "2024-03-05", EndDate: "2024-03-01"})
	require.ErrorAs(t, err, &verrs)
	assert.Empty(t, env.source.windows)
}

// ===== STATE TESTS =====

func TestAutomationService_Run_UpstreamFailure(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{err: fmt.Errorf("%w: connection refused", punch.ErrUpstreamFetch)}
	env := newTestEnv(t, source)

	_, err := env.svc.Run(ctx, automation.RunRequest{})
	assert.ErrorIs(t, err, punch.ErrUpstreamFetch)

	state := env.svc.State()
	assert.False(t, state.IsRunning)
	assert.Contains(t, state.LastError, "connection refused")
	assert.Nil(t, state.LastFetchTime)

	active, err := env.settings.GetActive(ctx)
	require.NoError(t, err)
	assert.Nil(t, active.LastAttendanceFetchedDate)
}

func TestAutomationService_Run_SingleFlight(t *testing.T) {
	ctx := context.Background()
	source := &fakeSource{block: make(chan struct{})}
	env := newTestEnv(t, source)

	done := make(chan error, 1)
	go func() {
		_, err := env.svc.Run(ctx, automation.RunRequest{})
		done <- err
	}()

	require.Eventually(t, func() bool { return env.svc.State().IsRunning }, time.Second, 5*time.Millisecond)
	_, err := env.svc.Run(ctx, automation.RunRequest{})
	assert.ErrorIs(t, err, automation.ErrAlreadyRunning)

	close(source.block)
	require.NoError(t, <-done)
	assert.False(t, env.svc.State().IsRunning)
}
