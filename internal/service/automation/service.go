package automation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	punchgroup "github.com/cmlabs-hris/attendance-engine/internal/service/punch"
	"golang.org/x/sync/errgroup"
)

type AutomationServiceImpl struct {
	source            punch.Source
	users             user.UserRepository
	attendanceService attendance.AttendanceService
	settingsService   settings.SettingsService
	workers           int
	location          *time.Location
	now               func() time.Time

	mu    sync.Mutex
	state automation.State
}

// tally is the outcome of one employee's groups.
type tally struct {
	processed int
	saved     int
	skipped   int
}

// Run implements automation.AutomationService.
func (s *AutomationServiceImpl) Run(ctx context.Context, req automation.RunRequest) (automation.RunResult, error) {
	if err := req.Validate(); err != nil {
		return automation.RunResult{}, err
	}
	if !s.begin() {
		return automation.RunResult{}, automation.ErrAlreadyRunning
	}

	started := time.Now()
	result, err := s.run(ctx, req)
	result.Duration = time.Since(started).Round(time.Millisecond).String()
	s.finish(result, err)
	if err != nil {
		slog.Error("Automation: run failed", "error", err)
		return result, err
	}

	slog.Info("Automation: run completed",
		"processed", result.Processed,
		"saved", result.Saved,
		"skipped", result.Skipped,
		"duration", result.Duration,
	)
	return result, nil
}

// State implements automation.AutomationService.
func (s *AutomationServiceImpl) State() automation.StateResponse {
	s.mu.Lock()
	defer s.mu.Unlock()
	return automation.ToStateResponse(s.state)
}

func (s *AutomationServiceImpl) run(ctx context.Context, req automation.RunRequest) (automation.RunResult, error) {
	window, err := s.window(ctx, req)
	if err != nil {
		return automation.RunResult{}, err
	}
	result := automation.RunResult{Start: window.Start, End: window.End}

	slog.Info("Automation: fetching punches", "start", window.Start, "end", window.End)
	punches, err := s.source.Fetch(ctx, window.Start, window.End)
	if err != nil {
		return result, err
	}

	groups := punchgroup.Group(punches)
	slog.Info("Automation: grouped punches", "punches", len(punches), "sessions", len(groups))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for employeeID, days := range punchgroup.ByEmployee(groups) {
		g.Go(func() error {
			t, err := s.processEmployee(gctx, employeeID, days)
			mu.Lock()
			result.Processed += t.processed
			result.Saved += t.saved
			result.Skipped += t.skipped
			mu.Unlock()
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return result, err
	}

	if !req.Custom() {
		if err := s.settingsService.MarkFetched(ctx, window.End); err != nil {
			slog.Error("Automation: failed to record fetch time", "error", err)
		}
	}
	return result, nil
}

// processEmployee records one employee's work days in date order. Each day may
// depend on the abuse state left by the previous one, so days never run in parallel.
func (s *AutomationServiceImpl) processEmployee(ctx context.Context, employeeID string, days []punch.Group) (tally, error) {
	var t tally

	usr, err := s.users.GetByBiometricID(ctx, employeeID)
	if err != nil {
		t.processed = len(days)
		t.skipped = len(days)
		if errors.Is(err, user.ErrUserNotFound) {
			slog.Warn("Automation: no user for biometric id", "biometric_id", employeeID, "sessions", len(days))
			return t, nil
		}
		slog.Error("Automation: failed to resolve user", "biometric_id", employeeID, "error", err)
		return t, nil
	}

	for _, day := range days {
		if err := ctx.Err(); err != nil {
			return t, err
		}
		t.processed++

		checkIn := workday.ClockOf(day.First())
		checkOut := workday.ClockOf(day.Last())
		if checkIn == checkOut {
			t.skipped++
			continue
		}

		_, err := s.attendanceService.RecordSession(ctx, attendance.SessionRequest{
			UserID:     usr.ID,
			Date:       day.WorkDate,
			CheckIn:    checkIn,
			CheckOut:   checkOut,
			ApplyRules: true,
		})
		switch {
		case err == nil:
			t.saved++
		case errors.Is(err, attendance.ErrAttendanceExists):
			t.skipped++
		default:
			t.skipped++
			slog.Error("Automation: failed to record session",
				"user_id", usr.ID,
				"date", day.WorkDate.String(),
				"error", err,
			)
		}
	}
	return t, nil
}

// window resolves the fetch range in device wall-clock time. Without a custom
// range it resumes from the start of the last fetched day, falling back to the
// first day of the previous month.
func (s *AutomationServiceImpl) window(ctx context.Context, req automation.RunRequest) (automation.Window, error) {
	if req.Custom() {
		start, _ := workday.ParseDate(req.StartDate)
		end, _ := workday.ParseDate(req.EndDate)
		rollover := time.Duration(punchgroup.DayRolloverHour) * time.Hour
		return automation.Window{
			Start: start.Time().Add(rollover),
			End:   end.AddDays(1).Time().Add(rollover - time.Second),
		}, nil
	}

	now := s.wallClock()
	active, err := s.settingsService.GetActive(ctx)
	if err != nil {
		return automation.Window{}, fmt.Errorf("failed to resolve fetch window: %w", err)
	}
	if active.LastAttendanceFetchedDate != nil {
		return automation.Window{
			Start: workday.FromTime(*active.LastAttendanceFetchedDate).Time(),
			End:   now,
		}, nil
	}
	return automation.Window{
		Start: workday.FromTime(now).FirstOfMonth().AddDays(-1).FirstOfMonth().Time(),
		End:   now,
	}, nil
}

// wallClock is the current device-local time carried in UTC fields, the same
// representation punches use.
func (s *AutomationServiceImpl) wallClock() time.Time {
	local := s.now().In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(),
		local.Hour(), local.Minute(), local.Second(), 0, time.UTC)
}

func (s *AutomationServiceImpl) begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.IsRunning {
		return false
	}
	s.state.IsRunning = true
	return true
}

func (s *AutomationServiceImpl) finish(result automation.RunResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ranAt := s.now().UTC()
	s.state.IsRunning = false
	s.state.Stats.LastRunTime = &ranAt
	s.state.Stats.TotalProcessed += result.Processed
	s.state.Stats.TotalSaved += result.Saved
	s.state.Stats.TotalSkipped += result.Skipped
	if err != nil {
		s.state.LastError = err.Error()
		return
	}
	s.state.LastError = ""
	fetched := result.End
	s.state.LastFetchTime = &fetched
}

// NewAutomationService builds the batch runner. location is the device timezone.
func NewAutomationService(
	source punch.Source,
	userRepo user.UserRepository,
	attendanceService attendance.AttendanceService,
	settingsService settings.SettingsService,
	workers int,
	location *time.Location,
) automation.AutomationService {
	if workers < 1 {
		workers = 1
	}
	if location == nil {
		location = time.UTC
	}
	return &AutomationServiceImpl{
		source:            source,
		users:             userRepo,
		attendanceService: attendanceService,
		settingsService:   settingsService,
		workers:           workers,
		location:          location,
		now:               time.Now,
	}
}
