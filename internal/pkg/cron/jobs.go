package cron

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/automation"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

const monthlyBufferInterval = 6 * time.Hour

type AttendanceJobs struct {
	automationService automation.AutomationService
	bufferService     buffer.BufferService
	userRepo          user.UserRepository
	location          *time.Location
	now               func() time.Time
}

// NewAttendanceJobs builds the background jobs. location is the device timezone
// and decides which month counters are opened for.
func NewAttendanceJobs(
	automationService automation.AutomationService,
	bufferService buffer.BufferService,
	userRepo user.UserRepository,
	location *time.Location,
) *AttendanceJobs {
	if location == nil {
		location = time.UTC
	}
	return &AttendanceJobs{
		automationService: automationService,
		bufferService:     bufferService,
		userRepo:          userRepo,
		location:          location,
		now:               time.Now,
	}
}

func (j *AttendanceJobs) RegisterJobs(scheduler *Scheduler, automationInterval time.Duration) {
	scheduler.AddJob(Job{
		Name:       "ensure_monthly_buffers",
		Interval:   monthlyBufferInterval,
		RunOnStart: true,
		Fn:         j.EnsureMonthlyBuffers,
	})
	scheduler.AddJob(Job{
		Name:       "fetch_biometric_attendance",
		Interval:   automationInterval,
		RunOnStart: true,
		Fn:         j.FetchBiometricAttendance,
	})
}

// FetchBiometricAttendance runs one automation batch over the default window.
// A batch still running from a manual trigger is not an error.
func (j *AttendanceJobs) FetchBiometricAttendance(ctx context.Context) error {
	result, err := j.automationService.Run(ctx, automation.RunRequest{})
	if errors.Is(err, automation.ErrAlreadyRunning) {
		slog.Info("Cron: automation already running, skipping tick")
		return nil
	}
	if err != nil {
		return fmt.Errorf("automation run: %w", err)
	}

	slog.Info("Cron: biometric attendance fetched",
		"processed", result.Processed,
		"saved", result.Saved,
		"skipped", result.Skipped,
	)
	return nil
}

// EnsureMonthlyBuffers opens the current month's buffer counter for every active user.
// Existing counters are left alone, so the job can run any number of times a month.
func (j *AttendanceJobs) EnsureMonthlyBuffers(ctx context.Context) error {
	users, err := j.userRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("failed to list active users: %w", err)
	}
	if len(users) == 0 {
		return nil
	}

	userIDs := make([]string, 0, len(users))
	for _, u := range users {
		userIDs = append(userIDs, u.ID)
	}

	today := workday.FromTime(j.now().In(j.location))
	created, err := j.bufferService.EnsureMonth(ctx, userIDs, today)
	if err != nil {
		return fmt.Errorf("failed to ensure buffer counters: %w", err)
	}
	if created > 0 {
		slog.Info("Cron: opened monthly buffer counters", "year", today.Year, "month", today.Month, "created", created)
	}
	return nil
}
