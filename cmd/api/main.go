package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/fixtures"
	appHTTP "github.com/cmlabs-hris/attendance-engine/internal/handler/http"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/biometric"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/cron"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/memory"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	attendanceService "github.com/cmlabs-hris/attendance-engine/internal/service/attendance"
	automationService "github.com/cmlabs-hris/attendance-engine/internal/service/automation"
	bufferService "github.com/cmlabs-hris/attendance-engine/internal/service/buffer"
	holidayService "github.com/cmlabs-hris/attendance-engine/internal/service/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconcile"
	settingsService "github.com/cmlabs-hris/attendance-engine/internal/service/settings"
)

type repositories struct {
	attendance attendance.AttendanceRepository
	counters   buffer.CounterRepository
	settings   settings.SettingsRepository
	users      user.UserRepository
	teams      user.TeamRepository
	tx         database.Transactor
	close      func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLevel(cfg.App.LogLevel),
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize storage", "driver", cfg.App.Storage, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	location, err := biometric.ParseOffset(cfg.Biometric.TimezoneOffset)
	if err != nil {
		slog.Error("Invalid TIMEZONE_OFFSET", "error", err)
		os.Exit(1)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)
	settingsSvc := settingsService.NewSettingsService(repos.settings)
	if _, err := settingsSvc.EnsureDefaults(ctx); err != nil {
		slog.Error("Failed to seed attendance settings", "error", err)
		os.Exit(1)
	}
	bufferSvc := bufferService.NewBufferService(repos.counters, repos.users, settingsSvc)
	attendanceSvc := attendanceService.NewAttendanceService(
		repos.attendance,
		repos.users,
		repos.teams,
		settingsSvc,
		bufferSvc,
		reconcile.NewReconciler(repos.attendance),
		repos.tx,
	)
	holidaySvc := holidayService.NewHolidayService(repos.settings, repos.attendance, repos.tx)
	automationSvc := automationService.NewAutomationService(
		biometric.NewClient(cfg.Biometric),
		repos.users,
		attendanceSvc,
		settingsSvc,
		cfg.Automation.Workers,
		location,
	)

	scheduler := cron.NewScheduler()
	jobs := cron.NewAttendanceJobs(automationSvc, bufferSvc, repos.users, location)
	if cfg.Automation.Enabled {
		jobs.RegisterJobs(scheduler, cfg.Automation.Interval)
		scheduler.Start(ctx)
	}

	router := appHTTP.NewRouter(cfg.App, JWTService, appHTTP.Handlers{
		Attendance: appHTTP.NewAttendanceHandler(attendanceSvc),
		Settings:   appHTTP.NewSettingsHandler(settingsSvc, holidaySvc),
		Buffer:     appHTTP.NewBufferHandler(bufferSvc),
		Automation: appHTTP.NewAutomationHandler(automationSvc),
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server running", "addr", server.Addr, "storage", cfg.App.Storage, "automation", cfg.Automation.Enabled)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
	scheduler.Stop()
}

func openRepositories(ctx context.Context, cfg *config.Config) (repositories, error) {
	switch cfg.App.Storage {
	case config.StorageMemory:
		slog.Warn("Using in-memory storage, data is lost on restart")
		store := memory.NewStore()
		if cfg.App.SeedFile != "" {
			dir, err := fixtures.LoadDirectory(cfg.App.SeedFile)
			if err != nil {
				return repositories{}, err
			}
			ids, err := dir.Seed(store)
			if err != nil {
				return repositories{}, err
			}
			slog.Info("Seeded user directory", "teams", len(ids.TeamIDs), "users", len(ids.UserIDs))
		}
		return repositories{
			attendance: memory.NewAttendanceRepository(store),
			counters:   memory.NewCounterRepository(store),
			settings:   memory.NewSettingsRepository(store),
			users:      memory.NewUserRepository(store),
			teams:      memory.NewTeamRepository(store),
			tx:         memory.NewTransactor(store),
			close:      func() {},
		}, nil
	case config.StoragePostgres:
		db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL())
		if err != nil {
			return repositories{}, err
		}
		if err := postgresql.Migrate(ctx, db); err != nil {
			db.Close()
			return repositories{}, err
		}
		return repositories{
			attendance: postgresql.NewAttendanceRepository(db),
			counters:   postgresql.NewCounterRepository(db),
			settings:   postgresql.NewSettingsRepository(db),
			users:      postgresql.NewUserRepository(db),
			teams:      postgresql.NewTeamRepository(db),
			tx:         postgresql.NewTransactor(db),
			close:      db.Close,
		}, nil
	default:
		return repositories{}, fmt.Errorf("unsupported storage driver %q", cfg.App.Storage)
	}
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
