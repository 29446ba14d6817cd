package http

import (
	"log/slog"
	"os"

	"github.com/cmlabs-hris/attendance-engine/internal/config"
	"github.com/cmlabs-hris/attendance-engine/internal/handler/http/middleware"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httplog/v3"
	"github.com/go-chi/jwtauth/v5"
)

type Handlers struct {
	Attendance AttendanceHandler
	Settings   SettingsHandler
	Buffer     BufferHandler
	Automation AutomationHandler
}

func NewRouter(cfg config.AppConfig, JWTService jwt.Service, h Handlers) *chi.Mux {
	r := chi.NewRouter()
	logFormat := httplog.SchemaECS.Concise(cfg.Env != "development")
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "attendance-engine"),
		slog.String("version", "v1.0.0"),
		slog.String("env", cfg.Env),
	)

	allowedOrigins := cfg.AllowedOrigins
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowCredentials: true,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		MaxAge:           300,
	}))

	r.Use(httplog.RequestLogger(logger, &httplog.Options{
		Level:  slog.LevelDebug,
		Schema: httplog.SchemaECS,
	}))

	r.Use(chiMiddleware.AllowContentEncoding("application/json"))
	r.Use(chiMiddleware.CleanPath)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/"))

	r.Route("/api/v1", func(r chi.Router) {
		// Requires authentication
		r.Group(func(r chi.Router) {
			r.Use(jwtauth.Verifier(JWTService.JWTAuth()))
			r.Use(middleware.AuthRequired(JWTService.JWTAuth()))

			r.Route("/attendances", func(r chi.Router) {
				r.Get("/", h.Attendance.List)
				r.Get("/stats/{userID}", h.Attendance.MonthlyStats)
				r.Get("/{id}", h.Attendance.Get)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Post("/", h.Attendance.Create)
					r.Post("/additional", h.Attendance.AddEntry)
					r.Post("/leave", h.Attendance.MarkLeave)
					r.Post("/bulk-status", h.Attendance.BulkUpdateStatus)
					r.Put("/{id}", h.Attendance.Update)
					r.Delete("/{id}", h.Attendance.Delete)
					r.Patch("/{id}/hours", h.Attendance.AdjustHours)
					r.Patch("/{id}/ignore-deduction", h.Attendance.ToggleIgnoreDeduction)
					r.Patch("/{id}/status", h.Attendance.UpdateStatus)
				})
			})

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", h.Settings.GetActive)
				r.Get("/holidays", h.Settings.ListHolidays)

				// Admin only
				r.Group(func(r chi.Router) {
					r.Use(middleware.AdminOnly)
					r.Put("/", h.Settings.Update)
					r.Get("/history", h.Settings.History)
					r.Post("/holidays", h.Settings.AddHoliday)
					r.Put("/holidays/{date}", h.Settings.RenameHoliday)
					r.Delete("/holidays/{date}", h.Settings.RemoveHoliday)
				})
			})

			r.Route("/buffers", func(r chi.Router) {
				r.Get("/users/{userID}", h.Buffer.History)

				r.With(middleware.AdminOnly).Get("/report", h.Buffer.MonthlyReport)
			})

			r.Route("/automation", func(r chi.Router) {
				r.Use(middleware.AdminOnly)
				r.Get("/state", h.Automation.State)
				r.Post("/run", h.Automation.Run)
			})
		})
	})
	return r
}
