package holiday

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

type HolidayServiceImpl struct {
	settings.SettingsRepository
	attendance.AttendanceRepository
	tx  database.Transactor
	now func() time.Time
}

// List implements settings.HolidayService.
func (h *HolidayServiceImpl) List(ctx context.Context) ([]settings.HolidayResponse, error) {
	active, err := h.SettingsRepository.GetActive(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]settings.HolidayResponse, 0, len(active.Holidays))
	for _, hd := range active.Holidays {
		out = append(out, settings.HolidayToResponse(hd))
	}
	return out, nil
}

// Add implements settings.HolidayService.
func (h *HolidayServiceImpl) Add(ctx context.Context, req settings.HolidayRequest) (settings.HolidayChangeResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.HolidayChangeResponse{}, err
	}
	date, _ := workday.ParseDate(req.Date)

	var result settings.HolidayChangeResponse
	err := h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		active, err := h.SettingsRepository.GetActive(ctx)
		if err != nil {
			return err
		}
		if IsHoliday(active, date) {
			return settings.ErrHolidayExists
		}

		added := settings.Holiday{
			Date:        date,
			Name:        req.Name,
			Description: req.Description,
			AddedAt:     h.now().UTC(),
		}
		if req.ActorID != "" {
			actor := req.ActorID
			added.AddedBy = &actor
		}
		active.Holidays = append(active.Holidays, added)
		sort.SliceStable(active.Holidays, func(i, j int) bool {
			return active.Holidays[i].Date.Before(active.Holidays[j].Date)
		})

		if err := h.SettingsRepository.SaveHolidays(ctx, active.ID, active.Holidays); err != nil {
			return fmt.Errorf("failed to save holidays: %w", err)
		}

		affected, err := h.recalculateDate(ctx, active, date)
		if err != nil {
			return err
		}
		result = settings.HolidayChangeResponse{
			Holiday:         settings.HolidayToResponse(added),
			RecordsAffected: affected,
		}
		return nil
	})
	if err != nil {
		return settings.HolidayChangeResponse{}, err
	}

	slog.Info("Holiday added", "date", req.Date, "name", req.Name, "records_affected", result.RecordsAffected)
	return result, nil
}

// Remove implements settings.HolidayService.
func (h *HolidayServiceImpl) Remove(ctx context.Context, dateStr string) (settings.HolidayChangeResponse, error) {
	date, err := workday.ParseDate(dateStr)
	if err != nil {
		return settings.HolidayChangeResponse{}, settings.ErrHolidayNotFound
	}

	var result settings.HolidayChangeResponse
	err = h.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		active, err := h.SettingsRepository.GetActive(ctx)
		if err != nil {
			return err
		}
		removed, ok := active.HolidayOn(date)
		if !ok {
			return settings.ErrHolidayNotFound
		}

		remaining := make([]settings.Holiday, 0, len(active.Holidays))
		for _, hd := range active.Holidays {
			if hd.Date != date {
				remaining = append(remaining, hd)
			}
		}
		active.Holidays = remaining

		if err := h.SettingsRepository.SaveHolidays(ctx, active.ID, active.Holidays); err != nil {
			return fmt.Errorf("failed to save holidays: %w", err)
		}

		affected, err := h.recalculateDate(ctx, active, date)
		if err != nil {
			return err
		}
		result = settings.HolidayChangeResponse{
			Holiday:         settings.HolidayToResponse(removed),
			RecordsAffected: affected,
		}
		return nil
	})
	if err != nil {
		return settings.HolidayChangeResponse{}, err
	}

	slog.Info("Holiday removed", "date", dateStr, "records_affected", result.RecordsAffected)
	return result, nil
}

// Rename implements settings.HolidayService.
func (h *HolidayServiceImpl) Rename(ctx context.Context, req settings.RenameHolidayRequest) (settings.HolidayResponse, error) {
	if err := req.Validate(); err != nil {
		return settings.HolidayResponse{}, err
	}
	date, _ := workday.ParseDate(req.Date)

	active, err := h.SettingsRepository.GetActive(ctx)
	if err != nil {
		return settings.HolidayResponse{}, err
	}

	var renamed *settings.Holiday
	for i := range active.Holidays {
		if active.Holidays[i].Date == date {
			active.Holidays[i].Name = req.Name
			active.Holidays[i].Description = req.Description
			renamed = &active.Holidays[i]
			break
		}
	}
	if renamed == nil {
		return settings.HolidayResponse{}, settings.ErrHolidayNotFound
	}

	if err := h.SettingsRepository.SaveHolidays(ctx, active.ID, active.Holidays); err != nil {
		return settings.HolidayResponse{}, fmt.Errorf("failed to save holidays: %w", err)
	}
	return settings.HolidayToResponse(*renamed), nil
}

// recalculateDate re-applies the holiday overlay to every record on the date.
func (h *HolidayServiceImpl) recalculateDate(ctx context.Context, active settings.Settings, date workday.Date) (int, error) {
	records, err := h.AttendanceRepository.ListByDate(ctx, date)
	if err != nil {
		return 0, fmt.Errorf("failed to list attendance for %s: %w", date, err)
	}

	affected := 0
	for _, rec := range records {
		if rec.IsWeekendWork {
			continue
		}
		wasHoliday, wasBonus := rec.IsHolidayWork, rec.HolidayBonusMinutes
		Overlay(&rec, active)
		if rec.IsHolidayWork == wasHoliday && rec.HolidayBonusMinutes == wasBonus {
			continue
		}
		if err := h.AttendanceRepository.Update(ctx, rec); err != nil {
			slog.Error("Failed to recalculate holiday bonus", "attendance_id", rec.ID, "error", err)
			continue
		}
		affected++
	}
	return affected, nil
}

func NewHolidayService(settingsRepo settings.SettingsRepository, attendanceRepo attendance.AttendanceRepository, tx database.Transactor) settings.HolidayService {
	return &HolidayServiceImpl{
		SettingsRepository:   settingsRepo,
		AttendanceRepository: attendanceRepo,
		tx:                   tx,
		now:                  time.Now,
	}
}
