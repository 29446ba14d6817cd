package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/database"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/holiday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/reconcile"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rules"
	"github.com/shopspring/decimal"
)

type AttendanceServiceImpl struct {
	attendance.AttendanceRepository
	users           user.UserRepository
	teams           user.TeamRepository
	settingsService settings.SettingsService
	bufferService   buffer.BufferService
	reconciler      *reconcile.Reconciler
	tx              database.Transactor
	now             func() time.Time
}

// evaluation is a fully computed session, ready to persist.
type evaluation struct {
	active   settings.Settings
	segments []rules.Segment
	records  []attendance.Attendance
}

// RecordSession implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) RecordSession(ctx context.Context, req attendance.SessionRequest) ([]attendance.AttendanceResponse, error) {
	var saved []attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		usr, err := s.activeUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		exists, err := s.AttendanceRepository.ExistsPrimary(ctx, usr.ID, req.Date)
		if err != nil {
			return fmt.Errorf("failed to check existing attendance: %w", err)
		}
		if exists {
			return attendance.ErrAttendanceExists
		}

		ev, err := s.evaluate(ctx, usr, req, attendance.StatusPending, 1)
		if err != nil {
			return err
		}
		saved, err = s.persist(ctx, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attendance.ToResponses(saved), nil
}

// CreateManual implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CreateManual(ctx context.Context, req attendance.ManualEntryRequest) ([]attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	return s.RecordSession(ctx, req.Session())
}

// UpdateManual implements attendance.AttendanceService. The record's previous
// buffer credit is released before the new times are evaluated, and the
// record returns to Pending.
func (s *AttendanceServiceImpl) UpdateManual(ctx context.Context, req attendance.UpdateEntryRequest) ([]attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var saved []attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.AttendanceRepository.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}
		usr, err := s.activeUser(ctx, existing.UserID)
		if err != nil {
			return err
		}

		if existing.BufferIncrementedThisDay {
			if err := s.releaseBuffer(ctx, existing.UserID, existing.Date); err != nil {
				return err
			}
		}

		checkIn, _ := workday.ParseTimeOfDay(req.CheckIn)
		checkOut, _ := workday.ParseTimeOfDay(req.CheckOut)
		sess := attendance.SessionRequest{
			UserID:           existing.UserID,
			Date:             existing.Date,
			CheckIn:          checkIn,
			CheckOut:         checkOut,
			ApplyRules:       !existing.Flags.NoRulesApplied,
			IsWorkedFromHome: existing.Flags.IsWorkedFromHome,
			Remarks:          existing.Remarks,
		}
		if req.ApplyRules != nil {
			sess.ApplyRules = *req.ApplyRules
		}
		if req.IsWorkedFromHome != nil {
			sess.IsWorkedFromHome = *req.IsWorkedFromHome
		}
		if req.Remarks != nil {
			sess.Remarks = *req.Remarks
		}
		if existing.IsAdditionalEntry() {
			sess.ApplyRules = false
		}

		ev, err := s.evaluate(ctx, usr, sess, attendance.StatusPending, existing.EntryNo)
		if err != nil {
			return err
		}

		first := &ev.records[0]
		first.ID = existing.ID
		first.SplitParentID = existing.SplitParentID
		first.CreatedAt = existing.CreatedAt
		first.IgnoreDeduction = existing.IgnoreDeduction
		first.AdjustmentHistory = existing.AdjustmentHistory

		// The day-two half of a previous overnight split is regenerated by persist.
		if _, err := s.AttendanceRepository.DeleteSplitSegments(ctx, existing.ID); err != nil {
			return fmt.Errorf("failed to delete split segments: %w", err)
		}

		saved, err = s.persist(ctx, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attendance.ToResponses(saved), nil
}

// AddEntry implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AddEntry(ctx context.Context, req attendance.AdditionalEntryRequest) ([]attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	date, _ := workday.ParseDate(req.Date)
	checkIn, _ := workday.ParseTimeOfDay(req.CheckIn)
	checkOut, _ := workday.ParseTimeOfDay(req.CheckOut)

	var saved []attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		usr, err := s.activeUser(ctx, req.UserID)
		if err != nil {
			return err
		}

		exists, err := s.AttendanceRepository.ExistsPrimary(ctx, usr.ID, date)
		if err != nil {
			return fmt.Errorf("failed to check primary entry: %w", err)
		}
		if !exists {
			return attendance.ErrPrimaryEntryRequired
		}

		count, err := s.AttendanceRepository.CountEntries(ctx, usr.ID, date)
		if err != nil {
			return fmt.Errorf("failed to count entries: %w", err)
		}
		if count >= attendance.MaxEntriesPerDay {
			return attendance.ErrMaxEntriesReached
		}

		ev, err := s.evaluate(ctx, usr, attendance.SessionRequest{
			UserID:           usr.ID,
			Date:             date,
			CheckIn:          checkIn,
			CheckOut:         checkOut,
			ApplyRules:       false,
			IsWorkedFromHome: req.IsWorkedFromHome,
			Remarks:          req.Remarks,
		}, attendance.StatusPending, count+1)
		if err != nil {
			return err
		}
		saved, err = s.persist(ctx, ev)
		return err
	})
	if err != nil {
		return nil, err
	}
	return attendance.ToResponses(saved), nil
}

// Delete implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Delete(ctx context.Context, id string) error {
	return s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.AttendanceRepository.GetByID(ctx, id)
		if err != nil {
			return err
		}
		segments, err := s.AttendanceRepository.DeleteSplitSegments(ctx, id)
		if err != nil {
			return fmt.Errorf("failed to delete split segments: %w", err)
		}
		if err := s.AttendanceRepository.Delete(ctx, id); err != nil {
			return fmt.Errorf("failed to delete attendance: %w", err)
		}
		if rec.BufferIncrementedThisDay && !rec.IsAdditionalEntry() {
			if err := s.releaseBuffer(ctx, rec.UserID, rec.Date); err != nil {
				return err
			}
		}
		slog.Info("Attendance deleted", "attendance_id", id, "user_id", rec.UserID, "date", rec.Date.String(), "split_segments", len(segments))
		return nil
	})
}

// AdjustHours implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AdjustHours(ctx context.Context, req attendance.AdjustHoursRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	rec, err := s.AttendanceRepository.GetByID(ctx, req.ID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	adj := attendance.Adjustment{
		Reason:        req.Reason,
		FromDeduction: rec.DeductionMinutes,
		ToDeduction:   rec.DeductionMinutes,
		FromExtra:     rec.ExtraMinutes,
		ToExtra:       rec.ExtraMinutes,
		AdjustedBy:    req.ActorID,
		AdjustedAt:    s.now().UTC(),
	}
	if req.DeductionMinutes != nil {
		adj.ToDeduction = *req.DeductionMinutes
		rec.DeductionMinutes = *req.DeductionMinutes
		rec.Flags.HasDeduction = rec.DeductionMinutes > 0
	}
	if req.ExtraMinutes != nil {
		adj.ToExtra = *req.ExtraMinutes
		rec.ExtraMinutes = *req.ExtraMinutes
		rec.Flags.HasExtraHours = rec.ExtraMinutes > 0
	}
	if req.IsHalfDay != nil {
		rec.IsHalfDay = *req.IsHalfDay
	}
	rec.AdjustmentHistory = append(rec.AdjustmentHistory, adj)

	if err := s.AttendanceRepository.Update(ctx, rec); err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to adjust attendance: %w", err)
	}
	slog.Info("Attendance hours adjusted",
		"attendance_id", rec.ID,
		"deduction_minutes", rec.DeductionMinutes,
		"extra_minutes", rec.ExtraMinutes,
		"adjusted_by", req.ActorID)
	return attendance.ToResponse(rec), nil
}

// MarkLeave implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) MarkLeave(ctx context.Context, req attendance.MarkLeaveRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	date, _ := workday.ParseDate(req.Date)
	kind := attendance.LeaveKind(req.Kind)

	var saved attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		usr, err := s.users.GetByID(ctx, req.UserID)
		if err != nil {
			return err
		}
		active, err := s.settingsService.GetActive(ctx)
		if err != nil {
			return err
		}

		existing, err := s.AttendanceRepository.GetPrimary(ctx, usr.ID, date)
		switch {
		case err == nil:
			released := existing.BufferIncrementedThisDay
			zeroForLeave(&existing, kind, req.Remarks, s.now().UTC())
			if _, err := s.AttendanceRepository.DeleteSplitSegments(ctx, existing.ID); err != nil {
				return fmt.Errorf("failed to delete split segments: %w", err)
			}
			if err := s.AttendanceRepository.Update(ctx, existing); err != nil {
				return fmt.Errorf("failed to mark leave: %w", err)
			}
			if released {
				if err := s.releaseBuffer(ctx, usr.ID, date); err != nil {
					return err
				}
			}
			saved = existing
			return nil
		case errors.Is(err, attendance.ErrAttendanceNotFound):
		default:
			return fmt.Errorf("failed to get primary attendance: %w", err)
		}

		start, end := usr.OfficeHours(active.DefaultStart, active.DefaultEnd, active.ForceDefaultHours)
		rec := attendance.Attendance{
			UserID:           usr.ID,
			TeamID:           usr.TeamID,
			Date:             date,
			OfficeStart:      start,
			OfficeEnd:        end,
			SettingsSnapshot: active.Snapshot(),
			IsWeekendWork:    date.IsWeekend(),
			EntryNo:          1,
		}
		zeroForLeave(&rec, kind, req.Remarks, s.now().UTC())
		saved, err = s.AttendanceRepository.Create(ctx, rec)
		if err != nil {
			return fmt.Errorf("failed to create leave record: %w", err)
		}
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Attendance marked as leave", "user_id", req.UserID, "date", req.Date, "kind", req.Kind)
	return attendance.ToResponse(saved), nil
}

// ToggleIgnoreDeduction implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ToggleIgnoreDeduction(ctx context.Context, id string, ignore bool) (attendance.AttendanceResponse, error) {
	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	rec.IgnoreDeduction = ignore
	if err := s.AttendanceRepository.Update(ctx, rec); err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to update attendance: %w", err)
	}
	return attendance.ToResponse(rec), nil
}

func (s *AttendanceServiceImpl) activeUser(ctx context.Context, userID string) (user.User, error) {
	usr, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return user.User{}, err
	}
	if !usr.IsActive {
		return user.User{}, user.ErrInactiveUser
	}
	return usr, nil
}

// evaluate runs the rule engine and builds the records of a session without writing anything.
func (s *AttendanceServiceImpl) evaluate(ctx context.Context, usr user.User, req attendance.SessionRequest, status attendance.ApprovalStatus, entryNo int) (evaluation, error) {
	active, err := s.settingsService.GetActive(ctx)
	if err != nil {
		return evaluation{}, err
	}

	if usr.TeamID == "" {
		return evaluation{}, user.ErrTeamNotFound
	}
	team, err := s.teams.GetByID(ctx, usr.TeamID)
	if err != nil {
		return evaluation{}, fmt.Errorf("failed to resolve team of user %s: %w", usr.ID, err)
	}

	counter, err := s.bufferService.Get(ctx, usr.ID, req.Date)
	if err != nil {
		return evaluation{}, err
	}

	start, end := usr.OfficeHours(active.DefaultStart, active.DefaultEnd, active.ForceDefaultHours)
	in := rules.Input{
		Session: rules.Session{
			Date:     req.Date,
			CheckIn:  req.CheckIn,
			CheckOut: req.CheckOut,
		},
		OfficeStart:   start,
		OfficeEnd:     end,
		Policy:        reconcile.PolicyOf(active),
		BufferAbused:  counter.AbuseReached,
		IsWeekendWork: req.Date.IsWeekend(),
		ApplyRules:    req.ApplyRules,
		TeamName:      team.Name,
	}
	ev := rules.Evaluate(in)
	segments := rules.Split(in, ev, entryNo)

	now := s.now().UTC()
	records := make([]attendance.Attendance, 0, len(segments))
	for _, seg := range segments {
		checkIn, checkOut := seg.CheckIn, seg.CheckOut
		rec := attendance.Attendance{
			UserID:              usr.ID,
			TeamID:              usr.TeamID,
			Date:                seg.Date,
			CheckIn:             &checkIn,
			CheckOut:            &checkOut,
			OfficeStart:         start,
			OfficeEnd:           end,
			TotalWorkMinutes:    seg.TotalWorkMinutes,
			DeductionMinutes:    seg.DeductionMinutes,
			ExtraMinutes:        seg.ExtraMinutes,
			Flags:               seg.Flags,
			BufferCountSnapshot: counter.UsageCount,
			SettingsSnapshot:    active.Snapshot(),
			IsWeekendWork:       seg.IsWeekendWork,
			ApprovalStatus:      status,
			PayoutMultiplier:    payoutMultiplier(usr, seg.IsWeekendWork),
			EntryNo:             seg.EntryNo,
			Remarks:             req.Remarks,
			CalculatedAt:        now,
		}
		rec.Flags.IsWorkedFromHome = req.IsWorkedFromHome
		holiday.Overlay(&rec, active)
		records = append(records, rec)
	}

	return evaluation{
		active:   active,
		segments: segments,
		records:  records,
	}, nil
}

// persist writes the records of an evaluation, consumes a buffer credit when
// the engine asked for one, and reconciles the month on an abuse transition.
func (s *AttendanceServiceImpl) persist(ctx context.Context, ev evaluation) ([]attendance.Attendance, error) {
	var change buffer.Change
	if len(ev.segments) > 0 && ev.segments[0].IncrementsBuffer {
		var err error
		change, err = s.bufferService.Increment(ctx, ev.records[0].UserID, ev.records[0].Date)
		if err != nil {
			return nil, err
		}
		ev.records[0].BufferIncrementedThisDay = change.Counter.HasDate(ev.records[0].Date)
	}

	saved := make([]attendance.Attendance, 0, len(ev.records))
	for i, rec := range ev.records {
		if i > 0 {
			rec.SplitParentID = saved[0].ID
		}
		if rec.ID != "" {
			if err := s.AttendanceRepository.Update(ctx, rec); err != nil {
				return nil, fmt.Errorf("failed to update attendance: %w", err)
			}
			saved = append(saved, rec)
			continue
		}
		created, err := s.AttendanceRepository.Create(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to create attendance: %w", err)
		}
		saved = append(saved, created)
	}

	if change.Transition != buffer.TransitionNone {
		if _, err := s.reconciler.Handle(ctx, ev.records[0].UserID, ev.records[0].Date, change.Transition, ev.active); err != nil {
			return nil, err
		}
	}

	first := saved[0]
	slog.Debug("Attendance calculated",
		"user_id", first.UserID,
		"date", first.Date.String(),
		"records", len(saved),
		"deduction_minutes", first.DeductionMinutes,
		"extra_minutes", first.ExtraMinutes,
		"buffer_incremented", first.BufferIncrementedThisDay)
	return saved, nil
}

// releaseBuffer gives back the buffer credit of a date and reconciles the month if the abuse flag clears.
func (s *AttendanceServiceImpl) releaseBuffer(ctx context.Context, userID string, date workday.Date) error {
	change, err := s.bufferService.Decrement(ctx, userID, date)
	if err != nil {
		return err
	}
	if change.Transition == buffer.TransitionNone {
		return nil
	}
	active, err := s.settingsService.GetActive(ctx)
	if err != nil {
		return err
	}
	_, err = s.reconciler.Handle(ctx, userID, date, change.Transition, active)
	return err
}

func payoutMultiplier(usr user.User, weekend bool) decimal.Decimal {
	if weekend {
		return attendance.WeekendMultiplier
	}
	return usr.Multiplier()
}

// zeroForLeave clears every computed field of a record that represents a day off.
func zeroForLeave(rec *attendance.Attendance, kind attendance.LeaveKind, remarks string, now time.Time) {
	rec.CheckIn = nil
	rec.CheckOut = nil
	rec.TotalWorkMinutes = 0
	rec.DeductionMinutes = 0
	rec.ExtraMinutes = 0
	rec.Flags = attendance.Flags{NoRulesApplied: true}
	rec.BufferIncrementedThisDay = false
	rec.IsHolidayWork = false
	rec.HolidayBonusMinutes = 0
	rec.ApprovalStatus = attendance.StatusNA
	rec.PayoutMultiplier = decimal.Zero
	rec.LeaveKind = &kind
	if remarks != "" {
		rec.Remarks = remarks
	}
	rec.CalculatedAt = now
}

func NewAttendanceService(
	attendanceRepo attendance.AttendanceRepository,
	userRepo user.UserRepository,
	teamRepo user.TeamRepository,
	settingsService settings.SettingsService,
	bufferService buffer.BufferService,
	reconciler *reconcile.Reconciler,
	tx database.Transactor,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		AttendanceRepository: attendanceRepo,
		users:                userRepo,
		teams:                teamRepo,
		settingsService:      settingsService,
		bufferService:        bufferService,
		reconciler:           reconciler,
		tx:                   tx,
		now:                  time.Now,
	}
}
