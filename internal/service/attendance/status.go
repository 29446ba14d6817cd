package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
)

// UpdateStatus implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) UpdateStatus(ctx context.Context, req attendance.UpdateStatusRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	next := attendance.ApprovalStatus(req.Status)

	var saved attendance.Attendance
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		rec, err := s.AttendanceRepository.GetByID(ctx, req.ID)
		if err != nil {
			return err
		}

		change, err := s.applyStatus(ctx, &rec, next)
		if err != nil {
			return err
		}
		if err := s.AttendanceRepository.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to update approval status: %w", err)
		}

		if change.Transition != buffer.TransitionNone {
			active, err := s.settingsService.GetActive(ctx)
			if err != nil {
				return err
			}
			if _, err := s.reconciler.Handle(ctx, rec.UserID, rec.Date, change.Transition, active); err != nil {
				return err
			}
			// Reconciliation may have rewritten this record too.
			if rec, err = s.AttendanceRepository.GetByID(ctx, rec.ID); err != nil {
				return err
			}
		}
		saved = rec
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	slog.Info("Attendance status updated", "attendance_id", saved.ID, "status", saved.ApprovalStatus)
	return attendance.ToResponse(saved), nil
}

// BulkUpdateStatus implements attendance.AttendanceService. All records must
// share one calendar month. Counter changes are applied per user in date
// order and the month is reconciled once per user from the net abuse change.
func (s *AttendanceServiceImpl) BulkUpdateStatus(ctx context.Context, req attendance.BulkStatusRequest) (attendance.BulkStatusResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.BulkStatusResponse{}, err
	}
	next := attendance.ApprovalStatus(req.Status)

	var result attendance.BulkStatusResponse
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		records := make([]attendance.Attendance, 0, len(req.IDs))
		seen := make(map[string]bool, len(req.IDs))
		for _, id := range req.IDs {
			if seen[id] {
				continue
			}
			seen[id] = true

			rec, err := s.AttendanceRepository.GetByID(ctx, id)
			if errors.Is(err, attendance.ErrAttendanceNotFound) {
				result.Skipped++
				continue
			}
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		if len(records) == 0 {
			return attendance.ErrNoRecordsFound
		}

		for _, rec := range records[1:] {
			if !rec.Date.SameMonth(records[0].Date) {
				return attendance.ErrBulkSpansMultipleMonths
			}
		}

		sort.SliceStable(records, func(i, j int) bool {
			if records[i].UserID != records[j].UserID {
				return records[i].UserID < records[j].UserID
			}
			if records[i].Date != records[j].Date {
				return records[i].Date.Before(records[j].Date)
			}
			return records[i].EntryNo < records[j].EntryNo
		})

		month := records[0].Date
		initialAbuse := make(map[string]bool)
		finalAbuse := make(map[string]bool)
		for _, rec := range records {
			if _, ok := initialAbuse[rec.UserID]; ok {
				continue
			}
			counter, err := s.bufferService.Get(ctx, rec.UserID, month)
			if err != nil {
				return err
			}
			initialAbuse[rec.UserID] = counter.AbuseReached
			finalAbuse[rec.UserID] = counter.AbuseReached
		}

		updatedIDs := make([]string, 0, len(records))
		for i := range records {
			rec := &records[i]
			if rec.ApprovalStatus == next {
				result.Skipped++
				continue
			}
			change, err := s.applyStatus(ctx, rec, next)
			if err != nil {
				return err
			}
			if change.Applied {
				finalAbuse[rec.UserID] = change.Counter.AbuseReached
			}
			if err := s.AttendanceRepository.Update(ctx, *rec); err != nil {
				return fmt.Errorf("failed to update approval status: %w", err)
			}
			updatedIDs = append(updatedIDs, rec.ID)
			result.Updated++
		}

		for userID, before := range initialAbuse {
			t := buffer.TransitionBetween(before, finalAbuse[userID])
			if t == buffer.TransitionNone {
				continue
			}
			active, err := s.settingsService.GetActive(ctx)
			if err != nil {
				return err
			}
			if _, err := s.reconciler.Handle(ctx, userID, month, t, active); err != nil {
				return err
			}
		}

		result.Records = make([]attendance.AttendanceResponse, 0, len(updatedIDs))
		for _, id := range updatedIDs {
			rec, err := s.AttendanceRepository.GetByID(ctx, id)
			if err != nil {
				return err
			}
			result.Records = append(result.Records, attendance.ToResponse(rec))
		}
		return nil
	})
	if err != nil {
		return attendance.BulkStatusResponse{}, err
	}

	slog.Info("Bulk attendance status updated", "status", req.Status, "updated", result.Updated, "skipped", result.Skipped)
	return result, nil
}

// applyStatus sets the new status on rec and moves the buffer counter when
// the record enters or leaves Rejected. It never reconciles.
func (s *AttendanceServiceImpl) applyStatus(ctx context.Context, rec *attendance.Attendance, next attendance.ApprovalStatus) (buffer.Change, error) {
	prev := rec.ApprovalStatus
	rec.ApprovalStatus = next

	if prev == next || !rec.CountsTowardBuffer() {
		return buffer.Change{}, nil
	}

	switch {
	case next == attendance.StatusRejected && !rec.BufferIncrementedThisDay:
		counter, err := s.bufferService.Get(ctx, rec.UserID, rec.Date)
		if err != nil {
			return buffer.Change{}, err
		}
		if counter.AbuseReached {
			return buffer.Change{}, nil
		}
		change, err := s.bufferService.Increment(ctx, rec.UserID, rec.Date)
		if err != nil {
			return buffer.Change{}, err
		}
		rec.BufferIncrementedThisDay = true
		if change.Applied {
			rec.BufferCountSnapshot = change.Counter.UsageCount
		}
		return change, nil

	case prev == attendance.StatusRejected && rec.BufferIncrementedThisDay:
		change, err := s.bufferService.Decrement(ctx, rec.UserID, rec.Date)
		if err != nil {
			return buffer.Change{}, err
		}
		rec.BufferIncrementedThisDay = false
		if change.Applied {
			rec.BufferCountSnapshot = change.Counter.UsageCount
		}
		return change, nil
	}
	return buffer.Change{}, nil
}
