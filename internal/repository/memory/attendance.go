package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
)

type attendanceRepository struct {
	store *Store
}

func NewAttendanceRepository(store *Store) attendance.AttendanceRepository {
	return &attendanceRepository{store: store}
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if a.EntryNo <= 1 {
		a.EntryNo = 1
		for _, existing := range r.store.attendances {
			if existing.UserID == a.UserID && existing.Date == a.Date && existing.EntryNo == 1 {
				return attendance.Attendance{}, attendance.ErrAttendanceExists
			}
		}
	}

	now := r.store.now().UTC()
	a.ID = newID()
	a.CreatedAt = now
	a.UpdatedAt = now
	r.store.attendances[a.ID] = cloneAttendance(a)
	return a, nil
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, a attendance.Attendance) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	existing, ok := r.store.attendances[a.ID]
	if !ok {
		return attendance.ErrAttendanceNotFound
	}
	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = r.store.now().UTC()
	r.store.attendances[a.ID] = cloneAttendance(a)
	return nil
}

// Delete implements attendance.AttendanceRepository.
func (r *attendanceRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.attendances[id]; !ok {
		return attendance.ErrAttendanceNotFound
	}
	delete(r.store.attendances, id)
	return nil
}

// DeleteSplitSegments implements attendance.AttendanceRepository.
func (r *attendanceRepository) DeleteSplitSegments(ctx context.Context, parentID string) ([]attendance.Attendance, error) {
	if parentID == "" {
		return nil, nil
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	removed := make([]attendance.Attendance, 0)
	for id, a := range r.store.attendances {
		if a.SplitParentID == parentID {
			removed = append(removed, cloneAttendance(a))
			delete(r.store.attendances, id)
		}
	}
	return removed, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	a, ok := r.store.attendances[id]
	if !ok {
		return attendance.Attendance{}, attendance.ErrAttendanceNotFound
	}
	return cloneAttendance(a), nil
}

// GetPrimary implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetPrimary(ctx context.Context, userID string, date workday.Date) (attendance.Attendance, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, a := range r.store.attendances {
		if a.UserID == userID && a.Date == date && a.EntryNo == 1 {
			return cloneAttendance(a), nil
		}
	}
	return attendance.Attendance{}, attendance.ErrAttendanceNotFound
}

// ExistsPrimary implements attendance.AttendanceRepository.
func (r *attendanceRepository) ExistsPrimary(ctx context.Context, userID string, date workday.Date) (bool, error) {
	_, err := r.GetPrimary(ctx, userID, date)
	if errors.Is(err, attendance.ErrAttendanceNotFound) {
		return false, nil
	}
	return err == nil, err
}

// CountEntries implements attendance.AttendanceRepository.
func (r *attendanceRepository) CountEntries(ctx context.Context, userID string, date workday.Date) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	count := 0
	for _, a := range r.store.attendances {
		if a.UserID == userID && a.Date == date {
			count++
		}
	}
	return count, nil
}

// ListByUserAndRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByUserAndRange(ctx context.Context, userID string, from, to workday.Date) ([]attendance.Attendance, error) {
	return r.collect(func(a attendance.Attendance) bool {
		return a.UserID == userID && !a.Date.Before(from) && !a.Date.After(to)
	}, true), nil
}

// ListByDate implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByDate(ctx context.Context, date workday.Date) ([]attendance.Attendance, error) {
	return r.collect(func(a attendance.Attendance) bool {
		return a.Date == date
	}, true), nil
}

// List implements attendance.AttendanceRepository. Newest dates come first.
func (r *attendanceRepository) List(ctx context.Context, filter attendance.AttendanceFilter) ([]attendance.Attendance, int64, error) {
	from, to := filter.Range()
	matched := r.collect(func(a attendance.Attendance) bool {
		if filter.UserID != nil && *filter.UserID != "" && a.UserID != *filter.UserID {
			return false
		}
		if filter.TeamID != nil && *filter.TeamID != "" && a.TeamID != *filter.TeamID {
			return false
		}
		if filter.Status != nil && *filter.Status != "" && string(a.ApprovalStatus) != *filter.Status {
			return false
		}
		if from != nil && a.Date.Before(*from) {
			return false
		}
		if to != nil && a.Date.After(*to) {
			return false
		}
		return true
	}, false)

	total := int64(len(matched))
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := max(filter.Page, 1)
	offset := (page - 1) * limit
	if offset >= len(matched) {
		return []attendance.Attendance{}, total, nil
	}
	end := min(offset+limit, len(matched))
	return matched[offset:end], total, nil
}

func (r *attendanceRepository) collect(match func(attendance.Attendance) bool, ascending bool) []attendance.Attendance {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]attendance.Attendance, 0)
	for _, a := range values(r.store.attendances) {
		if match(a) {
			out = append(out, cloneAttendance(a))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			if ascending {
				return out[i].Date.Before(out[j].Date)
			}
			return out[i].Date.After(out[j].Date)
		}
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].EntryNo < out[j].EntryNo
	})
	return out
}
