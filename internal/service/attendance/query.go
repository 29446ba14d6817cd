package attendance

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/shopspring/decimal"
)

var minutesPerHour = decimal.NewFromInt(60)

// Get implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Get(ctx context.Context, id string) (attendance.AttendanceResponse, error) {
	rec, err := s.AttendanceRepository.GetByID(ctx, id)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.ToResponse(rec), nil
}

// List implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) List(ctx context.Context, filter attendance.AttendanceFilter) (attendance.ListAttendanceResponse, error) {
	if err := filter.Validate(); err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	records, total, err := s.AttendanceRepository.List(ctx, filter)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to list attendance: %w", err)
	}

	return attendance.ListAttendanceResponse{
		TotalCount:  total,
		Page:        filter.Page,
		Limit:       filter.Limit,
		TotalPages:  int(math.Ceil(float64(total) / float64(filter.Limit))),
		Attendances: attendance.ToResponses(records),
	}, nil
}

// MonthlyStats implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) MonthlyStats(ctx context.Context, req attendance.MonthlyStatsRequest) (attendance.MonthlyStatsResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.MonthlyStatsResponse{}, err
	}
	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return attendance.MonthlyStatsResponse{}, err
	}

	first := workday.NewDate(req.Year, time.Month(req.Month), 1)
	records, err := s.AttendanceRepository.ListByUserAndRange(ctx, req.UserID, first, first.LastOfMonth())
	if err != nil {
		return attendance.MonthlyStatsResponse{}, fmt.Errorf("failed to list monthly attendance: %w", err)
	}

	stats := attendance.MonthlyStatsResponse{
		UserID: req.UserID,
		Year:   req.Year,
		Month:  req.Month,
	}
	days := make(map[workday.Date]struct{})
	payable := decimal.Zero

	for _, rec := range records {
		days[rec.Date] = struct{}{}
		stats.TotalWorkMinutes += rec.TotalWorkMinutes
		stats.TotalExtraMinutes += rec.ExtraMinutes
		stats.TotalHolidayBonus += rec.HolidayBonusMinutes
		if !rec.IgnoreDeduction {
			stats.TotalDeductionMinutes += rec.DeductionMinutes
		}
		if rec.Flags.IsLate {
			stats.LateDays++
		}
		if rec.Flags.IsEarlyCheckout {
			stats.EarlyCheckouts++
		}
		if rec.Flags.IsBufferUsed {
			stats.BufferUsedDays++
		}

		earned := decimal.NewFromInt(int64(rec.ExtraMinutes + rec.HolidayBonusMinutes))
		switch rec.ApprovalStatus {
		case attendance.StatusApproved:
			stats.ApprovedRecords++
			payable = payable.Add(earned.Mul(rec.PayoutMultiplier))
		case attendance.StatusSinglePay:
			stats.SinglePayRecords++
			payable = payable.Add(earned)
		case attendance.StatusRejected:
			stats.RejectedRecords++
		case attendance.StatusNA:
			stats.NARecords++
		default:
			stats.PendingRecords++
		}
	}

	stats.TotalDays = len(days)
	stats.TotalWorkHours = hours(decimal.NewFromInt(int64(stats.TotalWorkMinutes)))
	stats.TotalDeductionHours = hours(decimal.NewFromInt(int64(stats.TotalDeductionMinutes)))
	stats.TotalExtraHours = hours(decimal.NewFromInt(int64(stats.TotalExtraMinutes)))
	stats.PayableExtraHours = hours(payable)
	return stats, nil
}

// hours renders minutes as hours with two decimals.
func hours(minutes decimal.Decimal) string {
	return minutes.Div(minutesPerHour).StringFixed(2)
}
