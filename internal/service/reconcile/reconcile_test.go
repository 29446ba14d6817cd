package reconcile

import (
	"testing"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/service/rules"
	"github.com/stretchr/testify/assert"
)

var policy = rules.Policy{BufferMinutes: 30, ReducedBufferMinutes: 10, SafeZoneMinutes: 10}

func clock(s string) *workday.TimeOfDay {
	t := workday.MustParseTimeOfDay(s)
	return &t
}

func bufferUsedRecord(checkIn, checkOut string) attendance.Attendance {
	in, out := clock(checkIn), clock(checkOut)
	return attendance.Attendance{
		ID:               "rec-1",
		UserID:           "user-1",
		Date:             workday.NewDate(2024, 3, 11),
		CheckIn:          in,
		CheckOut:         out,
		OfficeStart:      workday.MustParseTimeOfDay("10:00"),
		OfficeEnd:        workday.MustParseTimeOfDay("19:00"),
		TotalWorkMinutes: int(*out) - int(*in),
		ApprovalStatus:   attendance.StatusPending,
		EntryNo:          1,
		Flags:            attendance.Flags{IsBufferUsed: true},
	}
}

func TestApplyReducedBuffer(t *testing.T) {
	t.Run("check-in past reduced window becomes late", func(t *testing.T) {
		rec := bufferUsedRecord("10:20", "19:30")
		rec.ExtraMinutes = 10
		rec.Flags.HasExtraHours = true

		assert.True(t, ApplyReducedBuffer(&rec, policy))
		assert.True(t, rec.Flags.IsLate)
		assert.True(t, rec.Flags.HasDeduction)
		assert.True(t, rec.Flags.IsBufferAbused)
		assert.Equal(t, 20, rec.DeductionMinutes)
		assert.Equal(t, 30, rec.ExtraMinutes)
	})

	t.Run("keeps early checkout deduction", func(t *testing.T) {
		rec := bufferUsedRecord("10:20", "18:30")
		rec.Flags.IsEarlyCheckout = true
		rec.Flags.HasDeduction = true
		rec.DeductionMinutes = 50

		assert.True(t, ApplyReducedBuffer(&rec, policy))
		assert.Equal(t, 50, rec.DeductionMinutes)
		assert.Equal(t, 0, rec.ExtraMinutes)
		assert.False(t, rec.Flags.HasExtraHours)
	})

	t.Run("check-in inside reduced window is untouched", func(t *testing.T) {
		rec := bufferUsedRecord("10:10", "19:10")
		assert.False(t, ApplyReducedBuffer(&rec, policy))
		assert.False(t, rec.Flags.IsLate)
	})

	t.Run("skips records outside scope", func(t *testing.T) {
		incremented := bufferUsedRecord("10:20", "19:00")
		incremented.BufferIncrementedThisDay = true
		assert.False(t, ApplyReducedBuffer(&incremented, policy))

		approved := bufferUsedRecord("10:20", "19:00")
		approved.ApprovalStatus = attendance.StatusApproved
		assert.False(t, ApplyReducedBuffer(&approved, policy))

		weekend := bufferUsedRecord("10:20", "19:00")
		weekend.IsWeekendWork = true
		assert.False(t, ApplyReducedBuffer(&weekend, policy))

		additional := bufferUsedRecord("10:20", "19:00")
		additional.EntryNo = 2
		assert.False(t, ApplyReducedBuffer(&additional, policy))
	})

	t.Run("second run changes nothing", func(t *testing.T) {
		rec := bufferUsedRecord("10:25", "19:00")
		assert.True(t, ApplyReducedBuffer(&rec, policy))
		once := rec
		assert.False(t, ApplyReducedBuffer(&rec, policy))
		assert.Equal(t, once, rec)
	})
}

func TestRestoreFullBuffer(t *testing.T) {
	t.Run("reverts to buffer used inside full window", func(t *testing.T) {
		rec := bufferUsedRecord("10:20", "19:30")
		ApplyReducedBuffer(&rec, policy)

		assert.True(t, RestoreFullBuffer(&rec, policy))
		assert.False(t, rec.Flags.IsLate)
		assert.False(t, rec.Flags.IsBufferAbused)
		assert.False(t, rec.Flags.HasDeduction)
		assert.True(t, rec.Flags.IsBufferUsed)
		assert.Equal(t, 0, rec.DeductionMinutes)
		assert.Equal(t, 10, rec.ExtraMinutes)
	})

	t.Run("late on its own merits only loses the abuse mark", func(t *testing.T) {
		rec := bufferUsedRecord("10:45", "19:00")
		rec.Flags = attendance.Flags{IsLate: true, HasDeduction: true, IsBufferAbused: true}
		rec.DeductionMinutes = 45

		assert.True(t, RestoreFullBuffer(&rec, policy))
		assert.True(t, rec.Flags.IsLate)
		assert.False(t, rec.Flags.IsBufferAbused)
		assert.Equal(t, 45, rec.DeductionMinutes)
	})

	t.Run("retains early checkout deduction", func(t *testing.T) {
		rec := bufferUsedRecord("10:20", "18:30")
		rec.Flags = attendance.Flags{IsLate: true, HasDeduction: true, IsBufferAbused: true, IsEarlyCheckout: true}
		rec.DeductionMinutes = 50

		assert.True(t, RestoreFullBuffer(&rec, policy))
		assert.Equal(t, 30, rec.DeductionMinutes)
		assert.True(t, rec.Flags.HasDeduction)
		assert.Equal(t, 0, rec.ExtraMinutes)
	})

	t.Run("running twice equals running once", func(t *testing.T) {
		rec := bufferUsedRecord("10:20", "19:30")
		ApplyReducedBuffer(&rec, policy)

		RestoreFullBuffer(&rec, policy)
		once := rec
		assert.False(t, RestoreFullBuffer(&rec, policy))
		assert.Equal(t, once, rec)
	})
}
