package postgresql_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/buffer"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/settings"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/user"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/cmlabs-hris/attendance-engine/internal/repository/postgresql"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttendanceRepository_RoundTrip(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	userID, err := setup.SeedUser(ctx, "Budi", "101")
	require.NoError(t, err)

	repo := postgresql.NewAttendanceRepository(setup.DB)
	date := workday.NewDate(2024, 3, 11)
	checkIn := workday.MustParseTimeOfDay("10:20")
	checkOut := workday.MustParseTimeOfDay("19:30")

	created, err := repo.Create(ctx, attendance.Attendance{
		UserID:           userID,
		Date:             date,
		CheckIn:          &checkIn,
		CheckOut:         &checkOut,
		OfficeStart:      workday.MustParseTimeOfDay("10:00"),
		OfficeEnd:        workday.MustParseTimeOfDay("19:00"),
		TotalWorkMinutes: 550,
		ExtraMinutes:     10,
		Flags:            attendance.Flags{IsBufferUsed: true},
		SettingsSnapshot: settings.Snapshot{BufferMinutes: 30, Version: 1},
		ApprovalStatus:   attendance.StatusPending,
		PayoutMultiplier: decimal.RequireFromString("1.5"),
		EntryNo:          1,
	})
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)

	_, err = repo.Create(ctx, attendance.Attendance{UserID: userID, Date: date, EntryNo: 1, PayoutMultiplier: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, attendance.ErrAttendanceExists)

	got, err := repo.GetPrimary(ctx, userID, date)
	require.NoError(t, err)
	assert.Equal(t, date, got.Date)
	require.True(t, got.HasTimes())
	assert.Equal(t, checkIn, *got.CheckIn)
	assert.Equal(t, checkOut, *got.CheckOut)
	assert.True(t, got.Flags.IsBufferUsed)
	assert.Equal(t, 30, got.SettingsSnapshot.BufferMinutes)
	assert.True(t, decimal.RequireFromString("1.5").Equal(got.PayoutMultiplier))

	got.ApprovalStatus = attendance.StatusApproved
	got.AdjustmentHistory = append(got.AdjustmentHistory, attendance.Adjustment{Reason: "fix", ToExtra: 20})
	require.NoError(t, repo.Update(ctx, got))

	updated, err := repo.GetByID(ctx, got.ID)
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusApproved, updated.ApprovalStatus)
	require.Len(t, updated.AdjustmentHistory, 1)

	list, err := repo.ListByUserAndRange(ctx, userID, date.FirstOfMonth(), date.LastOfMonth())
	require.NoError(t, err)
	assert.Len(t, list, 1)

	segment, err := repo.Create(ctx, attendance.Attendance{
		UserID:           userID,
		Date:             date.AddDays(1),
		EntryNo:          2,
		SplitParentID:    got.ID,
		PayoutMultiplier: decimal.NewFromInt(1),
	})
	require.NoError(t, err)
	stored, err := repo.GetByID(ctx, segment.ID)
	require.NoError(t, err)
	assert.Equal(t, got.ID, stored.SplitParentID)

	removed, err := repo.DeleteSplitSegments(ctx, got.ID)
	require.NoError(t, err)
	require.Len(t, removed, 1)
	assert.Equal(t, segment.ID, removed[0].ID)

	require.NoError(t, repo.Delete(ctx, got.ID))
	_, err = repo.GetByID(ctx, got.ID)
	assert.ErrorIs(t, err, attendance.ErrAttendanceNotFound)
}

func TestCounterRepository_CreateIsIdempotent(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	userID, err := setup.SeedUser(ctx, "Budi", "101")
	require.NoError(t, err)

	repo := postgresql.NewCounterRepository(setup.DB)
	first, err := repo.Create(ctx, buffer.Counter{UserID: userID, Year: 2024, Month: time.March})
	require.NoError(t, err)

	first.UsageCount = 1
	first.UsageDates = []workday.Date{workday.NewDate(2024, 3, 11)}
	require.NoError(t, repo.Update(ctx, first))

	again, err := repo.Create(ctx, buffer.Counter{UserID: userID, Year: 2024, Month: time.March})
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)
	assert.Equal(t, 1, again.UsageCount)
	assert.Equal(t, []workday.Date{workday.NewDate(2024, 3, 11)}, again.UsageDates)
}

func TestSettingsRepository_SingleActiveVersion(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	repo := postgresql.NewSettingsRepository(setup.DB)

	_, err := repo.GetActive(ctx)
	assert.ErrorIs(t, err, settings.ErrNoActiveSettings)

	first, err := repo.Create(ctx, settings.Defaults())
	require.NoError(t, err)
	second, err := repo.Create(ctx, settings.Defaults())
	require.NoError(t, err)
	assert.Equal(t, first.Version+1, second.Version)

	holidays := []settings.Holiday{{Date: workday.NewDate(2024, 3, 11), Name: "Nyepi", AddedAt: time.Now().UTC()}}
	require.NoError(t, repo.SaveHolidays(ctx, second.ID, holidays))

	active, err := repo.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
	require.Len(t, active.Holidays, 1)
	assert.Equal(t, "Nyepi", active.Holidays[0].Name)
}

func TestTransactor_RollsBack(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	userID, err := setup.SeedUser(ctx, "Budi", "101")
	require.NoError(t, err)

	repo := postgresql.NewAttendanceRepository(setup.DB)
	boom := errors.New("boom")
	date := workday.NewDate(2024, 3, 11)

	err = postgresql.NewTransactor(setup.DB).WithinTransaction(ctx, func(ctx context.Context) error {
		_, err := repo.Create(ctx, attendance.Attendance{UserID: userID, Date: date, EntryNo: 1, PayoutMultiplier: decimal.NewFromInt(1)})
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	exists, err := repo.ExistsPrimary(ctx, userID, date)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserRepository_GetByBiometricID(t *testing.T) {
	ctx := context.Background()
	setup := NewTestDatabase(t)
	userID, err := setup.SeedUser(ctx, "Budi", "101")
	require.NoError(t, err)

	repo := postgresql.NewUserRepository(setup.DB)
	u, err := repo.GetByBiometricID(ctx, "101")
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	assert.True(t, u.Multiplier().Equal(decimal.NewFromInt(1)))

	_, err = repo.GetByBiometricID(ctx, "999")
	assert.ErrorIs(t, err, user.ErrUserNotFound)
}
