package workday

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-03-09")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2024, Month: time.March, Day: 9}, d)
	assert.Equal(t, "2024-03-09", d.String())

	_, err = ParseDate("2024-13-01")
	assert.Error(t, err)
}

func TestDate_Weekend(t *testing.T) {
	assert.True(t, NewDate(2024, time.March, 9).IsWeekend())  // Saturday
	assert.True(t, NewDate(2024, time.March, 10).IsWeekend()) // Sunday
	assert.False(t, NewDate(2024, time.March, 11).IsWeekend())
}

func TestDate_MonthBounds(t *testing.T) {
	d := NewDate(2024, time.February, 14)
	assert.Equal(t, NewDate(2024, time.February, 1), d.FirstOfMonth())
	assert.Equal(t, NewDate(2024, time.February, 29), d.LastOfMonth())
	assert.True(t, d.SameMonth(NewDate(2024, time.February, 29)))
	assert.False(t, d.SameMonth(NewDate(2024, time.March, 1)))
}

func TestDate_AddDaysAcrossMonth(t *testing.T) {
	assert.Equal(t, NewDate(2024, time.April, 1), NewDate(2024, time.March, 31).AddDays(1))
	assert.Equal(t, NewDate(2023, time.December, 31), NewDate(2024, time.January, 1).AddDays(-1))
}

func TestDate_JSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, time.May, 2))
	require.NoError(t, err)
	assert.Equal(t, `"2024-05-02"`, string(b))

	var d Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-05-02"`), &d))
	assert.Equal(t, NewDate(2024, time.May, 2), d)
}

func TestParseTimeOfDay(t *testing.T) {
	tod, err := ParseTimeOfDay("10:35")
	require.NoError(t, err)
	assert.Equal(t, 635, tod.Minutes())
	assert.Equal(t, "10:35", tod.String())
	assert.Equal(t, "23:59", LastMinute.String())

	_, err = ParseTimeOfDay("25:00")
	assert.Error(t, err)
	_, err = ParseTimeOfDay("")
	assert.Error(t, err)
}

func TestClockOf(t *testing.T) {
	ts := time.Date(2024, time.March, 11, 5, 42, 59, 0, time.UTC)
	assert.Equal(t, MustParseTimeOfDay("05:42"), ClockOf(ts))
}
