package punch

import (
	"testing"
	"time"

	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/cmlabs-hris/attendance-engine/internal/pkg/workday"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04:05", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestWorkDateOf(t *testing.T) {
	assert.Equal(t, workday.NewDate(2024, 3, 11), WorkDateOf(at("2024-03-11T06:00:00")))
	assert.Equal(t, workday.NewDate(2024, 3, 10), WorkDateOf(at("2024-03-11T05:59:59")))
	assert.Equal(t, workday.NewDate(2024, 2, 29), WorkDateOf(at("2024-03-01T01:30:00")))
}

func TestGroup(t *testing.T) {
	t.Run("takes first and last punch of a day", func(t *testing.T) {
		groups := Group([]punch.Punch{
			{EmployeeID: "7", Timestamp: at("2024-03-11T19:02:00")},
			{EmployeeID: "7", Timestamp: at("2024-03-11T10:05:00")},
			{EmployeeID: "7", Timestamp: at("2024-03-11T13:00:00")},
		})

		require.Len(t, groups, 1)
		assert.Equal(t, workday.NewDate(2024, 3, 11), groups[0].WorkDate)
		assert.Equal(t, at("2024-03-11T10:05:00"), groups[0].First())
		assert.Equal(t, at("2024-03-11T19:02:00"), groups[0].Last())
	})

	t.Run("early morning punch closes previous day", func(t *testing.T) {
		groups := Group([]punch.Punch{
			{EmployeeID: "7", Timestamp: at("2024-03-12T01:30:00")},
			{EmployeeID: "7", Timestamp: at("2024-03-11T20:00:00")},
		})

		require.Len(t, groups, 1)
		assert.Equal(t, workday.NewDate(2024, 3, 11), groups[0].WorkDate)
		assert.Equal(t, at("2024-03-12T01:30:00"), groups[0].Last())
	})

	t.Run("drops single punch groups", func(t *testing.T) {
		groups := Group([]punch.Punch{
			{EmployeeID: "7", Timestamp: at("2024-03-11T10:00:00")},
			{EmployeeID: "8", Timestamp: at("2024-03-11T10:00:00")},
			{EmployeeID: "8", Timestamp: at("2024-03-11T18:00:00")},
		})

		require.Len(t, groups, 1)
		assert.Equal(t, "8", groups[0].EmployeeID)
	})

	t.Run("orders by employee then date", func(t *testing.T) {
		groups := Group([]punch.Punch{
			{EmployeeID: "b", Timestamp: at("2024-03-12T10:00:00")},
			{EmployeeID: "b", Timestamp: at("2024-03-12T18:00:00")},
			{EmployeeID: "a", Timestamp: at("2024-03-13T10:00:00")},
			{EmployeeID: "a", Timestamp: at("2024-03-13T18:00:00")},
			{EmployeeID: "a", Timestamp: at("2024-03-11T10:00:00")},
			{EmployeeID: "a", Timestamp: at("2024-03-11T18:00:00")},
		})

		require.Len(t, groups, 3)
		assert.Equal(t, "a", groups[0].EmployeeID)
		assert.Equal(t, 11, groups[0].WorkDate.Day)
		assert.Equal(t, 13, groups[1].WorkDate.Day)
		assert.Equal(t, "b", groups[2].EmployeeID)

		byEmployee := ByEmployee(groups)
		assert.Len(t, byEmployee["a"], 2)
		assert.Len(t, byEmployee["b"], 1)
	})
}
