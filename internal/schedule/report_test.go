package schedule

import (
	"context"
	"testing"
	"time"

	"shifter/shift-service/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShiftSummary(t *testing.T) {
	st := newMemStore()
	for _, start := range []time.Time{at(0, 8, 0), at(0, 10, 59), at(0, 11, 0), at(0, 15, 0), at(0, 19, 15), at(0, 7, 0), at(1, 9, 0)} {
		st.put(models.Shift{EmployeeID: start.String(), BranchID: 1, StartTime: start, EndTime: start.Add(time.Hour)})
	}

	summary, err := New(st, Options{}).ShiftSummary(context.Background(), 1, monday.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, Summary{Date: "2024-01-01", Morning: 2, Afternoon: 1, Evening: 3, Total: 6}, summary)
	assert.Equal(t, summary.Total, summary.Morning+summary.Afternoon+summary.Evening)
}

func TestShiftSummaryEmptyBranch(t *testing.T) {
	summary, err := New(newMemStore(), Options{}).ShiftSummary(context.Background(), 9, monday)
	require.NoError(t, err)
	assert.Equal(t, Summary{Date: "2024-01-01"}, summary)
}

func TestHoursByPosition(t *testing.T) {
	st := newMemStore()
	st.put(models.Shift{EmployeeID: "E1", BranchID: 1, StartTime: at(0, 9, 0), EndTime: at(0, 13, 0), Position: "Cashier"})
	st.put(models.Shift{EmployeeID: "E2", BranchID: 1, StartTime: at(3, 14, 0), EndTime: at(3, 17, 30), Position: " Cashier "})
	st.put(models.Shift{EmployeeID: "E3", BranchID: 1, StartTime: at(6, 22, 0), EndTime: at(7, 2, 0)})
	st.put(models.Shift{EmployeeID: "E4", BranchID: 1, StartTime: at(7, 9, 0), EndTime: at(7, 12, 0), Position: "Baker"})
	st.put(models.Shift{EmployeeID: "E5", BranchID: 2, StartTime: at(0, 9, 0), EndTime: at(0, 12, 0), Position: "Baker"})

	hours, err := New(st, Options{}).HoursByPosition(context.Background(), 1, monday)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Cashier": 7.5, models.UnknownPosition: 4}, hours)
}
