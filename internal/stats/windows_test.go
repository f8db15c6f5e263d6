package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/partner-pulse/internal/model"
)

var windowNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

func rec(partner, date string) model.OrderRecord {
	return model.OrderRecord{PartnerID: partner, OrderDate: date}
}

func TestWindowEnding_Bounds(t *testing.T) {
	w := WindowEnding(windowNow, 7)
	assert.Equal(t, time.Date(2026, 7, 25, 0, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, windowNow, w.End)
	assert.True(t, w.Contains(w.Start))
	assert.False(t, w.Contains(w.End))
	assert.Equal(t, 7.0, w.Days())
}

func TestWindow_PriorWindow(t *testing.T) {
	w := WindowEnding(windowNow, 30)
	prior := w.PriorWindow()
	assert.Equal(t, w.Start, prior.End)
	assert.Equal(t, time.Date(2026, 6, 2, 0, 0, 0, 0, time.UTC), prior.Start)
}

func TestRecordsInWindow_SkipsUnparsableDates(t *testing.T) {
	records := []model.OrderRecord{
		rec("A", "2026-07-28"),
		rec("A", "garbage"),
		rec("A", "2026-06-01"),
	}
	in := RecordsInWindow(records, WindowEnding(windowNow, 7))
	require.Len(t, in, 1)
	assert.Equal(t, "2026-07-28", in[0].OrderDate)
}

func TestWindowRate(t *testing.T) {
	records := []model.OrderRecord{
		rec("A", "2026-07-10"),
		rec("A", "2026-07-20"),
		rec("A", "2026-07-30"),
	}
	assert.InDelta(t, 0.10, WindowRate(records, WindowEnding(windowNow, 30)), 1e-9)
}

func TestOrderDates_DistinctAndSorted(t *testing.T) {
	records := []model.OrderRecord{
		rec("A", "2026-07-04"),
		rec("A", "2026-07-01"),
		rec("A", "2026-07-04T10:00:00Z"),
	}
	dates := OrderDates(records)
	require.Len(t, dates, 2)
	assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC), dates[1])
}

func TestDailyCounts(t *testing.T) {
	records := []model.OrderRecord{
		rec("A", "2026-07-01"),
		rec("A", "2026-07-01"),
		rec("A", "2026-07-03"),
	}
	dates, counts := DailyCounts(records)
	require.Len(t, dates, 2)
	assert.Equal(t, []float64{2, 1}, counts)
}

func TestIntervals(t *testing.T) {
	dates := []time.Time{
		time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 7, 5, 0, 0, 0, 0, time.UTC),
	}
	assert.Equal(t, []float64{1, 3}, Intervals(dates))
	assert.Nil(t, Intervals(dates[:1]))
}

func TestDistinctWarehouses(t *testing.T) {
	records := []model.OrderRecord{
		{Warehouse: "MSK-1"},
		{Warehouse: "MSK-1"},
		{Warehouse: "SPB-2"},
		{Warehouse: ""},
	}
	assert.Equal(t, 2, DistinctWarehouses(records))
}
