package engine

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cargoflow/partner-pulse/internal/alerts"
	"github.com/cargoflow/partner-pulse/internal/model"
)

var engNow = time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

// fixture builds three partners: ACME ordering steadily, FADE dropping 70%
// against its prior month, GONE silent since May.
func fixture() []model.OrderRecord {
	var records []model.OrderRecord
	for day := 2; day <= 31; day++ {
		sku := "S1"
		if day%2 == 1 {
			sku = "S2"
		}
		records = append(records, model.OrderRecord{
			PartnerID: "ACME", SKU: sku, Warehouse: "W1", Direction: "FBO",
			OrderDate: fmt.Sprintf("2026-07-%02d", day),
		})
	}
	for _, day := range []int{3, 6, 9, 12, 15, 18, 21, 24, 27, 30} {
		records = append(records, model.OrderRecord{
			PartnerID: "FADE", SKU: "F1", Direction: "FBO",
			OrderDate: fmt.Sprintf("2026-06-%02d", day),
		})
	}
	for _, day := range []int{26, 28, 30} {
		records = append(records, model.OrderRecord{
			PartnerID: "FADE", SKU: "F1", Direction: "FBO",
			OrderDate: fmt.Sprintf("2026-07-%02d", day),
		})
	}
	records = append(records,
		model.OrderRecord{PartnerID: "GONE", SKU: "G1", Direction: "FBO", OrderDate: "2026-05-01"},
		model.OrderRecord{PartnerID: "GONE", SKU: "G1", Direction: "FBO", OrderDate: "2026-05-01"},
	)
	return records
}

func TestEngine_Analyze(t *testing.T) {
	e := New(nil)
	res, err := e.Analyze(context.Background(), fixture(), Options{Now: engNow})
	require.NoError(t, err)

	require.Len(t, res.PartnerStats, 3)
	assert.Equal(t, "ACME", res.PartnerStats[0].PartnerID)
	assert.Equal(t, "FADE", res.PartnerStats[1].PartnerID)
	assert.Equal(t, "GONE", res.PartnerStats[2].PartnerID)
	assert.True(t, res.PartnerStats[2].IsChurned)
	assert.Equal(t, 100.0, res.PartnerStats[2].ChurnRisk)

	// GONE's stale SKU outranks FADE's volume decline.
	require.Len(t, res.Prioritized, 2)
	top := res.Prioritized[0]
	assert.Equal(t, "GONE", top.PartnerID)
	assert.Equal(t, model.AlertSKUChurn, top.Type)
	assert.Equal(t, 59.0, top.PriorityScore)
	assert.Equal(t, model.SeverityMedium, top.ScoredSeverity)

	second := res.Prioritized[1]
	assert.Equal(t, "FADE", second.PartnerID)
	assert.Equal(t, model.AlertOrderDecline, second.Type)
	assert.Equal(t, model.SeverityHigh, second.Severity)
	assert.Equal(t, "0.10", second.CurrentValue)
	assert.Equal(t, "0.33", second.BenchmarkValue)
	assert.Equal(t, 50.0, second.PriorityScore)
	assert.Equal(t, model.SizeMedium, second.CustomerSize)
	assert.True(t, second.IsNew)

	// Alerts attach back onto their owning stats rows.
	assert.Len(t, res.PartnerStats[1].Alerts, 1)
	assert.Empty(t, res.PartnerStats[0].Alerts)
	var goneSKU *model.SKUStats
	for i := range res.SKUStats {
		if res.SKUStats[i].PartnerID == "GONE" && res.SKUStats[i].SKU == "G1" {
			goneSKU = &res.SKUStats[i]
		}
	}
	require.NotNil(t, goneSKU)
	assert.Len(t, goneSKU.Alerts, 1)

	// Grouping: both alerts scored medium; churn group carries more priority.
	require.Len(t, res.Groups, 2)
	assert.Equal(t, model.CategoryChurn, res.Groups[0].Category)
	assert.Equal(t, model.CategoryVolume, res.Groups[1].Category)
}

func TestEngine_Analyze_Idempotent(t *testing.T) {
	e := New(nil)
	opts := Options{Now: engNow, Concurrency: 2}

	first, err := e.Analyze(context.Background(), fixture(), opts)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), fixture(), opts)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_Analyze_DirectionFilter(t *testing.T) {
	records := append(fixture(), model.OrderRecord{
		PartnerID: "XDIR", SKU: "X1", Direction: "FBS", OrderDate: "2026-07-20",
	})

	e := New(nil)
	res, err := e.Analyze(context.Background(), records, Options{Now: engNow, Direction: "FBO"})
	require.NoError(t, err)

	for _, ps := range res.PartnerStats {
		assert.NotEqual(t, "XDIR", ps.PartnerID)
	}
}

func TestEngine_Analyze_KnownAlertsSuppressNewBonus(t *testing.T) {
	firstSeen := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	key := "FADE||" + string(model.AlertOrderDecline) + "|" + string(model.Timeframe30d)

	e := New(nil)
	res, err := e.Analyze(context.Background(), fixture(), Options{
		Now:         engNow,
		KnownAlerts: map[string]time.Time{key: firstSeen},
	})
	require.NoError(t, err)

	var fade *model.PrioritizedAlert
	for i := range res.Prioritized {
		if res.Prioritized[i].PartnerID == "FADE" {
			fade = &res.Prioritized[i]
		}
	}
	require.NotNil(t, fade)
	assert.False(t, fade.IsNew)
	assert.Equal(t, firstSeen, fade.DetectedAt)
	// 50 without the +5 new-alert bonus.
	assert.Equal(t, 45.0, fade.PriorityScore)
}

func TestEngine_Analyze_NewAlertWindowKeepsRecentAlertsNew(t *testing.T) {
	firstSeen := engNow.Add(-48 * time.Hour)
	key := "FADE||" + string(model.AlertOrderDecline) + "|" + string(model.Timeframe30d)

	e := New(nil)
	res, err := e.Analyze(context.Background(), fixture(), Options{
		Now:            engNow,
		KnownAlerts:    map[string]time.Time{key: firstSeen},
		NewAlertWindow: 7 * 24 * time.Hour,
	})
	require.NoError(t, err)

	var fade *model.PrioritizedAlert
	for i := range res.Prioritized {
		if res.Prioritized[i].PartnerID == "FADE" {
			fade = &res.Prioritized[i]
		}
	}
	require.NotNil(t, fade)
	assert.True(t, fade.IsNew)
	assert.Equal(t, firstSeen, fade.DetectedAt)
}

func TestEngine_Analyze_PublishesToCache(t *testing.T) {
	cache := alerts.NewCache()
	e := New(cache)

	_, err := e.Analyze(context.Background(), fixture(), Options{Now: engNow})
	require.NoError(t, err)

	assert.Equal(t, []string{"ACME", "FADE", "GONE"}, cache.Keys())

	acme, ok := cache.Get("ACME")
	require.True(t, ok)
	assert.Empty(t, acme.Alerts)

	fade, ok := cache.Get("FADE")
	require.True(t, ok)
	require.Len(t, fade.Alerts, 1)
	assert.Equal(t, model.AlertOrderDecline, fade.Alerts[0].Type)
}

func TestEngine_AnalyzePartner_UsesCache(t *testing.T) {
	cache := alerts.NewCache()
	e := New(cache)

	_, err := e.Analyze(context.Background(), fixture(), Options{Now: engNow})
	require.NoError(t, err)

	cached, ok := cache.Get("FADE")
	require.True(t, ok)

	got, err := e.AnalyzePartner(context.Background(), "FADE", fixture(), Options{Now: engNow})
	require.NoError(t, err)
	assert.Same(t, cached, got)
}

func TestEngine_AnalyzePartner_ComputesOnMiss(t *testing.T) {
	cache := alerts.NewCache()
	e := New(cache)

	got, err := e.AnalyzePartner(context.Background(), "FADE", fixture(), Options{Now: engNow})
	require.NoError(t, err)
	require.Len(t, got.Alerts, 1)
	assert.Equal(t, model.AlertOrderDecline, got.Alerts[0].Type)
	assert.Equal(t, 50.0, got.Alerts[0].PriorityScore)

	// The computed result is now cached.
	cached, ok := cache.Get("FADE")
	require.True(t, ok)
	assert.Same(t, got, cached)
}

func TestEngine_Analyze_EmptyInput(t *testing.T) {
	e := New(nil)
	res, err := e.Analyze(context.Background(), nil, Options{Now: engNow})
	require.NoError(t, err)
	assert.Empty(t, res.PartnerStats)
	assert.Empty(t, res.Prioritized)
	assert.Empty(t, res.Groups)
}
