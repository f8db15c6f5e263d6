package alerts

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cargoflow/partner-pulse/internal/config"
	"github.com/cargoflow/partner-pulse/internal/model"
)

func TestWatcher_RunsInitialPassAndInvalidatesCache(t *testing.T) {
	cache := NewCache()
	cache.Set("STALE", &AlertGroupResult{PartnerID: "STALE"})

	var passes atomic.Int64
	analyze := func(ctx context.Context) ([]model.PrioritizedAlert, error) {
		passes.Add(1)
		return nil, nil
	}

	w := NewWatcher(analyze, nil, cache, config.WatchConfig{IntervalSecs: 3600})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, int64(1), passes.Load())
	_, ok := cache.Get("STALE")
	assert.False(t, ok)
}

func TestWatcher_AnalysisErrorKeepsCache(t *testing.T) {
	cache := NewCache()
	cache.Set("KEEP", &AlertGroupResult{PartnerID: "KEEP"})

	analyze := func(ctx context.Context) ([]model.PrioritizedAlert, error) {
		return nil, context.DeadlineExceeded
	}

	w := NewWatcher(analyze, nil, cache, config.WatchConfig{IntervalSecs: 3600})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	_, ok := cache.Get("KEEP")
	assert.True(t, ok)
}

func TestWatcher_TicksUntilCancelled(t *testing.T) {
	var passes atomic.Int64
	analyze := func(ctx context.Context) ([]model.PrioritizedAlert, error) {
		passes.Add(1)
		return nil, nil
	}

	w := NewWatcher(analyze, nil, nil, config.WatchConfig{IntervalSecs: 0})
	// Zero interval falls back to the default; only the initial pass fits in
	// the test window.
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	w.Run(ctx)

	assert.Equal(t, int64(1), passes.Load())
}
