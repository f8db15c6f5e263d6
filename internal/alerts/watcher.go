package alerts

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/cargoflow/partner-pulse/internal/config"
	"github.com/cargoflow/partner-pulse/internal/model"
)

// AnalyzeFunc re-runs a full analysis pass and returns the prioritized
// alerts. The watcher owns no analysis logic itself so it stays decoupled
// from the engine.
type AnalyzeFunc func(ctx context.Context) ([]model.PrioritizedAlert, error)

// Watcher periodically re-runs analysis, invalidates the cache and pushes
// fresh alerts through the notifier.
type Watcher struct {
	analyze  AnalyzeFunc
	notifier *Notifier
	cache    *Cache
	cfg      config.WatchConfig
}

// NewWatcher creates a background analysis watcher.
func NewWatcher(analyze AnalyzeFunc, notifier *Notifier, cache *Cache, cfg config.WatchConfig) *Watcher {
	return &Watcher{
		analyze:  analyze,
		notifier: notifier,
		cache:    cache,
		cfg:      cfg,
	}
}

// Run starts the periodic analysis loop. It blocks until ctx is cancelled.
// One pass runs immediately on start so the cache is warm before the first
// tick.
func (w *Watcher) Run(ctx context.Context) {
	interval := time.Duration(w.cfg.IntervalSecs) * time.Second
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	log := zap.L().With(zap.String("component", "alerts.watcher"))
	log.Info("starting analysis watcher", zap.Duration("interval", interval))

	w.pass(ctx, log)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("analysis watcher stopped")
			return
		case <-ticker.C:
			w.pass(ctx, log)
		}
	}
}

func (w *Watcher) pass(ctx context.Context, log *zap.Logger) {
	prioritized, err := w.analyze(ctx)
	if err != nil {
		log.Error("alerts: analysis pass failed", zap.Error(err))
		return
	}

	if w.cache != nil {
		w.cache.InvalidateAll()
	}

	if len(prioritized) == 0 {
		log.Debug("alerts: no alerts detected")
		return
	}

	sent := 0
	if w.notifier != nil {
		sent = w.notifier.Send(ctx, prioritized)
	}
	log.Info("alerts: analysis pass complete",
		zap.Int("alerts", len(prioritized)),
		zap.Int("sent", sent),
	)
}
