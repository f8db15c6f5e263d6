// Package engine orchestrates a full analysis pass: aggregation, anomaly
// detection, scoring, grouping and cache publication. A pass is synchronous
// and deterministic given Options.Now; the input record slice is treated as
// an immutable snapshot.
package engine

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cargoflow/partner-pulse/internal/alerts"
	"github.com/cargoflow/partner-pulse/internal/anomaly"
	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/scoring"
	"github.com/cargoflow/partner-pulse/internal/stats"
)

// Options parameterizes one analysis pass.
type Options struct {
	// Now is the single time reference for the whole pass. Zero means
	// time.Now().UTC().
	Now time.Time
	// Direction restricts the pass to records with this effective direction.
	// Empty means all directions.
	Direction string
	// Benchmarks maps partner id to a stored orders-per-day snapshot.
	Benchmarks map[string]model.Benchmark
	// AvgOrderValue is the assumed revenue per order. Zero falls back to 2500.
	AvgOrderValue float64
	// Concurrency bounds the per-partner detection fan-out. Zero means 4.
	Concurrency int
	// KnownAlerts maps alert keys to their first detection time. Alerts not
	// present are new; known alerts keep their original DetectedAt.
	KnownAlerts map[string]time.Time
	// NewAlertWindow keeps a known alert flagged as new while its first
	// detection is this recent. Zero disables the grace window.
	NewAlertWindow time.Duration
}

func (o Options) now() time.Time {
	if o.Now.IsZero() {
		return time.Now().UTC()
	}
	return o.Now.UTC()
}

func (o Options) avgOrderValue() float64 {
	if o.AvgOrderValue <= 0 {
		return 2500
	}
	return o.AvgOrderValue
}

func (o Options) concurrency() int {
	if o.Concurrency <= 0 {
		return 4
	}
	return o.Concurrency
}

// Result is the output of one analysis pass.
type Result struct {
	PartnerStats []model.PartnerStats
	SKUStats     []model.SKUStats
	Prioritized  []model.PrioritizedAlert
	Groups       []model.AlertGroup
}

// Engine runs analysis passes and publishes per-partner results to an
// optional cache.
type Engine struct {
	cache *alerts.Cache
}

// New creates an engine. cache may be nil when no caching is wanted.
func New(cache *alerts.Cache) *Engine {
	return &Engine{cache: cache}
}

// Cache exposes the engine's cache to callers that invalidate on fresh data.
func (e *Engine) Cache() *alerts.Cache {
	return e.cache
}

// Analyze runs a full pass over the record snapshot. Detection fans out per
// partner under the configured concurrency bound; results reassemble in
// sorted partner order so the output is independent of scheduling.
func (e *Engine) Analyze(ctx context.Context, records []model.OrderRecord, opts Options) (*Result, error) {
	now := opts.now()
	filtered := filterDirection(records, opts.Direction)

	partnerStats := stats.BuildPartnerStats(filtered, now)
	skuStats := stats.BuildSKUStats(filtered, now)

	byPartner := groupByPartner(filtered)
	names := make([]string, 0, len(byPartner))
	for name := range byPartner {
		names = append(names, name)
	}
	sort.Strings(names)

	detector := anomaly.NewDetector(now, opts.Benchmarks)
	detected := make([][]model.AnomalyAlert, len(names))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.concurrency())
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			out := detector.DetectPartner(name, byPartner[name])
			out = append(out, detector.DetectSKUs(name, byPartner[name])...)
			detected[i] = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "engine: partner detection")
	}

	scorer := scoring.NewScorer(partnerStats, opts.avgOrderValue(), now)
	statsByPartner := primaryStats(partnerStats)

	var prioritized []model.PrioritizedAlert
	for i, name := range names {
		ps := statsByPartner[name]
		velocity := velocity30(byPartner[name], now)
		for _, a := range detected[i] {
			prioritized = append(prioritized, e.prioritize(scorer, a, ps, velocity, now, opts))
		}
	}
	sortPrioritized(prioritized)

	attachAlerts(partnerStats, skuStats, prioritized)

	result := &Result{
		PartnerStats: partnerStats,
		SKUStats:     skuStats,
		Prioritized:  prioritized,
		Groups:       alerts.Group(prioritized),
	}

	e.publish(result, names, now)

	zap.L().Info("engine: analysis pass complete",
		zap.Int("partners", len(partnerStats)),
		zap.Int("skus", len(skuStats)),
		zap.Int("alerts", len(prioritized)),
	)
	return result, nil
}

// AnalyzePartner computes (or serves from cache) the alert view for a single
// partner. The full record snapshot is still required: size classification
// ranks the partner against the whole population. Begin/End marks the
// computation in progress; concurrent calls may both compute and the last
// write wins.
func (e *Engine) AnalyzePartner(ctx context.Context, partnerID string, records []model.OrderRecord, opts Options) (*alerts.AlertGroupResult, error) {
	if e.cache != nil {
		if r, ok := e.cache.Get(partnerID); ok {
			return r, nil
		}
		e.cache.Begin(partnerID)
		defer e.cache.End(partnerID)
	}

	now := opts.now()
	filtered := filterDirection(records, opts.Direction)
	partnerStats := stats.BuildPartnerStats(filtered, now)

	var partnerRecords []model.OrderRecord
	for _, r := range filtered {
		if r.PartnerID == partnerID {
			partnerRecords = append(partnerRecords, r)
		}
	}

	detector := anomaly.NewDetector(now, opts.Benchmarks)
	raw := detector.DetectPartner(partnerID, partnerRecords)
	raw = append(raw, detector.DetectSKUs(partnerID, partnerRecords)...)

	scorer := scoring.NewScorer(partnerStats, opts.avgOrderValue(), now)
	ps := primaryStats(partnerStats)[partnerID]
	velocity := velocity30(partnerRecords, now)

	prioritized := make([]model.PrioritizedAlert, 0, len(raw))
	for _, a := range raw {
		prioritized = append(prioritized, e.prioritize(scorer, a, ps, velocity, now, opts))
	}
	sortPrioritized(prioritized)

	result := &alerts.AlertGroupResult{
		PartnerID:  partnerID,
		Alerts:     prioritized,
		Groups:     alerts.Group(prioritized),
		ComputedAt: now,
	}
	if e.cache != nil {
		e.cache.Set(partnerID, result)
	}
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "engine: analyze partner")
	}
	return result, nil
}

func (e *Engine) prioritize(scorer *scoring.Scorer, a model.AnomalyAlert, ps model.PartnerStats, velocity float64, now time.Time, opts Options) model.PrioritizedAlert {
	firstSeen, known := opts.KnownAlerts[a.Key()]
	isNew := !known
	if known && opts.NewAlertWindow > 0 && now.Sub(firstSeen) <= opts.NewAlertWindow {
		isNew = true
	}
	out := scorer.Prioritize(a, ps, velocity, isNew)
	if known {
		out.DetectedAt = firstSeen.UTC()
	}
	return out
}

// publish pushes each partner's slice of the pass into the cache.
func (e *Engine) publish(result *Result, names []string, now time.Time) {
	if e.cache == nil {
		return
	}
	perPartner := make(map[string][]model.PrioritizedAlert)
	for _, a := range result.Prioritized {
		perPartner[a.PartnerID] = append(perPartner[a.PartnerID], a)
	}
	for _, name := range names {
		members := perPartner[name]
		e.cache.Set(name, &alerts.AlertGroupResult{
			PartnerID:  name,
			Alerts:     members,
			Groups:     alerts.Group(members),
			ComputedAt: now,
		})
	}
}

func filterDirection(records []model.OrderRecord, direction string) []model.OrderRecord {
	if direction == "" {
		return records
	}
	var out []model.OrderRecord
	for _, r := range records {
		if r.EffectiveDirection() == direction {
			out = append(out, r)
		}
	}
	return out
}

func groupByPartner(records []model.OrderRecord) map[string][]model.OrderRecord {
	out := make(map[string][]model.OrderRecord)
	for _, r := range records {
		if r.PartnerID == "" {
			continue
		}
		out[r.PartnerID] = append(out[r.PartnerID], r)
	}
	return out
}

// primaryStats picks one PartnerStats per partner id. BuildPartnerStats sorts
// by total orders descending, so the first entry seen is the partner's
// dominant direction.
func primaryStats(population []model.PartnerStats) map[string]model.PartnerStats {
	out := make(map[string]model.PartnerStats, len(population))
	for _, ps := range population {
		if _, ok := out[ps.PartnerID]; !ok {
			out[ps.PartnerID] = ps
		}
	}
	return out
}

func velocity30(records []model.OrderRecord, now time.Time) float64 {
	w30 := stats.WindowEnding(now, 30)
	return float64(len(stats.RecordsInWindow(records, w30))) / w30.Days()
}

func sortPrioritized(alerts []model.PrioritizedAlert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		if alerts[i].PriorityScore != alerts[j].PriorityScore {
			return alerts[i].PriorityScore > alerts[j].PriorityScore
		}
		if alerts[i].PartnerID != alerts[j].PartnerID {
			return alerts[i].PartnerID < alerts[j].PartnerID
		}
		if alerts[i].SKU != alerts[j].SKU {
			return alerts[i].SKU < alerts[j].SKU
		}
		return alerts[i].Type < alerts[j].Type
	})
}

// attachAlerts copies each alert onto its owning PartnerStats (partner-level
// alerts) or SKUStats (SKU-level alerts).
func attachAlerts(partnerStats []model.PartnerStats, skuStats []model.SKUStats, prioritized []model.PrioritizedAlert) {
	partnerAlerts := make(map[string][]model.AnomalyAlert)
	skuAlerts := make(map[string][]model.AnomalyAlert)
	for _, a := range prioritized {
		if a.SKU == "" {
			partnerAlerts[a.PartnerID] = append(partnerAlerts[a.PartnerID], a.AnomalyAlert)
		} else {
			skuAlerts[a.PartnerID+"|"+a.SKU] = append(skuAlerts[a.PartnerID+"|"+a.SKU], a.AnomalyAlert)
		}
	}
	for i := range partnerStats {
		partnerStats[i].Alerts = partnerAlerts[partnerStats[i].PartnerID]
	}
	for i := range skuStats {
		skuStats[i].Alerts = skuAlerts[skuStats[i].PartnerID+"|"+skuStats[i].SKU]
	}
}
