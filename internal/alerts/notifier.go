package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/cargoflow/partner-pulse/internal/config"
	"github.com/cargoflow/partner-pulse/internal/model"
	"github.com/cargoflow/partner-pulse/internal/retry"
)

// Notifier delivers prioritized alerts to a webhook, rate-limited so a large
// analysis pass cannot flood the receiving channel.
type Notifier struct {
	cfg      config.NotifyConfig
	client   *http.Client
	limiter  *rate.Limiter
	retryCfg retry.Config
}

// NewNotifier creates a Notifier with the given notify config.
func NewNotifier(cfg config.NotifyConfig) *Notifier {
	perMin := cfg.RatePerMin
	if perMin <= 0 {
		perMin = 30
	}
	return &Notifier{
		cfg:     cfg,
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), 1),
		retryCfg: retry.Config{
			MaxAttempts:    3,
			InitialBackoff: 250 * time.Millisecond,
			MaxBackoff:     2 * time.Second,
			OnRetry:        retry.Logger("webhook"),
		},
	}
}

// Eligible returns the alerts at or above the configured minimum scored
// severity.
func (n *Notifier) Eligible(alerts []model.PrioritizedAlert) []model.PrioritizedAlert {
	min := model.Severity(n.cfg.MinSeverity)
	if min == "" {
		min = model.SeverityHigh
	}
	var out []model.PrioritizedAlert
	for _, a := range alerts {
		if model.SeverityRank(a.ScoredSeverity) <= model.SeverityRank(min) {
			out = append(out, a)
		}
	}
	return out
}

// Send delivers the eligible alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (n *Notifier) Send(ctx context.Context, alerts []model.PrioritizedAlert) int {
	if n.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range n.Eligible(alerts) {
		if err := n.limiter.Wait(ctx); err != nil {
			zap.L().Warn("alerts: notify cancelled", zap.Error(err))
			return sent
		}
		err := retry.Do(ctx, n.retryCfg, func(ctx context.Context) error {
			return n.sendWebhook(ctx, alert)
		})
		if err != nil {
			zap.L().Error("alerts: failed to send alert",
				zap.String("partner", alert.PartnerID),
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("alerts: alert sent",
			zap.String("partner", alert.PartnerID),
			zap.String("type", string(alert.Type)),
			zap.String("severity", string(alert.ScoredSeverity)),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (n *Notifier) sendWebhook(ctx context.Context, alert model.PrioritizedAlert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "alerts: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alerts: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alerts: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 500 {
		return retry.Transient(eris.Errorf("alerts: webhook returned status %d", resp.StatusCode), resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return eris.Errorf("alerts: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
