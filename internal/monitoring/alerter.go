package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meowafisha/eventmap/internal/config"
	"github.com/meowafisha/eventmap/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertUnresolvedRate AlertType = "unresolved_rate"
	AlertFetchFailure   AlertType = "fetch_failure"
)

// minAddressesForRate keeps tiny runs from tripping the rate alert.
const minAddressesForRate = 5

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	RunID     string         `json:"run_id"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a finished run against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks a run result against thresholds and returns any alerts.
func (a *Alerter) Evaluate(res *model.RunResult) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	rate := res.UnresolvedRate()
	if res.Addresses >= minAddressesForRate && a.cfg.UnresolvedRateThreshold > 0 && rate > a.cfg.UnresolvedRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertUnresolvedRate,
			Severity: "medium",
			RunID:    res.RunID,
			Message: fmt.Sprintf(
				"%.1f%% of addresses unresolved, threshold %.1f%% (%d of %d)",
				rate*100, a.cfg.UnresolvedRateThreshold*100,
				len(res.Unresolved), res.Addresses,
			),
			Details: map[string]any{
				"unresolved_rate": rate,
				"threshold":       a.cfg.UnresolvedRateThreshold,
				"addresses":       strings.Join(res.Unresolved, ", "),
			},
			Timestamp: now,
		})
	}

	if res.FetchError != "" {
		alerts = append(alerts, Alert{
			Type:     AlertFetchFailure,
			Severity: "high",
			RunID:    res.RunID,
			Message:  fmt.Sprintf("post fetch aborted after %d posts: %s", res.PostsFetched, res.FetchError),
			Details: map[string]any{
				"posts_fetched": res.PostsFetched,
				"error":         res.FetchError,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// Notify evaluates res and sends whatever alerts it produces.
func (a *Alerter) Notify(ctx context.Context, res *model.RunResult) int {
	alerts := a.Evaluate(res)
	for _, alert := range alerts {
		zap.L().Warn("monitoring: alert raised",
			zap.String("type", string(alert.Type)),
			zap.String("run_id", alert.RunID),
			zap.String("message", alert.Message),
		)
	}
	return a.SendAlerts(ctx, alerts)
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
