package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/vetlink-group/intel-cli/internal/config"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertLowConfidence   AlertType = "low_mean_confidence"
	AlertAccuracyDrop    AlertType = "outcome_accuracy_drop"
	AlertRetrainRequired AlertType = "model_retrain_required"
	AlertFailureEvents   AlertType = "failure_events"
	AlertCacheMissRate   AlertType = "high_cache_miss_rate"
)

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
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

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := time.Now().UTC()

	minDecisions := a.cfg.MinDecisionsForAlerts
	if minDecisions <= 0 {
		minDecisions = 10
	}

	// Confidence has slipped across the decision population.
	if snap.DecisionCount >= minDecisions && a.cfg.MinConfidence > 0 && snap.MeanConfidence < a.cfg.MinConfidence {
		alerts = append(alerts, Alert{
			Type:     AlertLowConfidence,
			Severity: "medium",
			Message: fmt.Sprintf(
				"Mean decision confidence %.1f is below threshold %.1f (%d decisions in last %dh)",
				snap.MeanConfidence, a.cfg.MinConfidence,
				snap.DecisionCount, snap.LookbackHours,
			),
			Details: map[string]any{
				"mean_confidence": snap.MeanConfidence,
				"threshold":       a.cfg.MinConfidence,
				"decisions":       snap.DecisionCount,
			},
			Timestamp: now,
		})
	}

	// Validated predictions are wrong too often.
	if snap.OutcomeTotal >= minDecisions && a.cfg.MinOutcomeAccuracy > 0 && snap.OutcomeAccuracy < a.cfg.MinOutcomeAccuracy {
		alerts = append(alerts, Alert{
			Type:     AlertAccuracyDrop,
			Severity: "high",
			Message: fmt.Sprintf(
				"Outcome accuracy %.1f%% is below threshold %.1f%% (%d outcomes, trend %s)",
				snap.OutcomeAccuracy*100, a.cfg.MinOutcomeAccuracy*100,
				snap.OutcomeTotal, snap.OutcomeTrend,
			),
			Details: map[string]any{
				"accuracy":  snap.OutcomeAccuracy,
				"threshold": a.cfg.MinOutcomeAccuracy,
				"outcomes":  snap.OutcomeTotal,
				"trend":     snap.OutcomeTrend,
			},
			Timestamp: now,
		})
	}

	// The response cache is barely absorbing load.
	if snap.QueriesServed >= minDecisions && a.cfg.MaxCacheMissRate > 0 {
		missRate := 1 - snap.CacheHitRate
		if missRate > a.cfg.MaxCacheMissRate {
			alerts = append(alerts, Alert{
				Type:     AlertCacheMissRate,
				Severity: "low",
				Message: fmt.Sprintf(
					"Cache miss rate %.1f%% exceeds threshold %.1f%% (%d queries in last %dh)",
					missRate*100, a.cfg.MaxCacheMissRate*100,
					snap.QueriesServed, snap.LookbackHours,
				),
				Details: map[string]any{
					"miss_rate": missRate,
					"threshold": a.cfg.MaxCacheMissRate,
					"queries":   snap.QueriesServed,
				},
				Timestamp: now,
			})
		}
	}

	if len(snap.RetrainFlagged) > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertRetrainRequired,
			Severity: "high",
			Message: fmt.Sprintf(
				"%d model(s) flagged for retraining: %v",
				len(snap.RetrainFlagged), snap.RetrainFlagged,
			),
			Details:   map[string]any{"models": snap.RetrainFlagged},
			Timestamp: now,
		})
	}

	if snap.FailureEvents > 0 {
		alerts = append(alerts, Alert{
			Type:     AlertFailureEvents,
			Severity: "medium",
			Message: fmt.Sprintf(
				"%d failure event(s) recorded in last %dh",
				snap.FailureEvents, snap.LookbackHours,
			),
			Details:   map[string]any{"failures": snap.FailureEvents},
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
