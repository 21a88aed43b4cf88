package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
)

// AlertType categorizes the kind of alert.
type AlertType string

const (
	AlertTypePriorityFee          AlertType = "PRIORITY-FEE"
	AlertTypePriorityFeeUncertain AlertType = "PRIORITY-FEE-UNCERTAIN"
	AlertTypeDiscontinuity        AlertType = "DISCONTINUITY"
	AlertTypeUnhealthy            AlertType = "UNHEALTHY"
	AlertTypeRecovery             AlertType = "RECOVERY"
)

// Alert represents a single alert event.
type Alert struct {
	Type     AlertType
	Severity string
	Chain    string
	Network  string
	// Key separates alerts of one type for cooldown purposes. Alerts with an
	// empty key share a single cooldown slot per type and chain.
	Key     string
	Title   string
	Message string
	Fields  map[string]string
	Time    time.Time
}

// Alerter is the interface for sending alerts.
type Alerter interface {
	Send(ctx context.Context, alert Alert) error
}

// MultiAlerter fans out alerts to multiple channels.
type MultiAlerter struct {
	alerters []Alerter
	cooldown time.Duration
	logger   *slog.Logger
	nowFn    func() time.Time

	mu       sync.Mutex
	lastSent map[string]time.Time
}

// NewMultiAlerter creates a new multi-channel alerter with cooldown.
func NewMultiAlerter(cooldown time.Duration, logger *slog.Logger, alerters ...Alerter) *MultiAlerter {
	return &MultiAlerter{
		alerters: alerters,
		cooldown: cooldown,
		logger:   logger.With("component", "alerter"),
		nowFn:    time.Now,
		lastSent: make(map[string]time.Time),
	}
}

func cooldownKey(a Alert) string {
	return fmt.Sprintf("%s:%s:%s:%s", a.Type, a.Chain, a.Network, a.Key)
}

// Send dispatches alert to all channels, respecting cooldown.
func (m *MultiAlerter) Send(ctx context.Context, alert Alert) error {
	if alert.Time.IsZero() {
		alert.Time = m.nowFn().UTC()
	}
	key := cooldownKey(alert)

	if m.cooldown > 0 {
		m.mu.Lock()
		if last, ok := m.lastSent[key]; ok && m.nowFn().Sub(last) < m.cooldown {
			m.mu.Unlock()
			m.logger.Debug("alert suppressed by cooldown", "key", key)
			for _, a := range m.alerters {
				metrics.AlertsCooldownSkipped.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
			}
			return nil
		}
		m.lastSent[key] = m.nowFn()
		m.mu.Unlock()
	}

	var firstErr error
	for _, a := range m.alerters {
		if err := a.Send(ctx, alert); err != nil {
			m.logger.Warn("alert send failed",
				"channel", alerterName(a),
				"type", alert.Type,
				"error", err,
			)
			metrics.AlertsFailedTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		metrics.AlertsSentTotal.WithLabelValues(alerterName(a), string(alert.Type)).Inc()
	}
	return firstErr
}

func alerterName(a Alerter) string {
	switch a.(type) {
	case *SlackAlerter:
		return "slack"
	case *WebhookAlerter:
		return "webhook"
	case *KafkaAlerter:
		return "kafka"
	case *LogAlerter:
		return "log"
	default:
		return "unknown"
	}
}

// sortedFieldKeys keeps rendered field order stable.
func sortedFieldKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// SlackAlerter sends alerts to a Slack webhook.
type SlackAlerter struct {
	webhookURL string
	client     *http.Client
}

// NewSlackAlerter creates a Slack alerter with the given webhook URL.
func NewSlackAlerter(webhookURL string) *SlackAlerter {
	return &SlackAlerter{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

func slackEmoji(a Alert) string {
	switch a.Type {
	case AlertTypeRecovery:
		return ":white_check_mark:"
	case AlertTypeDiscontinuity:
		return ":twisted_rightwards_arrows:"
	case AlertTypePriorityFee, AlertTypePriorityFeeUncertain:
		switch a.Severity {
		case "CRITICAL":
			return ":rotating_light:"
		case "HIGH":
			return ":red_circle:"
		case "MEDIUM":
			return ":large_orange_circle:"
		default:
			return ":large_yellow_circle:"
		}
	default:
		return ":warning:"
	}
}

// Send sends an alert to Slack.
func (s *SlackAlerter) Send(ctx context.Context, alert Alert) error {
	var text strings.Builder
	fmt.Fprintf(&text, "%s *[%s]* %s/%s: %s\n%s",
		slackEmoji(alert), alert.Type, alert.Chain, alert.Network, alert.Title, alert.Message)

	if len(alert.Fields) > 0 {
		text.WriteString("\n")
		for _, k := range sortedFieldKeys(alert.Fields) {
			fmt.Fprintf(&text, "- *%s*: %s\n", k, alert.Fields[k])
		}
	}

	body, err := json.Marshal(map[string]string{"text": text.String()})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}
	return postJSON(ctx, s.client, s.webhookURL, body, "slack")
}

// WebhookAlerter sends alerts to a generic HTTP webhook.
type WebhookAlerter struct {
	url    string
	client *http.Client
}

// NewWebhookAlerter creates a generic webhook alerter.
func NewWebhookAlerter(url string) *WebhookAlerter {
	return &WebhookAlerter{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send sends an alert to the webhook endpoint.
func (w *WebhookAlerter) Send(ctx context.Context, alert Alert) error {
	body, err := json.Marshal(payloadOf(alert))
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	return postJSON(ctx, w.client, w.url, body, "webhook")
}

func payloadOf(alert Alert) map[string]any {
	ts := alert.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	return map[string]any{
		"type":     string(alert.Type),
		"severity": alert.Severity,
		"chain":    alert.Chain,
		"network":  alert.Network,
		"title":    alert.Title,
		"message":  alert.Message,
		"fields":   alert.Fields,
		"time":     ts.UTC().Format(time.RFC3339),
	}
}

func postJSON(ctx context.Context, client *http.Client, url string, body []byte, channel string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", channel, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s alert: %w", channel, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s returned status %d", channel, resp.StatusCode)
	}
	return nil
}

// LogAlerter writes alerts to the structured log. It is always installed so
// findings stay visible when no external channel is configured.
type LogAlerter struct {
	logger *slog.Logger
}

func NewLogAlerter(logger *slog.Logger) *LogAlerter {
	return &LogAlerter{logger: logger.With("component", "alert_log")}
}

func (l *LogAlerter) Send(ctx context.Context, alert Alert) error {
	attrs := []any{
		"type", alert.Type,
		"severity", alert.Severity,
		"chain", alert.Chain,
		"network", alert.Network,
		"title", alert.Title,
	}
	for _, k := range sortedFieldKeys(alert.Fields) {
		attrs = append(attrs, k, alert.Fields[k])
	}
	l.logger.WarnContext(ctx, alert.Message, attrs...)
	return nil
}

// NoopAlerter does nothing.
type NoopAlerter struct{}

func (n *NoopAlerter) Send(_ context.Context, _ Alert) error { return nil }
