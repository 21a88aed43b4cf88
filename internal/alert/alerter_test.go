package alert

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testAlert() Alert {
	return Alert{
		Type:     AlertTypePriorityFee,
		Severity: "CRITICAL",
		Chain:    "ethereum",
		Network:  "mainnet",
		Key:      "0xabc",
		Title:    "Critical Priority Fee for OpenSea",
		Message:  "Priority fee for OpenSea is critically higher than expected!",
		Fields: map[string]string{
			"tx_hash":               "0xabc",
			"expected_max_fee_gwei": "2.5",
		},
	}
}

func countingServer(t *testing.T, status int, counter *atomic.Int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		counter.Add(1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestMultiAlerter_Send_AllChannels(t *testing.T) {
	var slackReceived, webhookReceived atomic.Int32
	slackSrv := countingServer(t, http.StatusOK, &slackReceived)
	webhookSrv := countingServer(t, http.StatusOK, &webhookReceived)

	multi := NewMultiAlerter(time.Hour, testLogger(),
		NewSlackAlerter(slackSrv.URL), NewWebhookAlerter(webhookSrv.URL), NewLogAlerter(testLogger()))

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	assert.Equal(t, int32(1), slackReceived.Load())
	assert.Equal(t, int32(1), webhookReceived.Load())
}

func TestMultiAlerter_CooldownDedup(t *testing.T) {
	var received atomic.Int32
	srv := countingServer(t, http.StatusOK, &received)
	multi := NewMultiAlerter(time.Minute, testLogger(), NewWebhookAlerter(srv.URL))

	now := time.Date(2022, 5, 1, 0, 0, 0, 0, time.UTC)
	multi.nowFn = func() time.Time { return now }

	require.NoError(t, multi.Send(context.Background(), testAlert()))
	require.NoError(t, multi.Send(context.Background(), testAlert()))
	assert.Equal(t, int32(1), received.Load(), "same key within cooldown is suppressed")

	other := testAlert()
	other.Key = "0xdef"
	require.NoError(t, multi.Send(context.Background(), other))
	assert.Equal(t, int32(2), received.Load(), "different transactions never share a cooldown slot")

	now = now.Add(2 * time.Minute)
	require.NoError(t, multi.Send(context.Background(), testAlert()))
	assert.Equal(t, int32(3), received.Load(), "cooldown expired")
}

func TestMultiAlerter_ZeroCooldownSendsEverything(t *testing.T) {
	var received atomic.Int32
	srv := countingServer(t, http.StatusOK, &received)
	multi := NewMultiAlerter(0, testLogger(), NewWebhookAlerter(srv.URL))

	for i := 0; i < 3; i++ {
		require.NoError(t, multi.Send(context.Background(), testAlert()))
	}
	assert.Equal(t, int32(3), received.Load())
}

func TestMultiAlerter_PartialFailure(t *testing.T) {
	var failed, good atomic.Int32
	failSrv := countingServer(t, http.StatusInternalServerError, &failed)
	goodSrv := countingServer(t, http.StatusOK, &good)

	multi := NewMultiAlerter(time.Hour, testLogger(), NewWebhookAlerter(failSrv.URL), NewWebhookAlerter(goodSrv.URL))

	err := multi.Send(context.Background(), testAlert())
	assert.ErrorContains(t, err, "webhook returned status 500")
	assert.Equal(t, int32(1), good.Load())
}

func TestSlackAlerter_PayloadFormat(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, NewSlackAlerter(srv.URL).Send(context.Background(), testAlert()))

	var payload map[string]string
	require.NoError(t, json.Unmarshal(captured, &payload))
	text := payload["text"]
	assert.True(t, strings.HasPrefix(text, ":rotating_light:"))
	assert.Contains(t, text, "[PRIORITY-FEE]")
	assert.Contains(t, text, "ethereum/mainnet")
	assert.Contains(t, text, "Critical Priority Fee for OpenSea")
	// Fields are rendered in key order.
	assert.Less(t, strings.Index(text, "expected_max_fee_gwei"), strings.Index(text, "tx_hash"))
}

func TestSlackEmoji(t *testing.T) {
	tests := []struct {
		alert Alert
		want  string
	}{
		{Alert{Type: AlertTypePriorityFee, Severity: "CRITICAL"}, ":rotating_light:"},
		{Alert{Type: AlertTypePriorityFeeUncertain, Severity: "HIGH"}, ":red_circle:"},
		{Alert{Type: AlertTypePriorityFee, Severity: "MEDIUM"}, ":large_orange_circle:"},
		{Alert{Type: AlertTypePriorityFeeUncertain, Severity: "LOW"}, ":large_yellow_circle:"},
		{Alert{Type: AlertTypeDiscontinuity}, ":twisted_rightwards_arrows:"},
		{Alert{Type: AlertTypeRecovery}, ":white_check_mark:"},
		{Alert{Type: AlertTypeUnhealthy}, ":warning:"},
	}
	for _, tt := range tests {
		t.Run(string(tt.alert.Type)+"_"+tt.alert.Severity, func(t *testing.T) {
			assert.Equal(t, tt.want, slackEmoji(tt.alert))
		})
	}
}

func TestWebhookAlerter_PayloadFormat(t *testing.T) {
	var captured []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	a := testAlert()
	a.Time = time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)
	require.NoError(t, NewWebhookAlerter(srv.URL).Send(context.Background(), a))

	var payload map[string]any
	require.NoError(t, json.Unmarshal(captured, &payload))
	assert.Equal(t, "PRIORITY-FEE", payload["type"])
	assert.Equal(t, "CRITICAL", payload["severity"])
	assert.Equal(t, "ethereum", payload["chain"])
	assert.Equal(t, "2022-05-10T12:00:00Z", payload["time"])

	fields, ok := payload["fields"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "0xabc", fields["tx_hash"])
}
