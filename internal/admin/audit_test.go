package admin

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestAuditMiddleware_LogsRequests(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelInfo}))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/forecasts?chain=ethereum&network=mainnet&protocol=Uniswap", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("expected generated request ID header")
	}

	logOutput := logBuf.String()
	for _, want := range []string{"admin API request", "GET", "/admin/v1/forecasts", "protocol=Uniswap"} {
		if !strings.Contains(logOutput, want) {
			t.Errorf("expected %q in audit log", want)
		}
	}
}

func TestAuditMiddleware_KeepsCallerRequestID(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/status", nil)
	req.Header.Set(requestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "req-42" {
		t.Errorf("expected request ID to be echoed, got %q", got)
	}
	if !strings.Contains(logBuf.String(), `"request_id":"req-42"`) {
		t.Error("expected caller request ID in audit log")
	}
}

func TestAuditMiddleware_CapturesResponseStatus(t *testing.T) {
	var logBuf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logBuf, nil))

	handler := AuditMiddleware(logger, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/admin/v1/health", nil))

	logOutput := logBuf.String()
	if !strings.Contains(logOutput, `"response_status":500`) {
		t.Error("expected response status 500 in audit log")
	}
	if !strings.Contains(logOutput, `"level":"WARN"`) {
		t.Error("expected server errors to log at warn")
	}
}
