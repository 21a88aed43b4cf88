package admin

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/coordinator"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

// allowedChains defines the valid chain values for admin API input validation.
var allowedChains = map[model.Chain]bool{
	model.ChainEthereum:  true,
	model.ChainPolygon:   true,
	model.ChainAvalanche: true,
	model.ChainFantom:    true,
	model.ChainBSC:       true,
	model.ChainOptimism:  true,
	model.ChainArbitrum:  true,
}

// allowedNetworks defines the valid network values for admin API input validation.
var allowedNetworks = map[model.Network]bool{
	model.NetworkMainnet: true,
	model.NetworkTestnet: true,
	model.NetworkSepolia: true,
	model.NetworkAmoy:    true,
}

// PipelineProvider exposes the running pipelines. In production this is
// satisfied by *pipeline.Registry.
type PipelineProvider interface {
	Statuses() []coordinator.Snapshot
	HealthSnapshots() []pipeline.HealthSnapshot
}

// Server provides a read-only HTTP API over the monitor's state.
type Server struct {
	pipelines PipelineProvider
	forecasts store.ForecastRepository
	logger    *slog.Logger
}

// NewServer creates a new admin API server. forecasts may be nil when no
// forecast store is configured.
func NewServer(pipelines PipelineProvider, logger *slog.Logger, opts ...ServerOption) *Server {
	s := &Server{
		pipelines: pipelines,
		logger:    logger.With("component", "admin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ServerOption configures optional dependencies for the admin server.
type ServerOption func(*Server)

// WithForecastRepo sets the forecast repository served by /admin/v1/forecasts.
func WithForecastRepo(repo store.ForecastRepository) ServerOption {
	return func(s *Server) { s.forecasts = repo }
}

// Handler returns the HTTP handler for the admin API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /admin/v1/status", s.handleGetStatus)
	mux.HandleFunc("GET /admin/v1/health", s.handleHealth)
	mux.HandleFunc("GET /admin/v1/forecasts", s.handleListForecasts)
	return mux
}

func validateChainNetwork(chain model.Chain, network model.Network) bool {
	return allowedChains[chain] && allowedNetworks[network]
}

// writeJSON writes v as JSON with the given HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// optionalChainNetworkQuery reads chain/network query params. Both or neither
// must be given. Returns false (and writes an error response) if validation fails.
func optionalChainNetworkQuery(w http.ResponseWriter, r *http.Request) (model.Chain, model.Network, bool) {
	chain := model.Chain(r.URL.Query().Get("chain"))
	network := model.Network(r.URL.Query().Get("network"))
	if chain == "" && network == "" {
		return "", "", true
	}
	if chain == "" || network == "" {
		http.Error(w, `{"error":"chain and network must be given together"}`, http.StatusBadRequest)
		return "", "", false
	}
	if !validateChainNetwork(chain, network) {
		http.Error(w, `{"error":"invalid chain or network value"}`, http.StatusBadRequest)
		return "", "", false
	}
	return chain, network, true
}

func (s *Server) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	chain, network, ok := optionalChainNetworkQuery(w, r)
	if !ok {
		return
	}

	statuses := s.pipelines.Statuses()
	if chain == "" {
		writeJSON(w, http.StatusOK, statuses)
		return
	}
	for _, st := range statuses {
		if st.Chain == chain && st.Network == network {
			writeJSON(w, http.StatusOK, st)
			return
		}
	}
	http.Error(w, `{"error":"no pipeline for chain/network"}`, http.StatusNotFound)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	snaps := s.pipelines.HealthSnapshots()
	status := http.StatusOK
	for _, snap := range snaps {
		if snap.Status == string(pipeline.HealthStatusUnhealthy) {
			status = http.StatusServiceUnavailable
			break
		}
	}
	writeJSON(w, status, snaps)
}

type forecastResponse struct {
	Protocol string    `json:"protocol"`
	Hour     time.Time `json:"hour"`
	Point    int64     `json:"priority_fee"`
	Lower    int64     `json:"priority_fee_lower"`
	Upper    int64     `json:"priority_fee_upper"`
}

func (s *Server) handleListForecasts(w http.ResponseWriter, r *http.Request) {
	if s.forecasts == nil {
		http.Error(w, `{"error":"forecasts not available"}`, http.StatusServiceUnavailable)
		return
	}

	chain, network, ok := optionalChainNetworkQuery(w, r)
	if !ok {
		return
	}
	protocol := r.URL.Query().Get("protocol")
	if chain == "" || protocol == "" {
		http.Error(w, `{"error":"chain, network and protocol query params required"}`, http.StatusBadRequest)
		return
	}

	forecasts, err := s.forecasts.ListByProtocol(r.Context(), chain, network, protocol)
	if err != nil {
		s.logger.Error("list forecasts failed", "protocol", protocol, "error", err)
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}

	resp := make([]forecastResponse, len(forecasts))
	for i, f := range forecasts {
		resp[i] = forecastResponse{
			Protocol: f.Protocol,
			Hour:     time.Unix(f.Hour, 0).UTC(),
			Point:    f.Point,
			Lower:    f.Lower,
			Upper:    f.Upper,
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
