package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"
)

const (
	sidecarServiceName = "pfm.forecast.v1.ForecastService"
	predictMethod      = "/" + sidecarServiceName + "/Predict"
)

// jsonCodec carries sidecar messages as JSON so the model process can be
// written in any language without generated stubs.
type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return "json" }

type PredictRequest struct {
	Samples      []Sample `json:"samples"`
	HorizonHours int      `json:"horizon_hours"`
}

type PredictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// SidecarServer is implemented by forecast model processes.
type SidecarServer interface {
	Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
}

// ServiceDesc describes the sidecar service for grpc.Server.RegisterService.
// Servers must be created with grpc.ForceServerCodec(Codec()).
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: sidecarServiceName,
	HandlerType: (*SidecarServer)(nil),
	Methods: []grpc.MethodDesc{{
		MethodName: "Predict",
		Handler:    predictHandler,
	}},
	Streams:  []grpc.StreamDesc{},
	Metadata: "forecast.proto",
}

// Codec returns the wire codec shared by sidecar clients and servers.
func Codec() encoding.Codec {
	return jsonCodec{}
}

func predictHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PredictRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(SidecarServer).Predict(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: predictMethod}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(SidecarServer).Predict(ctx, req.(*PredictRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServeForecaster adapts a Forecaster to the sidecar server interface.
type ServeForecaster struct {
	Forecaster Forecaster
}

func (s ServeForecaster) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	preds, err := s.Forecaster.Predict(ctx, req.Samples, req.HorizonHours)
	if errors.Is(err, ErrInsufficientSamples) {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return &PredictResponse{Predictions: preds}, nil
}

// SidecarClient calls an external model process over gRPC.
type SidecarClient struct {
	conn    *grpc.ClientConn
	timeout time.Duration
	logger  *slog.Logger
}

type SidecarConfig struct {
	Addr    string
	Timeout time.Duration
	// DialOptions replace the default plaintext transport when set.
	DialOptions []grpc.DialOption
}

func NewSidecarClient(cfg SidecarConfig, logger *slog.Logger) (*SidecarClient, error) {
	opts := cfg.DialOptions
	if len(opts) == 0 {
		opts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	opts = append(opts, grpc.WithDefaultCallOptions(grpc.ForceCodec(jsonCodec{})))

	conn, err := grpc.NewClient(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("dial forecast sidecar %s: %w", cfg.Addr, err)
	}
	return &SidecarClient{
		conn:    conn,
		timeout: cfg.Timeout,
		logger:  logger.With("component", "forecast_sidecar", "addr", cfg.Addr),
	}, nil
}

func (c *SidecarClient) Predict(ctx context.Context, samples []Sample, horizon int) ([]Prediction, error) {
	if len(samples) < MinSamples {
		return nil, ErrInsufficientSamples
	}
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	var resp PredictResponse
	if err := c.conn.Invoke(ctx, predictMethod, &PredictRequest{Samples: samples, HorizonHours: horizon}, &resp); err != nil {
		return nil, fmt.Errorf("sidecar predict: %w", err)
	}
	c.logger.Debug("sidecar predict completed",
		"samples", len(samples),
		"predictions", len(resp.Predictions),
		"elapsed", time.Since(start).String(),
	)
	return resp.Predictions, nil
}

func (c *SidecarClient) Close() error {
	return c.conn.Close()
}
