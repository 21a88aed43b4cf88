package forecast

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/emperorhan/priority-fee-monitor/internal/circuitbreaker"
)

type stubSidecar struct {
	predict func(ctx context.Context, req *PredictRequest) (*PredictResponse, error)
}

func (s stubSidecar) Predict(ctx context.Context, req *PredictRequest) (*PredictResponse, error) {
	return s.predict(ctx, req)
}

func startSidecar(t *testing.T, impl SidecarServer) *SidecarClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	srv := grpc.NewServer(grpc.ForceServerCodec(Codec()))
	srv.RegisterService(&ServiceDesc, impl)
	go func() { _ = srv.Serve(lis) }()
	t.Cleanup(srv.Stop)

	client, err := NewSidecarClient(SidecarConfig{
		Addr:    "passthrough:///bufnet",
		Timeout: time.Second,
		DialOptions: []grpc.DialOption{
			grpc.WithTransportCredentials(insecure.NewCredentials()),
			grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
				return lis.DialContext(ctx)
			}),
		},
	}, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSidecar_RoundTrip(t *testing.T) {
	client := startSidecar(t, ServeForecaster{Forecaster: NewBaseline()})

	samples := []Sample{{Hour: 0, Value: 10}, {Hour: 3600, Value: 30}}
	preds, err := client.Predict(context.Background(), samples, 3)
	require.NoError(t, err)

	want, err := NewBaseline().Predict(context.Background(), samples, 3)
	require.NoError(t, err)
	assert.Equal(t, want, preds)
}

func TestSidecar_InsufficientSamplesShortCircuits(t *testing.T) {
	called := false
	client := startSidecar(t, stubSidecar{predict: func(context.Context, *PredictRequest) (*PredictResponse, error) {
		called = true
		return &PredictResponse{}, nil
	}})

	_, err := client.Predict(context.Background(), []Sample{{Hour: 0, Value: 1}}, 24)
	assert.ErrorIs(t, err, ErrInsufficientSamples)
	assert.False(t, called)
}

func TestSidecar_ServerErrorSurfaces(t *testing.T) {
	client := startSidecar(t, stubSidecar{predict: func(context.Context, *PredictRequest) (*PredictResponse, error) {
		return nil, status.Error(codes.Unavailable, "model loading")
	}})

	_, err := client.Predict(context.Background(), []Sample{{Hour: 0, Value: 1}, {Hour: 3600, Value: 2}}, 24)
	require.Error(t, err)
	assert.Equal(t, codes.Unavailable, status.Code(errors.Unwrap(err)))
}

func TestGuarded_OpensOnTransientFailures(t *testing.T) {
	client := startSidecar(t, stubSidecar{predict: func(context.Context, *PredictRequest) (*PredictResponse, error) {
		return nil, status.Error(codes.Unavailable, "model loading")
	}})
	g := NewGuarded(client, "sidecar", circuitbreaker.Config{FailureThreshold: 2, OpenTimeout: time.Hour})
	samples := []Sample{{Hour: 0, Value: 1}, {Hour: 3600, Value: 2}}

	for i := 0; i < 2; i++ {
		_, err := g.Predict(context.Background(), samples, 1)
		require.Error(t, err)
	}
	assert.Equal(t, circuitbreaker.StateOpen, g.State())

	_, err := g.Predict(context.Background(), samples, 1)
	assert.ErrorIs(t, err, circuitbreaker.ErrCircuitOpen)
}

func TestGuarded_IgnoresTerminalErrors(t *testing.T) {
	g := NewGuarded(NewBaseline(), "baseline", circuitbreaker.Config{FailureThreshold: 1})
	for i := 0; i < 3; i++ {
		_, err := g.Predict(context.Background(), nil, 1)
		assert.ErrorIs(t, err, ErrInsufficientSamples)
	}
	assert.Equal(t, circuitbreaker.StateClosed, g.State())
}
