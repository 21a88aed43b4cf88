// Package redis keeps the forecast table in Redis so several monitor
// processes can share fitted forecasts.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

const (
	keyPrefix = "pfm:forecast"
	// defaultTTL expires a protocol's forecasts once the horizon they cover has
	// long passed.
	defaultTTL = 48 * time.Hour
)

var _ store.ForecastRepository = (*ForecastStore)(nil)

// ForecastStore stores each protocol's forecasts in one hash keyed by hour
// bucket.
type ForecastStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewForecastStore(ctx context.Context, url string) (*ForecastStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &ForecastStore{client: client, ttl: defaultTTL}, nil
}

// NewForecastStoreWithClient wraps an existing client.
func NewForecastStoreWithClient(client *redis.Client, ttl time.Duration) *ForecastStore {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ForecastStore{client: client, ttl: ttl}
}

func (s *ForecastStore) Close() error {
	return s.client.Close()
}

type forecastValue struct {
	Point int64 `json:"p"`
	Lower int64 `json:"l"`
	Upper int64 `json:"u"`
}

func protocolKey(chain model.Chain, network model.Network, protocol string) string {
	return keyPrefix + ":" + chain.String() + ":" + network.String() + ":" + protocol
}

func (s *ForecastStore) Get(ctx context.Context, chain model.Chain, network model.Network, protocol string, hour int64) (*model.Forecast, error) {
	raw, err := s.client.HGet(ctx, protocolKey(chain, network, protocol), strconv.FormatInt(hour, 10)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("hget forecast %s@%d: %w", protocol, hour, err)
	}

	fc, err := decodeForecast(chain, network, protocol, hour, raw)
	if err != nil {
		return nil, err
	}
	return &fc, nil
}

func (s *ForecastStore) ListByProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Forecast, error) {
	fields, err := s.client.HGetAll(ctx, protocolKey(chain, network, protocol)).Result()
	if err != nil {
		return nil, fmt.Errorf("hgetall forecasts of %s: %w", protocol, err)
	}

	out := make([]model.Forecast, 0, len(fields))
	for field, raw := range fields {
		hour, err := strconv.ParseInt(field, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parse forecast hour %q: %w", field, err)
		}
		fc, err := decodeForecast(chain, network, protocol, hour, []byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, fc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hour < out[j].Hour })
	return out, nil
}

// ReplaceForProtocol rewrites the protocol's hash in a MULTI/EXEC block.
func (s *ForecastStore) ReplaceForProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string, forecasts []model.Forecast) error {
	key := protocolKey(chain, network, protocol)

	values := make([]any, 0, len(forecasts)*2)
	for _, f := range forecasts {
		raw, err := json.Marshal(forecastValue{Point: f.Point, Lower: f.Lower, Upper: f.Upper})
		if err != nil {
			return fmt.Errorf("encode forecast %d: %w", f.Hour, err)
		}
		values = append(values, strconv.FormatInt(f.Hour, 10), raw)
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(values) > 0 {
			pipe.HSet(ctx, key, values...)
			pipe.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("replace forecasts of %s: %w", protocol, err)
	}
	return nil
}

func decodeForecast(chain model.Chain, network model.Network, protocol string, hour int64, raw []byte) (model.Forecast, error) {
	var v forecastValue
	if err := json.Unmarshal(raw, &v); err != nil {
		return model.Forecast{}, fmt.Errorf("decode forecast %s@%d: %w", protocol, hour, err)
	}
	return model.Forecast{
		Chain:    chain,
		Network:  network,
		Protocol: protocol,
		Hour:     hour,
		Point:    v.Point,
		Lower:    v.Lower,
		Upper:    v.Upper,
	}, nil
}
