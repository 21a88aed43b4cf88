package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
)

const (
	testChain   = model.ChainEthereum
	testNetwork = model.NetworkMainnet
)

func seedBlocks(t *testing.T, s *BlockStore, from, to int64) {
	t.Helper()
	for h := from; h <= to; h++ {
		require.NoError(t, s.Insert(context.Background(), &model.Block{
			Chain: testChain, Network: testNetwork, Height: h, Hash: "0x" + string(rune('a'+h%26)),
			GasUsed: 15_000_000, GasLimit: 30_000_000,
		}))
	}
}

func TestBlockStore_InsertGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewBlockStore()

	got, err := s.GetByHeight(ctx, testChain, testNetwork, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	seedBlocks(t, s, 1, 1)
	got, err = s.GetByHeight(ctx, testChain, testNetwork, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Nil(t, got.BaseFee)

	require.NoError(t, s.UpdateBaseFee(ctx, testChain, testNetwork, 1, 42))
	got, err = s.GetByHeight(ctx, testChain, testNetwork, 1)
	require.NoError(t, err)
	require.NotNil(t, got.BaseFee)
	assert.Equal(t, int64(42), *got.BaseFee)

	*got.BaseFee = 7
	again, err := s.GetByHeight(ctx, testChain, testNetwork, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(42), *again.BaseFee, "returned block is a copy")

	other, err := s.GetByHeight(ctx, model.ChainPolygon, testNetwork, 1)
	require.NoError(t, err)
	assert.Nil(t, other, "chains are isolated")
}

func TestBlockStore_DeleteOlderThanIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewBlockStore()
	seedBlocks(t, s, 100, 199)

	n, err := s.DeleteOlderThan(ctx, testChain, testNetwork, 50)
	require.NoError(t, err)
	assert.Zero(t, n, "threshold older than every row")

	n, err = s.DeleteOlderThan(ctx, testChain, testNetwork, 150)
	require.NoError(t, err)
	assert.Equal(t, int64(50), n)

	n, err = s.DeleteOlderThan(ctx, testChain, testNetwork, 150)
	require.NoError(t, err)
	assert.Zero(t, n)

	count, err := s.Count(ctx, testChain, testNetwork)
	require.NoError(t, err)
	assert.Equal(t, int64(50), count)
}

func TestBlockStore_DeleteFrom(t *testing.T) {
	ctx := context.Background()
	s := NewBlockStore()
	seedBlocks(t, s, 1, 10)

	n, err := s.DeleteFrom(ctx, testChain, testNetwork, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	got, err := s.GetByHeight(ctx, testChain, testNetwork, 7)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestTransactionStore(t *testing.T) {
	ctx := context.Background()
	s := NewTransactionStore()

	for i, h := range []int64{10, 10, 11, 12} {
		require.NoError(t, s.Insert(ctx, &model.Transaction{
			Chain: testChain, Network: testNetwork,
			Hash:        "0xtx" + string(rune('0'+i)),
			BlockHeight: h,
			Protocol:    "0xproto",
			GasPrice:    100 + int64(i),
			Timestamp:   1_000 + int64(i),
		}))
	}
	require.NoError(t, s.Insert(ctx, &model.Transaction{
		Chain: testChain, Network: testNetwork, Hash: "0xother", BlockHeight: 10, Protocol: "0xelse", Timestamp: 1,
	}))

	byBlock, err := s.ListByBlock(ctx, testChain, testNetwork, 10)
	require.NoError(t, err)
	assert.Len(t, byBlock, 3)

	byProto, err := s.ListByProtocol(ctx, testChain, testNetwork, "0xproto")
	require.NoError(t, err)
	require.Len(t, byProto, 4)
	assert.Equal(t, "0xtx0", byProto[0].Hash)
	assert.Equal(t, "0xtx3", byProto[3].Hash)

	require.NoError(t, s.UpdatePriorityFee(ctx, testChain, testNetwork, "0xtx1", 9))
	byBlock, err = s.ListByBlock(ctx, testChain, testNetwork, 10)
	require.NoError(t, err)
	var filled int
	for _, tx := range byBlock {
		if tx.PriorityFee != nil {
			assert.Equal(t, "0xtx1", tx.Hash)
			assert.Equal(t, int64(9), *tx.PriorityFee)
			filled++
		}
	}
	assert.Equal(t, 1, filled)

	n, err := s.DeleteOlderThan(ctx, testChain, testNetwork, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.DeleteFrom(ctx, testChain, testNetwork, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	count, err := s.Count(ctx, testChain, testNetwork)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestForecastStore_ReplaceForProtocol(t *testing.T) {
	ctx := context.Background()
	s := NewForecastStore()

	require.NoError(t, s.ReplaceForProtocol(ctx, testChain, testNetwork, "0xa", []model.Forecast{
		{Hour: 7200, Point: 2, Lower: 1, Upper: 3},
		{Hour: 3600, Point: 5, Lower: 4, Upper: 6},
	}))
	require.NoError(t, s.ReplaceForProtocol(ctx, testChain, testNetwork, "0xb", []model.Forecast{
		{Hour: 3600, Point: 50, Lower: 40, Upper: 60},
	}))

	fc, err := s.Get(ctx, testChain, testNetwork, "0xa", 3600)
	require.NoError(t, err)
	require.NotNil(t, fc)
	assert.Equal(t, int64(5), fc.Point)
	assert.Equal(t, "0xa", fc.Protocol)

	list, err := s.ListByProtocol(ctx, testChain, testNetwork, "0xa")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, int64(3600), list[0].Hour)

	require.NoError(t, s.ReplaceForProtocol(ctx, testChain, testNetwork, "0xa", []model.Forecast{
		{Hour: 10800, Point: 9, Lower: 8, Upper: 10},
	}))
	fc, err = s.Get(ctx, testChain, testNetwork, "0xa", 3600)
	require.NoError(t, err)
	assert.Nil(t, fc, "old rows discarded")

	fc, err = s.Get(ctx, testChain, testNetwork, "0xb", 3600)
	require.NoError(t, err)
	require.NotNil(t, fc, "other protocols untouched")
}
