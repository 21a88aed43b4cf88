package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ethereum/go-ethereum/common/hexutil"
)

func (c *Client) ChainID(ctx context.Context) (int64, error) {
	return c.quantity(ctx, "eth_chainId")
}

func (c *Client) GetBlockNumber(ctx context.Context) (int64, error) {
	return c.quantity(ctx, "eth_blockNumber")
}

// GetBlockByNumber returns the block with full transactions, or nil when the
// node does not have it yet.
func (c *Client) GetBlockByNumber(ctx context.Context, blockNumber int64) (*Block, error) {
	if blockNumber < 0 {
		return nil, fmt.Errorf("eth_getBlockByNumber: negative block number %d", blockNumber)
	}
	params := []interface{}{hexutil.EncodeUint64(uint64(blockNumber)), true}
	result, err := c.call(ctx, "eth_getBlockByNumber", params)
	if err != nil {
		return nil, fmt.Errorf("eth_getBlockByNumber(%d): %w", blockNumber, err)
	}
	if len(result) == 0 || string(result) == "null" {
		return nil, nil
	}

	var block Block
	if err := json.Unmarshal(result, &block); err != nil {
		return nil, fmt.Errorf("unmarshal block %d: %w", blockNumber, err)
	}
	return &block, nil
}

func (c *Client) quantity(ctx context.Context, method string) (int64, error) {
	result, err := c.call(ctx, method, []interface{}{})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", method, err)
	}
	var q hexutil.Uint64
	if err := json.Unmarshal(result, &q); err != nil {
		return 0, fmt.Errorf("%s: decode quantity: %w", method, err)
	}
	if uint64(q) > math.MaxInt64 {
		return 0, fmt.Errorf("%s: quantity %d overflows int64", method, uint64(q))
	}
	return int64(q), nil
}

// BigToInt64 converts a decoded quantity, saturating at math.MaxInt64. A nil
// quantity converts to zero.
func BigToInt64(v *hexutil.Big) int64 {
	if v == nil {
		return 0
	}
	b := v.ToInt()
	if !b.IsInt64() {
		if b.Sign() < 0 {
			return 0
		}
		return math.MaxInt64
	}
	return b.Int64()
}
