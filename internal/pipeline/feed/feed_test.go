package feed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	evmrpc "github.com/emperorhan/priority-fee-monitor/internal/chain/evm/rpc"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/event"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retry"
)

type fakeClient struct {
	mu        sync.Mutex
	head      int64
	blocks    map[int64]*evmrpc.Block
	headErrs  []error
	blockErrs map[int64][]error
}

func (f *fakeClient) ChainID(context.Context) (int64, error) { return 1, nil }

func (f *fakeClient) GetBlockNumber(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.headErrs) > 0 {
		err := f.headErrs[0]
		f.headErrs = f.headErrs[1:]
		return 0, err
	}
	return f.head, nil
}

func (f *fakeClient) GetBlockByNumber(_ context.Context, n int64) (*evmrpc.Block, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if errs := f.blockErrs[n]; len(errs) > 0 {
		f.blockErrs[n] = errs[1:]
		return nil, errs[0]
	}
	return f.blocks[n], nil
}

func (f *fakeClient) addBlock(n int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	to := "0x00000000006c3852cbef3e08e8df289169ede581"
	f.blocks[n] = &evmrpc.Block{
		Number:        hexutil.Uint64(n),
		Hash:          fmt.Sprintf("0x%x", n),
		ParentHash:    fmt.Sprintf("0x%x", n-1),
		Timestamp:     hexutil.Uint64(1_700_000_000 + 12*n),
		GasUsed:       15_000_000,
		GasLimit:      30_000_000,
		BaseFeePerGas: (*hexutil.Big)(big.NewInt(10)),
		Transactions: []evmrpc.Transaction{
			{Hash: fmt.Sprintf("0x%x-a", n), To: &to, Gas: 21_000, GasPrice: (*hexutil.Big)(big.NewInt(30))},
			{Hash: fmt.Sprintf("0x%x-b", n), To: nil, Gas: 500_000, GasPrice: (*hexutil.Big)(big.NewInt(20))},
		},
	}
	if n > f.head {
		f.head = n
	}
}

func newFakeClient(from, to int64) *fakeClient {
	c := &fakeClient{blocks: make(map[int64]*evmrpc.Block), blockErrs: make(map[int64][]error)}
	for n := from; n <= to; n++ {
		c.addBlock(n)
	}
	return c
}

func noSleep(context.Context, time.Duration) error { return nil }

func startFeed(t *testing.T, cfg Config, client evmrpc.RPCClient) (<-chan event.BlockEvent, func() error) {
	t.Helper()
	cfg.Chain = model.ChainEthereum
	cfg.Network = model.NetworkMainnet
	if cfg.PollInterval == 0 {
		cfg.PollInterval = 5 * time.Millisecond
	}
	cfg.Retry.Sleep = noSleep

	ctx, cancel := context.WithCancel(context.Background())
	out := make(chan event.BlockEvent, 16)
	done := make(chan error, 1)
	f := New(cfg, client, slog.Default())
	go func() { done <- f.Run(ctx, out) }()

	stop := func() error {
		cancel()
		select {
		case err := <-done:
			return err
		case <-time.After(2 * time.Second):
			t.Fatal("feed did not stop")
			return nil
		}
	}
	t.Cleanup(func() { cancel() })
	return out, stop
}

func receive(t *testing.T, out <-chan event.BlockEvent) event.BlockEvent {
	t.Helper()
	select {
	case ev := <-out:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no block delivered")
		return event.BlockEvent{}
	}
}

func TestFeed_StartsAtHead(t *testing.T) {
	client := newFakeClient(95, 100)
	out, stop := startFeed(t, Config{}, client)

	ev := receive(t, out)
	assert.Equal(t, int64(100), ev.Height)
	assert.Equal(t, "0x64", ev.Hash)
	assert.Equal(t, "0x63", ev.ParentHash)
	assert.Equal(t, int64(15_000_000), ev.GasUsed)
	assert.Equal(t, int64(30_000_000), ev.GasLimit)
	assert.Equal(t, int64(1_700_001_200), ev.Timestamp)

	require.Len(t, ev.Transactions, 2)
	assert.Equal(t, "0x64-a", ev.Transactions[0].Hash)
	assert.Equal(t, int64(30), ev.Transactions[0].GasPrice)
	assert.Equal(t, int64(100), ev.Transactions[0].BlockHeight)
	assert.Equal(t, ev.Timestamp, ev.Transactions[0].Timestamp)
	assert.Equal(t, "", ev.Transactions[1].To, "contract creations have no recipient")

	assert.ErrorIs(t, stop(), context.Canceled)
}

func TestFeed_DeliversInOrderFromStartBlock(t *testing.T) {
	client := newFakeClient(95, 100)
	out, stop := startFeed(t, Config{StartBlock: 97}, client)

	for want := int64(97); want <= 100; want++ {
		assert.Equal(t, want, receive(t, out).Height)
	}

	client.addBlock(101)
	assert.Equal(t, int64(101), receive(t, out).Height)
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestFeed_RetriesTransientErrors(t *testing.T) {
	client := newFakeClient(10, 10)
	client.headErrs = []error{&evmrpc.HTTPStatusError{StatusCode: http.StatusServiceUnavailable}}
	client.blockErrs[10] = []error{&evmrpc.RPCError{Code: -32005, Message: "limit exceeded"}}

	out, stop := startFeed(t, Config{}, client)
	assert.Equal(t, int64(10), receive(t, out).Height)
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestFeed_TerminalErrorRetriedNextPoll(t *testing.T) {
	client := newFakeClient(10, 11)
	client.blockErrs[11] = []error{&evmrpc.RPCError{Code: -32602, Message: "invalid argument"}}

	out, stop := startFeed(t, Config{StartBlock: 10}, client)
	assert.Equal(t, int64(10), receive(t, out).Height)
	assert.Equal(t, int64(11), receive(t, out).Height)
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestFeed_WaitsForUnservedHead(t *testing.T) {
	client := newFakeClient(10, 10)
	client.head = 11

	out, stop := startFeed(t, Config{StartBlock: 10}, client)
	assert.Equal(t, int64(10), receive(t, out).Height)

	select {
	case ev := <-out:
		t.Fatalf("unexpected block %d", ev.Height)
	case <-time.After(30 * time.Millisecond):
	}

	client.addBlock(11)
	assert.Equal(t, int64(11), receive(t, out).Height)
	require.ErrorIs(t, stop(), context.Canceled)
}

func TestFeed_PollSurfacesExhaustedRetries(t *testing.T) {
	client := newFakeClient(10, 10)
	unavailable := &evmrpc.HTTPStatusError{StatusCode: http.StatusBadGateway}
	client.headErrs = []error{unavailable, unavailable}

	f := New(Config{
		Chain:   model.ChainEthereum,
		Network: model.NetworkMainnet,
		Retry:   retry.Policy{MaxAttempts: 2, Sleep: noSleep},
	}, client, slog.Default())

	err := f.poll(context.Background(), make(chan event.BlockEvent, 1))
	require.Error(t, err)
	var statusErr *evmrpc.HTTPStatusError
	assert.True(t, errors.As(err, &statusErr))
	assert.Contains(t, err.Error(), "after 2 attempts")
}

func TestFeed_OverJSONRPC(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req evmrpc.Request
		require.NoError(t, json.Unmarshal(body, &req))

		var result string
		switch req.Method {
		case "eth_blockNumber":
			result = `"0xe0fab0"`
		case "eth_getBlockByNumber":
			require.Equal(t, "0xe0fab0", req.Params[0])
			require.Equal(t, true, req.Params[1])
			result = `{
				"number": "0xe0fab0", "hash": "0xaa", "parentHash": "0xbb",
				"timestamp": "0x626b3a39", "gasUsed": "0xe4e1c0", "gasLimit": "0x1c9c380",
				"baseFeePerGas": "0x39fd875cf",
				"transactions": [
					{"hash": "0x01", "blockNumber": "0xe0fab0", "from": "0xf1",
					 "to": "0x00000000006C3852cbEf3e08E8dF289169EdE581", "gas": "0x5208", "gasPrice": "0x3b9aca00"}
				]
			}`
		default:
			t.Errorf("unexpected method %s", req.Method)
		}
		_ = json.NewEncoder(w).Encode(evmrpc.Response{JSONRPC: "2.0", ID: req.ID, Result: json.RawMessage(result)})
	}))
	defer srv.Close()

	out, stop := startFeed(t, Config{}, evmrpc.NewClient(srv.URL, slog.Default()))
	ev := receive(t, out)
	assert.Equal(t, int64(14744240), ev.Height)
	assert.Equal(t, int64(15_000_000), ev.GasUsed)
	require.Len(t, ev.Transactions, 1)
	assert.Equal(t, int64(1_000_000_000), ev.Transactions[0].GasPrice)
	assert.Equal(t, "0x00000000006C3852cbEf3e08E8dF289169EdE581", ev.Transactions[0].To)
	require.ErrorIs(t, stop(), context.Canceled)
}
