// Package coordinator owns the base fee convergence state of one chain and
// turns block and transaction events into stored history and findings.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/emperorhan/priority-fee-monitor/internal/classifier"
	"github.com/emperorhan/priority-fee-monitor/internal/convergence"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/event"
	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/feemath"
	"github.com/emperorhan/priority-fee-monitor/internal/metrics"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/reorgdetector"
	"github.com/emperorhan/priority-fee-monitor/internal/pipeline/retention"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
	"github.com/emperorhan/priority-fee-monitor/internal/tracing"
)

// DefaultMinForecastCapacity is the stored block count below which forecasts
// are not generated.
const DefaultMinForecastCapacity = 6300 * 3

// ForecastSource reads forecasts and regenerates missing ones.
type ForecastSource interface {
	Lookup(ctx context.Context, protocol string, hour int64) (*model.Forecast, error)
	Fill(ctx context.Context, protocol string, hour int64) (*model.Forecast, error)
}

type Config struct {
	Chain   model.Chain
	Network model.Network
	// Protocols maps lower-case contract addresses to display names.
	Protocols           map[string]string
	WinStreakLimit      int
	MinForecastCapacity int64
	Policy              classifier.Policy
	// ObserveAllTransactions feeds every transaction into the base fee
	// candidate; otherwise only watched-protocol transactions are used.
	ObserveAllTransactions bool
}

// Snapshot is the read-only view published after every block.
type Snapshot struct {
	Chain          model.Chain               `json:"chain"`
	Network        model.Network             `json:"network"`
	Convergence    convergence.Snapshot      `json:"convergence"`
	LastBlock      int64                     `json:"last_block"`
	LastBlockHash  string                    `json:"last_block_hash"`
	LatestBaseFee  *int64                    `json:"latest_base_fee,omitempty"`
	Capacity       int64                     `json:"capacity"`
	ForecastViable bool                      `json:"forecast_viable"`
	Discontinuity  *event.DiscontinuityEvent `json:"last_discontinuity,omitempty"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// Coordinator is the single writer of a chain's convergence state. Both
// handlers may be called from any goroutine; they are serialized internally.
type Coordinator struct {
	cfg       Config
	history   store.History
	forecasts ForecastSource
	sweeper   *retention.Sweeper
	detector  *reorgdetector.Detector
	logger    *slog.Logger
	nowFn     func() time.Time

	mu                sync.Mutex
	state             *convergence.State
	swept             bool
	lastHash          string
	latestBaseFee     *int64
	lastDiscontinuity *event.DiscontinuityEvent

	snapshot atomic.Pointer[Snapshot]
}

func New(
	cfg Config,
	history store.History,
	forecasts ForecastSource,
	sweeper *retention.Sweeper,
	detector *reorgdetector.Detector,
	logger *slog.Logger,
) *Coordinator {
	if cfg.MinForecastCapacity <= 0 {
		cfg.MinForecastCapacity = DefaultMinForecastCapacity
	}
	protocols := make(map[string]string, len(cfg.Protocols))
	for addr, name := range cfg.Protocols {
		protocols[strings.ToLower(addr)] = name
	}
	cfg.Protocols = protocols

	c := &Coordinator{
		cfg:       cfg,
		history:   history,
		forecasts: forecasts,
		sweeper:   sweeper,
		detector:  detector,
		logger:    logger.With("component", "coordinator", "chain", cfg.Chain, "network", cfg.Network),
		nowFn:     time.Now,
		state:     convergence.New(cfg.WinStreakLimit),
	}
	c.publish()
	return c
}

// Snapshot returns the state as of the last handled block.
func (c *Coordinator) Snapshot() Snapshot {
	return *c.snapshot.Load()
}

func (c *Coordinator) labels() (string, string) {
	return string(c.cfg.Chain), string(c.cfg.Network)
}

// HandleBlock finalises the previous block's base fee, stores the new block
// and starts collecting base fee evidence for it.
func (c *Coordinator) HandleBlock(ctx context.Context, ev event.BlockEvent) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, span := tracing.Start(ctx, tracing.Tracer("coordinator"), "coordinator.handle_block",
		attribute.String("chain", string(c.cfg.Chain)),
		attribute.Int64("block_number", ev.Height),
	)
	start := time.Now()
	chain, network := c.labels()
	defer func() {
		tracing.End(span, err)
		metrics.BlockHandleLatency.WithLabelValues(chain, network).Observe(time.Since(start).Seconds())
		if err != nil {
			metrics.HandleErrors.WithLabelValues(chain, network, "block").Inc()
		}
	}()

	if !c.swept {
		if err := c.sweeper.Sweep(ctx, ev.Height); err != nil {
			return fmt.Errorf("startup sweep: %w", err)
		}
		c.swept = true
	}

	last, seen := c.state.CurrentHeight()
	if seen && ev.Height <= last {
		if err := c.rewind(ctx, ev.Height); err != nil {
			return err
		}
	}

	prev, err := c.history.Blocks.GetByHeight(ctx, c.cfg.Chain, c.cfg.Network, ev.Height-1)
	if err != nil {
		return fmt.Errorf("get block %d: %w", ev.Height-1, err)
	}

	lastProcessed := int64(0)
	if seen {
		lastProcessed = last
	}
	disc := c.detector.Check(ctx, lastProcessed, prev, ev)
	if disc != nil {
		c.state.Reset()
		c.lastDiscontinuity = disc
	}

	// The candidate only describes prev when prev is the block the state
	// was collecting evidence for.
	if !c.state.Confident() && prev != nil && !prev.HasBaseFee() && seen && last == prev.Height {
		if err := c.finalise(ctx, prev, disc != nil); err != nil {
			return err
		}
	}

	var baseFee *int64
	if c.state.Confident() && prev != nil {
		if !prev.HasBaseFee() {
			if err := c.backfill(ctx, prev); err != nil {
				return err
			}
		}
		if prev.HasBaseFee() {
			v := feemath.NextBaseFee(*prev.BaseFee, prev.GasLimit, prev.GasUsed)
			baseFee = &v
			c.setLatestBaseFee(v)
		}
	}

	if _, err := c.sweeper.Tick(ctx, ev.Height); err != nil {
		return fmt.Errorf("retention sweep: %w", err)
	}

	block := &model.Block{
		Chain:      c.cfg.Chain,
		Network:    c.cfg.Network,
		Height:     ev.Height,
		Hash:       ev.Hash,
		ParentHash: ev.ParentHash,
		GasUsed:    ev.GasUsed,
		GasLimit:   ev.GasLimit,
		BaseFee:    baseFee,
	}
	if ev.Timestamp > 0 {
		bt := time.Unix(ev.Timestamp, 0).UTC()
		block.BlockTime = &bt
	}
	if err := c.history.Blocks.Insert(ctx, block); err != nil {
		return fmt.Errorf("insert block %d: %w", ev.Height, err)
	}

	c.state.BeginBlock(ev.Height)
	c.lastHash = ev.Hash
	metrics.BlocksProcessed.WithLabelValues(chain, network).Inc()
	c.publish()

	c.logger.Debug("block handled",
		"block_number", ev.Height,
		"mode", c.state.Mode().String(),
		"win_streak", c.state.WinStreak(),
		"capacity", c.sweeper.Capacity(),
	)
	return nil
}

// rewind drops stored rows from height upwards so a replacement block can be
// stored in their place.
func (c *Coordinator) rewind(ctx context.Context, height int64) error {
	blocks, err := c.history.Blocks.DeleteFrom(ctx, c.cfg.Chain, c.cfg.Network, height)
	if err != nil {
		return fmt.Errorf("rewind blocks from %d: %w", height, err)
	}
	txs, err := c.history.Transactions.DeleteFrom(ctx, c.cfg.Chain, c.cfg.Network, height)
	if err != nil {
		return fmt.Errorf("rewind transactions from %d: %w", height, err)
	}
	c.logger.Info("rewound history for replaced block",
		"from_block", height,
		"blocks_deleted", blocks,
		"transactions_deleted", txs,
	)
	return nil
}

// finalise resolves the base fee of prev from the evidence gathered while it
// was current and fills the priority fees of its watched transactions. After a
// discontinuity prev is settled on its candidate without touching the win
// streak, since it may no longer be on the chain.
func (c *Coordinator) finalise(ctx context.Context, prev *model.Block, forked bool) error {
	grand, err := c.history.Blocks.GetByHeight(ctx, c.cfg.Chain, c.cfg.Network, prev.Height-1)
	if err != nil {
		return fmt.Errorf("get block %d: %w", prev.Height-1, err)
	}

	var res convergence.Resolution
	var predicted int64
	if grand.HasBaseFee() && !forked {
		predicted = feemath.NextBaseFee(*grand.BaseFee, grand.GasLimit, grand.GasUsed)
		res = c.state.Confirm(predicted)
	} else {
		res = c.state.Settle()
	}

	chain, network := c.labels()
	candidate, _ := c.state.Candidate()
	c.logger.Debug("base fee finalised",
		"block_number", prev.Height,
		"predicted_base_fee", predicted,
		"candidate_base_fee", candidate,
		"resolved", res.Resolved,
		"win_streak", res.WinStreak,
	)
	metrics.ConvergenceWinStreak.WithLabelValues(chain, network).Set(float64(res.WinStreak))
	if res.Promoted {
		metrics.ConvergencePromotions.WithLabelValues(chain, network).Inc()
		c.logger.Info("win streak limit reached, base fee formula trusted",
			"block_number", prev.Height,
			"win_streak", res.WinStreak,
		)
	}
	if !res.Resolved {
		return nil
	}

	if err := c.history.Blocks.UpdateBaseFee(ctx, c.cfg.Chain, c.cfg.Network, prev.Height, res.BaseFee); err != nil {
		return fmt.Errorf("update base fee of block %d: %w", prev.Height, err)
	}
	v := res.BaseFee
	prev.BaseFee = &v
	c.setLatestBaseFee(v)
	return c.fillPriorityFees(ctx, prev.Height, v)
}

// fillPriorityFees stores the exact priority fee of every watched transaction
// of the block at height once its base fee is known.
func (c *Coordinator) fillPriorityFees(ctx context.Context, height, baseFee int64) error {
	txs, err := c.history.Transactions.ListByBlock(ctx, c.cfg.Chain, c.cfg.Network, height)
	if err != nil {
		return fmt.Errorf("list transactions of block %d: %w", height, err)
	}
	for _, tx := range txs {
		if err := c.history.Transactions.UpdatePriorityFee(ctx, c.cfg.Chain, c.cfg.Network, tx.Hash, tx.GasPrice-baseFee); err != nil {
			return fmt.Errorf("update priority fee of %s: %w", tx.Hash, err)
		}
	}
	return nil
}

// backfill computes prev's base fee from its parent when confident mode was
// reached without prev being finalised.
func (c *Coordinator) backfill(ctx context.Context, prev *model.Block) error {
	grand, err := c.history.Blocks.GetByHeight(ctx, c.cfg.Chain, c.cfg.Network, prev.Height-1)
	if err != nil {
		return fmt.Errorf("get block %d: %w", prev.Height-1, err)
	}
	if !grand.HasBaseFee() {
		return nil
	}
	v := feemath.NextBaseFee(*grand.BaseFee, grand.GasLimit, grand.GasUsed)
	if err := c.history.Blocks.UpdateBaseFee(ctx, c.cfg.Chain, c.cfg.Network, prev.Height, v); err != nil {
		return fmt.Errorf("backfill base fee of block %d: %w", prev.Height, err)
	}
	prev.BaseFee = &v
	return c.fillPriorityFees(ctx, prev.Height, v)
}

// HandleTransaction records base fee evidence and, for watched protocols,
// stores the transaction and grades its priority fee. It returns nil without
// error when no finding applies.
func (c *Coordinator) HandleTransaction(ctx context.Context, ev event.TransactionEvent) (f *model.Finding, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	chain, network := c.labels()
	metrics.TransactionsObserved.WithLabelValues(chain, network).Inc()

	protocol := strings.ToLower(ev.To)
	name, watched := c.cfg.Protocols[protocol]
	if c.cfg.ObserveAllTransactions || watched {
		c.state.ObserveGasPrice(ev.BlockHeight, ev.GasPrice)
	}
	if !watched {
		return nil, nil
	}

	ctx, span := tracing.Start(ctx, tracing.Tracer("coordinator"), "coordinator.handle_transaction",
		attribute.String("tx_hash", ev.Hash),
		attribute.String("protocol", protocol),
	)
	defer func() {
		tracing.End(span, err)
		if err != nil {
			metrics.HandleErrors.WithLabelValues(chain, network, "transaction").Inc()
		}
	}()

	prev, err := c.history.Blocks.GetByHeight(ctx, c.cfg.Chain, c.cfg.Network, ev.BlockHeight-1)
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", ev.BlockHeight-1, err)
	}

	hour := model.HourBucket(ev.Timestamp)
	var fc *model.Forecast
	if c.sweeper.Capacity() > c.cfg.MinForecastCapacity {
		fc, err = c.forecasts.Fill(ctx, protocol, hour)
	} else {
		fc, err = c.forecasts.Lookup(ctx, protocol, hour)
	}
	if err != nil {
		return nil, fmt.Errorf("forecast for %s: %w", protocol, err)
	}

	tx := &model.Transaction{
		Chain:       c.cfg.Chain,
		Network:     c.cfg.Network,
		Hash:        ev.Hash,
		BlockHeight: ev.BlockHeight,
		Protocol:    protocol,
		Gas:         ev.Gas,
		GasPrice:    ev.GasPrice,
		Timestamp:   ev.Timestamp,
	}

	var est classifier.Estimate
	switch {
	case !prev.HasBaseFee():
		metrics.UnclassifiedTotal.WithLabelValues(chain, network, "no_prev_base_fee").Inc()
	case c.state.Confident():
		baseFee := feemath.NextBaseFee(*prev.BaseFee, prev.GasLimit, prev.GasUsed)
		priorityFee := ev.GasPrice - baseFee
		tx.PriorityFee = &priorityFee
		est = classifier.ConfidentEstimate(baseFee)
	default:
		candidate, ok := c.state.Candidate()
		est = classifier.UncertainEstimate(*prev.BaseFee, candidate, ok)
	}
	if est != nil && fc == nil {
		metrics.UnclassifiedTotal.WithLabelValues(chain, network, "no_forecast").Inc()
	}

	if est != nil && fc != nil {
		res, ok := classifier.Classify(est, ev.GasPrice, *fc, c.cfg.Policy)
		c.logFees(ev, name, est, *fc)
		if ok {
			f = &model.Finding{
				ID:               uuid.NewString(),
				Chain:            c.cfg.Chain,
				Network:          c.cfg.Network,
				Severity:         res.Severity,
				Class:            res.Class,
				ProtocolAddress:  protocol,
				ProtocolName:     name,
				ExpectedUpperFee: res.ExpectedUpperFee,
				ObservedFee:      res.ObservedFee,
				TxHash:           ev.Hash,
				BlockHeight:      ev.BlockHeight,
				DetectedAt:       c.nowFn().UTC(),
			}
			metrics.FindingsTotal.WithLabelValues(chain, network, string(res.Severity), string(res.Class)).Inc()
		}
	}

	if err := c.history.Transactions.Insert(ctx, tx); err != nil {
		return nil, fmt.Errorf("insert transaction %s: %w", ev.Hash, err)
	}
	metrics.WatchedTransactionsStored.WithLabelValues(chain, network).Inc()
	return f, nil
}

func (c *Coordinator) logFees(ev event.TransactionEvent, name string, est classifier.Estimate, fc model.Forecast) {
	if !c.logger.Enabled(context.Background(), slog.LevelDebug) {
		return
	}
	attrs := []any{
		"protocol", name,
		"tx_hash", ev.Hash,
		"expected_priority_fee_gwei", gwei(fc.Point),
		"expected_priority_fee_upper_gwei", gwei(fc.Upper),
		"expected_priority_fee_lower_gwei", gwei(fc.Lower),
	}
	switch e := est.(type) {
	case classifier.Confident:
		attrs = append(attrs, "priority_fee_gwei", gwei(ev.GasPrice-e.BaseFee))
	case classifier.Uncertain:
		lower, upper := e.PriorityFeeRange(ev.GasPrice)
		attrs = append(attrs,
			"priority_fee_lower_gwei", gwei(lower)/feemath.BoundsScale,
			"priority_fee_upper_gwei", gwei(upper)/feemath.BoundsScale,
		)
	}
	c.logger.Debug("priority fee graded", attrs...)
}

func gwei(wei int64) float64 {
	return float64(wei) / 1e9
}

func (c *Coordinator) setLatestBaseFee(v int64) {
	c.latestBaseFee = &v
	chain, network := c.labels()
	metrics.LatestBaseFee.WithLabelValues(chain, network).Set(float64(v))
}

func (c *Coordinator) publish() {
	chain, network := c.labels()
	conv := c.state.Snapshot()
	metrics.ConvergenceMode.WithLabelValues(chain, network).Set(float64(conv.Mode))
	metrics.ConvergenceWinStreak.WithLabelValues(chain, network).Set(float64(conv.WinStreak))

	capacity := c.sweeper.Capacity()
	snap := &Snapshot{
		Chain:          c.cfg.Chain,
		Network:        c.cfg.Network,
		Convergence:    conv,
		LastBlock:      conv.CurrentHeight,
		LastBlockHash:  c.lastHash,
		Capacity:       capacity,
		ForecastViable: capacity > c.cfg.MinForecastCapacity,
		UpdatedAt:      c.nowFn().UTC(),
	}
	if c.latestBaseFee != nil {
		v := *c.latestBaseFee
		snap.LatestBaseFee = &v
	}
	if c.lastDiscontinuity != nil {
		d := *c.lastDiscontinuity
		snap.Discontinuity = &d
	}
	c.snapshot.Store(snap)
}
