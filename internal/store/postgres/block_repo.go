package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.BlockRepository = (*BlockRepo)(nil)

type BlockRepo struct {
	db *sql.DB
}

func NewBlockRepo(db *DB) *BlockRepo {
	return &BlockRepo{db: db.DB}
}

func (r *BlockRepo) Insert(ctx context.Context, block *model.Block) error {
	const query = `
		INSERT INTO blocks (chain, network, height, block_hash, parent_hash, gas_used, gas_limit, base_fee, block_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chain, network, height)
		DO UPDATE SET block_hash = EXCLUDED.block_hash,
		              parent_hash = EXCLUDED.parent_hash,
		              gas_used = EXCLUDED.gas_used,
		              gas_limit = EXCLUDED.gas_limit,
		              base_fee = EXCLUDED.base_fee,
		              block_time = EXCLUDED.block_time,
		              updated_at = now()
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query,
		block.Chain, block.Network, block.Height, block.Hash, block.ParentHash,
		block.GasUsed, block.GasLimit, nullInt64(block.BaseFee), block.BlockTime,
	)
	if err != nil {
		return fmt.Errorf("insert block %d: %w", block.Height, err)
	}
	return nil
}

func (r *BlockRepo) GetByHeight(ctx context.Context, chain model.Chain, network model.Network, height int64) (*model.Block, error) {
	const query = `
		SELECT chain, network, height, block_hash, parent_hash, gas_used, gas_limit, base_fee, block_time
		FROM blocks
		WHERE chain = $1 AND network = $2 AND height = $3
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var (
		b       model.Block
		baseFee sql.NullInt64
		ts      sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, chain, network, height).Scan(
		&b.Chain, &b.Network, &b.Height, &b.Hash, &b.ParentHash, &b.GasUsed, &b.GasLimit, &baseFee, &ts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get block %d: %w", height, err)
	}
	if baseFee.Valid {
		b.BaseFee = &baseFee.Int64
	}
	if ts.Valid {
		b.BlockTime = &ts.Time
	}
	return &b, nil
}

func (r *BlockRepo) UpdateBaseFee(ctx context.Context, chain model.Chain, network model.Network, height int64, baseFee int64) error {
	const query = `
		UPDATE blocks SET base_fee = $4, updated_at = now()
		WHERE chain = $1 AND network = $2 AND height = $3
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, chain, network, height, baseFee); err != nil {
		return fmt.Errorf("update base fee of block %d: %w", height, err)
	}
	return nil
}

func (r *BlockRepo) DeleteFrom(ctx context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error) {
	const query = `DELETE FROM blocks WHERE chain = $1 AND network = $2 AND height >= $3`
	return execCount(ctx, r.db, DefaultQueryTimeout, query, chain, network, fromHeight)
}

func (r *BlockRepo) DeleteOlderThan(ctx context.Context, chain model.Chain, network model.Network, height int64) (int64, error) {
	const query = `DELETE FROM blocks WHERE chain = $1 AND network = $2 AND height < $3`
	return execCount(ctx, r.db, LongQueryTimeout, query, chain, network, height)
}

func (r *BlockRepo) Count(ctx context.Context, chain model.Chain, network model.Network) (int64, error) {
	const query = `SELECT COUNT(*) FROM blocks WHERE chain = $1 AND network = $2`
	return queryCount(ctx, r.db, query, chain, network)
}

func nullInt64(v *int64) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *v, Valid: true}
}

func execCount(ctx context.Context, db *sql.DB, timeout time.Duration, query string, args ...any) (int64, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	res, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("exec delete: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func queryCount(ctx context.Context, db *sql.DB, query string, args ...any) (int64, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var n int64
	if err := db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}
