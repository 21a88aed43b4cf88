package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.TransactionRepository = (*TransactionRepo)(nil)

type TransactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *DB) *TransactionRepo {
	return &TransactionRepo{db: db.DB}
}

const transactionColumns = `chain, network, tx_hash, block_height, protocol, gas, gas_price, priority_fee, block_timestamp`

func (r *TransactionRepo) Insert(ctx context.Context, t *model.Transaction) error {
	const query = `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (chain, network, tx_hash)
		DO UPDATE SET block_height = EXCLUDED.block_height,
		              protocol = EXCLUDED.protocol,
		              gas = EXCLUDED.gas,
		              gas_price = EXCLUDED.gas_price,
		              priority_fee = EXCLUDED.priority_fee,
		              block_timestamp = EXCLUDED.block_timestamp
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx, query,
		t.Chain, t.Network, t.Hash, t.BlockHeight, t.Protocol,
		t.Gas, t.GasPrice, nullInt64(t.PriorityFee), t.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert transaction %s: %w", t.Hash, err)
	}
	return nil
}

func (r *TransactionRepo) ListByBlock(ctx context.Context, chain model.Chain, network model.Network, height int64) ([]model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE chain = $1 AND network = $2 AND block_height = $3
		ORDER BY block_timestamp, tx_hash
	`
	return r.list(ctx, query, chain, network, height)
}

func (r *TransactionRepo) ListByProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Transaction, error) {
	const query = `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE chain = $1 AND network = $2 AND protocol = $3
		ORDER BY block_timestamp, block_height, tx_hash
	`
	return r.list(ctx, query, chain, network, protocol)
}

func (r *TransactionRepo) list(ctx context.Context, query string, args ...any) ([]model.Transaction, error) {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txs []model.Transaction
	for rows.Next() {
		var (
			t  model.Transaction
			pf sql.NullInt64
		)
		if err := rows.Scan(&t.Chain, &t.Network, &t.Hash, &t.BlockHeight, &t.Protocol,
			&t.Gas, &t.GasPrice, &pf, &t.Timestamp); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		if pf.Valid {
			fee := pf.Int64
			t.PriorityFee = &fee
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *TransactionRepo) UpdatePriorityFee(ctx context.Context, chain model.Chain, network model.Network, txHash string, priorityFee int64) error {
	const query = `
		UPDATE transactions SET priority_fee = $4
		WHERE chain = $1 AND network = $2 AND tx_hash = $3
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	if _, err := r.db.ExecContext(ctx, query, chain, network, txHash, priorityFee); err != nil {
		return fmt.Errorf("update priority fee of %s: %w", txHash, err)
	}
	return nil
}

func (r *TransactionRepo) DeleteFrom(ctx context.Context, chain model.Chain, network model.Network, fromHeight int64) (int64, error) {
	const query = `DELETE FROM transactions WHERE chain = $1 AND network = $2 AND block_height >= $3`
	return execCount(ctx, r.db, DefaultQueryTimeout, query, chain, network, fromHeight)
}

func (r *TransactionRepo) DeleteOlderThan(ctx context.Context, chain model.Chain, network model.Network, height int64) (int64, error) {
	const query = `DELETE FROM transactions WHERE chain = $1 AND network = $2 AND block_height < $3`
	return execCount(ctx, r.db, LongQueryTimeout, query, chain, network, height)
}

func (r *TransactionRepo) Count(ctx context.Context, chain model.Chain, network model.Network) (int64, error) {
	const query = `SELECT COUNT(*) FROM transactions WHERE chain = $1 AND network = $2`
	return queryCount(ctx, r.db, query, chain, network)
}
