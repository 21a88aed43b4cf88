package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/emperorhan/priority-fee-monitor/internal/domain/model"
	"github.com/emperorhan/priority-fee-monitor/internal/store"
)

var _ store.ForecastRepository = (*ForecastRepo)(nil)

type ForecastRepo struct {
	db *sql.DB
}

func NewForecastRepo(db *DB) *ForecastRepo {
	return &ForecastRepo{db: db.DB}
}

func (r *ForecastRepo) Get(ctx context.Context, chain model.Chain, network model.Network, protocol string, hour int64) (*model.Forecast, error) {
	const query = `
		SELECT chain, network, protocol, hour_bucket, priority_fee, priority_fee_lower, priority_fee_upper
		FROM forecasts
		WHERE chain = $1 AND network = $2 AND protocol = $3 AND hour_bucket = $4
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	var f model.Forecast
	err := r.db.QueryRowContext(ctx, query, chain, network, protocol, hour).Scan(
		&f.Chain, &f.Network, &f.Protocol, &f.Hour, &f.Point, &f.Lower, &f.Upper,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get forecast %s@%d: %w", protocol, hour, err)
	}
	return &f, nil
}

func (r *ForecastRepo) ListByProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string) ([]model.Forecast, error) {
	const query = `
		SELECT chain, network, protocol, hour_bucket, priority_fee, priority_fee_lower, priority_fee_upper
		FROM forecasts
		WHERE chain = $1 AND network = $2 AND protocol = $3
		ORDER BY hour_bucket
	`
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, chain, network, protocol)
	if err != nil {
		return nil, fmt.Errorf("query forecasts: %w", err)
	}
	defer rows.Close()

	var out []model.Forecast
	for rows.Next() {
		var f model.Forecast
		if err := rows.Scan(&f.Chain, &f.Network, &f.Protocol, &f.Hour, &f.Point, &f.Lower, &f.Upper); err != nil {
			return nil, fmt.Errorf("scan forecast: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReplaceForProtocol deletes and bulk-loads the protocol's rows inside one
// transaction, so readers never observe a half-written set.
func (r *ForecastRepo) ReplaceForProtocol(ctx context.Context, chain model.Chain, network model.Network, protocol string, forecasts []model.Forecast) error {
	ctx, cancel := withTimeout(ctx, DefaultQueryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM forecasts WHERE chain = $1 AND network = $2 AND protocol = $3`,
		chain, network, protocol,
	); err != nil {
		return fmt.Errorf("delete forecasts of %s: %w", protocol, err)
	}

	if len(forecasts) > 0 {
		stmt, err := tx.PrepareContext(ctx, pq.CopyIn("forecasts",
			"chain", "network", "protocol", "hour_bucket",
			"priority_fee", "priority_fee_lower", "priority_fee_upper"))
		if err != nil {
			return fmt.Errorf("prepare copy: %w", err)
		}
		for _, f := range forecasts {
			if _, err := stmt.ExecContext(ctx, string(chain), string(network), protocol, f.Hour, f.Point, f.Lower, f.Upper); err != nil {
				stmt.Close()
				return fmt.Errorf("copy forecast %d: %w", f.Hour, err)
			}
		}
		if _, err := stmt.ExecContext(ctx); err != nil {
			stmt.Close()
			return fmt.Errorf("flush copy: %w", err)
		}
		if err := stmt.Close(); err != nil {
			return fmt.Errorf("close copy: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit forecasts of %s: %w", protocol, err)
	}
	return nil
}
