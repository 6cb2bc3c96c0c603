package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/costsim/internal/domain"
)

// EstimateStore implements domain.EstimateStore using PostgreSQL.
type EstimateStore struct {
	pool *pgxpool.Pool
}

// NewEstimateStore creates a new EstimateStore backed by the given pool.
func NewEstimateStore(pool *pgxpool.Pool) *EstimateStore {
	return &EstimateStore{pool: pool}
}

const estimateSelectCols = `id, instrument, side, quantity_usd, order_price,
	volatility, slippage, fee, market_impact, net_cost,
	maker_probability, taker_probability, degraded, latency_ms, timestamp`

func scanEstimateRows(rows pgx.Rows) ([]domain.CostEstimate, error) {
	var ests []domain.CostEstimate
	for rows.Next() {
		var e domain.CostEstimate
		if err := rows.Scan(
			&e.ID, &e.Instrument, &e.Side, &e.QuantityUSD, &e.OrderPrice,
			&e.Volatility, &e.Slippage, &e.Fee, &e.MarketImpact, &e.NetCost,
			&e.MakerProbability, &e.TakerProbability, &e.Degraded,
			&e.Latency, &e.Timestamp,
		); err != nil {
			return nil, err
		}
		ests = append(ests, e)
	}
	return ests, rows.Err()
}

// Insert persists a served estimate. Duplicate IDs are silently skipped via
// ON CONFLICT DO NOTHING.
func (s *EstimateStore) Insert(ctx context.Context, est domain.CostEstimate) error {
	const query = `
		INSERT INTO estimates (
			id, instrument, side, quantity_usd, order_price,
			volatility, slippage, fee, market_impact, net_cost,
			maker_probability, taker_probability, degraded, latency_ms, timestamp
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15
		) ON CONFLICT (id) DO NOTHING`

	_, err := s.pool.Exec(ctx, query,
		est.ID, est.Instrument, est.Side, est.QuantityUSD, est.OrderPrice,
		est.Volatility, est.Slippage, est.Fee, est.MarketImpact, est.NetCost,
		est.MakerProbability, est.TakerProbability, est.Degraded,
		est.Latency, est.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert estimate %s: %w", est.ID, err)
	}
	return nil
}

// ListRecent returns estimates for an instrument, newest first, with
// pagination and optional time filtering.
func (s *EstimateStore) ListRecent(ctx context.Context, instrument string, opts domain.ListOpts) ([]domain.CostEstimate, error) {
	query := `SELECT ` + estimateSelectCols + ` FROM estimates WHERE instrument = $1`
	args := []any{instrument}
	argIdx := 2

	if opts.Since != nil {
		query += fmt.Sprintf(" AND timestamp >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND timestamp <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY timestamp DESC"

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list recent estimates: %w", err)
	}
	defer rows.Close()

	ests, err := scanEstimateRows(rows)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan recent estimates: %w", err)
	}
	return ests, nil
}

// Count returns the number of stored estimates for an instrument.
func (s *EstimateStore) Count(ctx context.Context, instrument string) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM estimates WHERE instrument = $1", instrument,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count estimates: %w", err)
	}
	return count, nil
}

// Compile-time interface check.
var _ domain.EstimateStore = (*EstimateStore)(nil)
