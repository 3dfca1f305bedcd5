package repository

import (
	"context"

	"stock-insight/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type IndicatorRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewIndicatorRepository(pool PgxPool, tracer trace.Tracer) *IndicatorRepository {
	return &IndicatorRepository{pool: pool, tracer: tracer}
}

func (r *IndicatorRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS technical_indicators (
			stock_id BIGINT NOT NULL,
			date DATE NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			rsi_14 DOUBLE PRECISION,
			macd DOUBLE PRECISION,
			macd_signal DOUBLE PRECISION,
			macd_histogram DOUBLE PRECISION,
			sma_20 DOUBLE PRECISION,
			sma_50 DOUBLE PRECISION,
			sma_200 DOUBLE PRECISION,
			ema_12 DOUBLE PRECISION,
			ema_26 DOUBLE PRECISION,
			PRIMARY KEY (stock_id, date)
		)`)
	return err
}

// UpsertSnapshots writes one row per snapshot. Nil indicator values are
// stored as SQL NULL so a later read keeps them distinct from zero.
func (r *IndicatorRepository) UpsertSnapshots(ctx context.Context, stockID int64, snaps []domain.IndicatorSnapshot) error {
	if len(snaps) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "indicator-repo.upsert-snapshots")
	defer span.End()

	batch := &pgx.Batch{}
	for _, s := range snaps {
		batch.Queue(
			`INSERT INTO technical_indicators
			     (stock_id, date, close, rsi_14, macd, macd_signal, macd_histogram,
			      sma_20, sma_50, sma_200, ema_12, ema_26)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			 ON CONFLICT (stock_id, date) DO UPDATE SET
			     close = EXCLUDED.close,
			     rsi_14 = EXCLUDED.rsi_14,
			     macd = EXCLUDED.macd,
			     macd_signal = EXCLUDED.macd_signal,
			     macd_histogram = EXCLUDED.macd_histogram,
			     sma_20 = EXCLUDED.sma_20,
			     sma_50 = EXCLUDED.sma_50,
			     sma_200 = EXCLUDED.sma_200,
			     ema_12 = EXCLUDED.ema_12,
			     ema_26 = EXCLUDED.ema_26`,
			stockID, s.Date, s.Close, s.RSI14, s.MACD, s.MACDSignal, s.MACDHistogram,
			s.SMA20, s.SMA50, s.SMA200, s.EMA12, s.EMA26,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range snaps {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetLatest returns up to limit snapshots, newest first.
func (r *IndicatorRepository) GetLatest(ctx context.Context, stockID int64, limit int) ([]domain.IndicatorSnapshot, error) {
	_, span := r.tracer.Start(ctx, "indicator-repo.get-latest")
	defer span.End()

	if limit <= 0 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx,
		`SELECT date, close, rsi_14, macd, macd_signal, macd_histogram,
		        sma_20, sma_50, sma_200, ema_12, ema_26
		 FROM technical_indicators
		 WHERE stock_id = $1
		 ORDER BY date DESC
		 LIMIT $2`,
		stockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []domain.IndicatorSnapshot
	for rows.Next() {
		var s domain.IndicatorSnapshot
		if err := rows.Scan(
			&s.Date, &s.Close, &s.RSI14, &s.MACD, &s.MACDSignal, &s.MACDHistogram,
			&s.SMA20, &s.SMA50, &s.SMA200, &s.EMA12, &s.EMA26,
		); err != nil {
			return nil, err
		}
		s.Date = s.Date.UTC()
		snaps = append(snaps, s)
	}
	return snaps, rows.Err()
}
