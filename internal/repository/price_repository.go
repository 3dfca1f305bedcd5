package repository

import (
	"context"

	"stock-insight/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type PriceRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPriceRepository(pool PgxPool, tracer trace.Tracer) *PriceRepository {
	return &PriceRepository{pool: pool, tracer: tracer}
}

func (r *PriceRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stock_prices (
			stock_id BIGINT NOT NULL,
			date DATE NOT NULL,
			open DOUBLE PRECISION NOT NULL,
			high DOUBLE PRECISION NOT NULL,
			low DOUBLE PRECISION NOT NULL,
			close DOUBLE PRECISION NOT NULL,
			volume DOUBLE PRECISION NOT NULL,
			PRIMARY KEY (stock_id, date)
		)`)
	return err
}

func (r *PriceRepository) UpsertPrices(ctx context.Context, stockID int64, series domain.PriceSeries) error {
	if len(series) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "price-repo.upsert-prices")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range series {
		batch.Queue(
			`INSERT INTO stock_prices (stock_id, date, open, high, low, close, volume)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (stock_id, date) DO UPDATE SET
			     open = EXCLUDED.open,
			     high = EXCLUDED.high,
			     low = EXCLUDED.low,
			     close = EXCLUDED.close,
			     volume = EXCLUDED.volume`,
			stockID, p.Date, p.Open, p.High, p.Low, p.Close, p.Volume,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range series {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// GetPrices returns the most recent bars in ascending date order. A zero
// limit means the whole history.
func (r *PriceRepository) GetPrices(ctx context.Context, stockID int64, limit int) (domain.PriceSeries, error) {
	_, span := r.tracer.Start(ctx, "price-repo.get-prices")
	defer span.End()

	rows, err := r.pool.Query(ctx,
		`SELECT date, open, high, low, close, volume
		 FROM stock_prices
		 WHERE stock_id = $1 AND ($2 = 0 OR date >= (
		     SELECT MIN(date) FROM (
		         SELECT date FROM stock_prices WHERE stock_id = $1 ORDER BY date DESC LIMIT $2
		     ) recent
		 ))
		 ORDER BY date ASC`,
		stockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series domain.PriceSeries
	for rows.Next() {
		var p domain.PricePoint
		if err := rows.Scan(&p.Date, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume); err != nil {
			return nil, err
		}
		p.Date = p.Date.UTC()
		series = append(series, p)
	}
	return series, rows.Err()
}
