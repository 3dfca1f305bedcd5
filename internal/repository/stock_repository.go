package repository

import (
	"context"
	"errors"
	"strings"

	"stock-insight/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type StockRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewStockRepository(pool PgxPool, tracer trace.Tracer) *StockRepository {
	return &StockRepository{pool: pool, tracer: tracer}
}

func (r *StockRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS stocks (
			id BIGSERIAL PRIMARY KEY,
			ticker TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL DEFAULT '',
			exchange TEXT NOT NULL DEFAULT '',
			sector TEXT NOT NULL DEFAULT '',
			currency TEXT NOT NULL DEFAULT ''
		)`)
	return err
}

// GetByTicker returns nil without error when the ticker is unknown.
func (r *StockRepository) GetByTicker(ctx context.Context, ticker string) (*domain.Stock, error) {
	_, span := r.tracer.Start(ctx, "stock-repo.get-by-ticker")
	defer span.End()

	s := &domain.Stock{}
	err := r.pool.QueryRow(ctx,
		`SELECT id, ticker, name, exchange, sector, currency
		 FROM stocks WHERE ticker = $1`,
		strings.ToUpper(ticker),
	).Scan(&s.ID, &s.Ticker, &s.Name, &s.Exchange, &s.Sector, &s.Currency)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Upsert creates the stock or refreshes its profile fields, returning the
// stored row with its id.
func (r *StockRepository) Upsert(ctx context.Context, s domain.Stock) (*domain.Stock, error) {
	_, span := r.tracer.Start(ctx, "stock-repo.upsert")
	defer span.End()

	s.Ticker = strings.ToUpper(s.Ticker)
	err := r.pool.QueryRow(ctx,
		`INSERT INTO stocks (ticker, name, exchange, sector, currency)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (ticker) DO UPDATE SET
		     name = EXCLUDED.name,
		     exchange = EXCLUDED.exchange,
		     sector = EXCLUDED.sector,
		     currency = EXCLUDED.currency
		 RETURNING id`,
		s.Ticker, s.Name, s.Exchange, s.Sector, s.Currency,
	).Scan(&s.ID)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
