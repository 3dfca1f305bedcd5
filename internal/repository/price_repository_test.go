package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/trace"

	"stock-insight/internal/domain"
)

func TestPriceRunMigrationsExecutesSchema(t *testing.T) {
	pool := &priceStubPool{}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) == 0 {
		t.Fatal("expected Exec to be called")
	}
}

func TestPriceUpsertBatchesStatements(t *testing.T) {
	batchResults := &priceStubBatchResults{}
	pool := &priceStubPool{batchResults: batchResults}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	series := domain.PriceSeries{
		{Date: time.Unix(0, 0).UTC(), Open: 1, High: 2, Low: 0.5, Close: 1.5, Volume: 100},
		{Date: time.Unix(86400, 0).UTC(), Open: 1.5, High: 2.5, Low: 1, Close: 2, Volume: 120},
	}
	if err := repo.UpsertPrices(context.Background(), 1, series); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != len(series) {
		t.Fatalf("expected batch of size %d", len(series))
	}
	if batchResults.execCalls != len(series) {
		t.Fatalf("expected %d Exec calls, got %d", len(series), batchResults.execCalls)
	}
}

func TestPriceUpsertEmptySeriesSkipsBatch(t *testing.T) {
	pool := &priceStubPool{}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.UpsertPrices(context.Background(), 1, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch != nil {
		t.Fatal("empty series must not send a batch")
	}
}

func TestPriceGetPricesReturnsRows(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	pool := &priceStubPool{rowsData: [][]any{
		{day, 100.0, 105.0, 99.0, 104.0, 1000.0},
		{day.AddDate(0, 0, 1), 104.0, 106.0, 103.0, 105.0, 1100.0},
	}}
	repo := NewPriceRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	series, err := repo.GetPrices(context.Background(), 1, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(series))
	}
	if series[0].Close != 104 || series[1].Close != 105 {
		t.Fatalf("unexpected closes: %v, %v", series[0].Close, series[1].Close)
	}
}

type priceStubPool struct {
	batchResults pgx.BatchResults
	queuedBatch  *pgx.Batch
	rowsData     [][]any
	execSQL      []string
}

func (s *priceStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	return pgconn.CommandTag{}, nil
}

func (s *priceStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	s.queuedBatch = b
	if s.batchResults != nil {
		return s.batchResults
	}
	return &priceStubBatchResults{}
}

func (s *priceStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	dataCopy := make([][]any, len(s.rowsData))
	for i := range s.rowsData {
		row := make([]any, len(s.rowsData[i]))
		copy(row, s.rowsData[i])
		dataCopy[i] = row
	}
	return &priceStubRows{data: dataCopy}, nil
}

func (s *priceStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &stockStubRow{}
}

type priceStubBatchResults struct {
	execCalls int
}

func (s *priceStubBatchResults) Exec() (pgconn.CommandTag, error) {
	s.execCalls++
	return pgconn.CommandTag{}, nil
}

func (s *priceStubBatchResults) Query() (pgx.Rows, error) { return &priceStubRows{}, nil }
func (s *priceStubBatchResults) QueryRow() pgx.Row        { return &stockStubRow{} }
func (s *priceStubBatchResults) Close() error             { return nil }

type priceStubRows struct {
	data [][]any
	idx  int
}

func (r *priceStubRows) Close()                                       {}
func (r *priceStubRows) Err() error                                   { return nil }
func (r *priceStubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *priceStubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *priceStubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *priceStubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch ptr := d.(type) {
		case *time.Time:
			*ptr = row[i].(time.Time)
		case *float64:
			*ptr = row[i].(float64)
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}

func (r *priceStubRows) Values() ([]any, error) { return nil, nil }
func (r *priceStubRows) RawValues() [][]byte    { return nil }
func (r *priceStubRows) Conn() *pgx.Conn        { return nil }
