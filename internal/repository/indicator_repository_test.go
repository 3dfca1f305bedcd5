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

func TestIndicatorRunMigrationsExecutesSchema(t *testing.T) {
	pool := &indStubPool{}
	repo := NewIndicatorRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	if err := repo.RunMigrations(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool.execSQL) == 0 {
		t.Fatal("expected Exec to be called")
	}
}

func TestIndicatorUpsertBatchesStatements(t *testing.T) {
	batchResults := &indStubBatchResults{}
	pool := &indStubPool{batchResults: batchResults}
	repo := NewIndicatorRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	rsi := 45.0
	snaps := []domain.IndicatorSnapshot{
		{Date: time.Unix(0, 0).UTC(), Close: 100, RSI14: &rsi},
		{Date: time.Unix(86400, 0).UTC(), Close: 101},
	}
	if err := repo.UpsertSnapshots(context.Background(), 2, snaps); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.queuedBatch == nil || pool.queuedBatch.Len() != len(snaps) {
		t.Fatalf("expected batch of size %d", len(snaps))
	}
	if batchResults.execCalls != len(snaps) {
		t.Fatalf("expected %d Exec calls, got %d", len(snaps), batchResults.execCalls)
	}
}

func TestIndicatorGetLatestKeepsNulls(t *testing.T) {
	day := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)
	rsi := 62.5
	pool := &indStubPool{rowsData: [][]any{
		{day, 104.0, &rsi, nilF(), nilF(), nilF(), nilF(), nilF(), nilF(), nilF(), nilF()},
	}}
	repo := NewIndicatorRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	snaps, err := repo.GetLatest(context.Background(), 2, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(snaps) != 1 {
		t.Fatalf("expected 1 snapshot, got %d", len(snaps))
	}
	s := snaps[0]
	if s.RSI14 == nil || *s.RSI14 != 62.5 {
		t.Fatalf("rsi: %v", s.RSI14)
	}
	if s.MACD != nil || s.SMA200 != nil {
		t.Fatal("NULL columns must stay nil")
	}
}

func nilF() *float64 { return nil }

type indStubPool struct {
	batchResults pgx.BatchResults
	queuedBatch  *pgx.Batch
	rowsData     [][]any
	execSQL      []string
}

func (s *indStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.execSQL = append(s.execSQL, sql)
	return pgconn.CommandTag{}, nil
}

func (s *indStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	s.queuedBatch = b
	if s.batchResults != nil {
		return s.batchResults
	}
	return &indStubBatchResults{}
}

func (s *indStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &indStubRows{data: s.rowsData}, nil
}

func (s *indStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &stockStubRow{}
}

type indStubBatchResults struct {
	execCalls int
}

func (s *indStubBatchResults) Exec() (pgconn.CommandTag, error) {
	s.execCalls++
	return pgconn.CommandTag{}, nil
}

func (s *indStubBatchResults) Query() (pgx.Rows, error) { return &indStubRows{}, nil }
func (s *indStubBatchResults) QueryRow() pgx.Row        { return &stockStubRow{} }
func (s *indStubBatchResults) Close() error             { return nil }

type indStubRows struct {
	data [][]any
	idx  int
}

func (r *indStubRows) Close()                                       {}
func (r *indStubRows) Err() error                                   { return nil }
func (r *indStubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *indStubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *indStubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *indStubRows) Scan(dest ...any) error {
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
		case **float64:
			*ptr = row[i].(*float64)
		default:
			return fmt.Errorf("unsupported dest type %T", d)
		}
	}
	return nil
}

func (r *indStubRows) Values() ([]any, error) { return nil, nil }
func (r *indStubRows) RawValues() [][]byte    { return nil }
func (r *indStubRows) Conn() *pgx.Conn        { return nil }
