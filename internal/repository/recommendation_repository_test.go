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

func TestRecommendationInsertFillsIDAndTimestamp(t *testing.T) {
	created := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	pool := &recStubPool{rowData: []any{int64(9), created}}
	repo := NewRecommendationRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	rec, err := repo.Insert(context.Background(), domain.Recommendation{
		StockID:     1,
		Action:      domain.ActionBuy,
		RiskLevel:   domain.RiskMedium,
		TimeHorizon: domain.HorizonShort,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.ID != 9 || !rec.CreatedAt.Equal(created) {
		t.Fatalf("unexpected recommendation: %+v", rec)
	}
}

func TestRecommendationListByStockReturnsRows(t *testing.T) {
	created := time.Date(2024, 6, 3, 12, 0, 0, 0, time.UTC)
	pool := &recStubPool{rowsData: [][]any{
		{int64(9), int64(1), "buy", 0.74, 120.0, 100.0, 0.8, 0.6, "reasons", "medium", "short", created},
	}}
	repo := NewRecommendationRepository(pool, trace.NewNoopTracerProvider().Tracer("test"))

	recs, err := repo.ListByStock(context.Background(), 1, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 recommendation, got %d", len(recs))
	}
	r := recs[0]
	if r.Action != domain.ActionBuy || r.RiskLevel != domain.RiskMedium || r.TimeHorizon != domain.HorizonShort {
		t.Fatalf("unexpected enums: %+v", r)
	}
	if r.TargetPrice != 120 || r.Reasoning != "reasons" {
		t.Fatalf("unexpected fields: %+v", r)
	}
}

type recStubPool struct {
	rowData  []any
	rowsData [][]any
}

func (s *recStubPool) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (s *recStubPool) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults {
	return &predStubBatchResults{}
}

func (s *recStubPool) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return &recStubRows{data: s.rowsData}, nil
}

func (s *recStubPool) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return &stockStubRow{data: s.rowData}
}

type recStubRows struct {
	data [][]any
	idx  int
}

func (r *recStubRows) Close()                                       {}
func (r *recStubRows) Err() error                                   { return nil }
func (r *recStubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *recStubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *recStubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *recStubRows) Scan(dest ...any) error {
	if r.idx == 0 || r.idx > len(r.data) {
		return fmt.Errorf("invalid scan index")
	}
	row := r.data[r.idx-1]
	for i, d := range dest {
		switch ptr := d.(type) {
		case *int64:
			*ptr = row[i].(int64)
		case *string:
			*ptr = row[i].(string)
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

func (r *recStubRows) Values() ([]any, error) { return nil, nil }
func (r *recStubRows) RawValues() [][]byte    { return nil }
func (r *recStubRows) Conn() *pgx.Conn        { return nil }
