package repository

import (
	"context"

	"stock-insight/internal/domain"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/trace"
)

type PredictionRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewPredictionRepository(pool PgxPool, tracer trace.Tracer) *PredictionRepository {
	return &PredictionRepository{pool: pool, tracer: tracer}
}

func (r *PredictionRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS predictions (
			id BIGSERIAL PRIMARY KEY,
			stock_id BIGINT NOT NULL,
			model_kind TEXT NOT NULL,
			prediction_date DATE NOT NULL,
			predicted_price DOUBLE PRECISION NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// InsertForecast stores every predicted day of one run. Rows are
// insert-only; each analysis run appends a fresh batch.
func (r *PredictionRepository) InsertForecast(ctx context.Context, stockID int64, result domain.ForecastResult) error {
	if len(result.Predictions) == 0 {
		return nil
	}

	_, span := r.tracer.Start(ctx, "prediction-repo.insert-forecast")
	defer span.End()

	batch := &pgx.Batch{}
	for _, p := range result.Predictions {
		batch.Queue(
			`INSERT INTO predictions (stock_id, model_kind, prediction_date, predicted_price, confidence_score)
			 VALUES ($1, $2, $3, $4, $5)`,
			stockID, string(result.ModelKind), p.Date, p.Price, result.ConfidenceScore,
		)
	}

	br := r.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range result.Predictions {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

// ListByStock returns the newest stored predictions first.
func (r *PredictionRepository) ListByStock(ctx context.Context, stockID int64, limit int) ([]domain.StoredPrediction, error) {
	_, span := r.tracer.Start(ctx, "prediction-repo.list-by-stock")
	defer span.End()

	if limit <= 0 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, stock_id, model_kind, prediction_date, predicted_price, confidence_score, created_at
		 FROM predictions
		 WHERE stock_id = $1
		 ORDER BY created_at DESC, prediction_date ASC
		 LIMIT $2`,
		stockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.StoredPrediction
	for rows.Next() {
		var p domain.StoredPrediction
		var kind string
		if err := rows.Scan(&p.ID, &p.StockID, &kind, &p.PredictionDate, &p.PredictedPrice, &p.ConfidenceScore, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.ModelKind = domain.ModelKind(kind)
		p.PredictionDate = p.PredictionDate.UTC()
		p.CreatedAt = p.CreatedAt.UTC()
		out = append(out, p)
	}
	return out, rows.Err()
}
