package repository

import (
	"context"

	"stock-insight/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type RecommendationRepository struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewRecommendationRepository(pool PgxPool, tracer trace.Tracer) *RecommendationRepository {
	return &RecommendationRepository{pool: pool, tracer: tracer}
}

func (r *RecommendationRepository) RunMigrations(ctx context.Context) error {
	_, err := r.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS recommendations (
			id BIGSERIAL PRIMARY KEY,
			stock_id BIGINT NOT NULL,
			action TEXT NOT NULL,
			confidence_score DOUBLE PRECISION NOT NULL,
			target_price DOUBLE PRECISION NOT NULL,
			current_price DOUBLE PRECISION NOT NULL,
			technical_score DOUBLE PRECISION NOT NULL,
			fundamental_score DOUBLE PRECISION NOT NULL,
			reasoning TEXT NOT NULL,
			risk_level TEXT NOT NULL,
			time_horizon TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`)
	return err
}

// Insert appends the recommendation as a new historical row and returns it
// with its id and creation time filled in.
func (r *RecommendationRepository) Insert(ctx context.Context, rec domain.Recommendation) (*domain.Recommendation, error) {
	_, span := r.tracer.Start(ctx, "recommendation-repo.insert")
	defer span.End()

	err := r.pool.QueryRow(ctx,
		`INSERT INTO recommendations
		     (stock_id, action, confidence_score, target_price, current_price,
		      technical_score, fundamental_score, reasoning, risk_level, time_horizon)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING id, created_at`,
		rec.StockID, string(rec.Action), rec.ConfidenceScore, rec.TargetPrice, rec.CurrentPrice,
		rec.TechnicalScore, rec.FundamentalScore, rec.Reasoning, string(rec.RiskLevel), string(rec.TimeHorizon),
	).Scan(&rec.ID, &rec.CreatedAt)
	if err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return &rec, nil
}

// ListByStock returns the newest recommendations first.
func (r *RecommendationRepository) ListByStock(ctx context.Context, stockID int64, limit int) ([]domain.Recommendation, error) {
	_, span := r.tracer.Start(ctx, "recommendation-repo.list-by-stock")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	rows, err := r.pool.Query(ctx,
		`SELECT id, stock_id, action, confidence_score, target_price, current_price,
		        technical_score, fundamental_score, reasoning, risk_level, time_horizon, created_at
		 FROM recommendations
		 WHERE stock_id = $1
		 ORDER BY created_at DESC
		 LIMIT $2`,
		stockID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Recommendation
	for rows.Next() {
		var rec domain.Recommendation
		var action, risk, horizon string
		if err := rows.Scan(
			&rec.ID, &rec.StockID, &action, &rec.ConfidenceScore, &rec.TargetPrice, &rec.CurrentPrice,
			&rec.TechnicalScore, &rec.FundamentalScore, &rec.Reasoning, &risk, &horizon, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Action = domain.Action(action)
		rec.RiskLevel = domain.RiskLevel(risk)
		rec.TimeHorizon = domain.TimeHorizon(horizon)
		rec.CreatedAt = rec.CreatedAt.UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}
