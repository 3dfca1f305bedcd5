// Package service orchestrates one full analysis run: market data fetch,
// persistence, indicator computation, forecasting and the final
// recommendation.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel/trace"

	"stock-insight/internal/analysis"
	"stock-insight/internal/cache"
	"stock-insight/internal/domain"
	"stock-insight/internal/indicator"
	"stock-insight/internal/ml/models/anomaly"
	"stock-insight/internal/ml/models/direction"
	"stock-insight/internal/ml/window"
	"stock-insight/internal/provider"
)

const (
	historyDays     = 730
	fundamentalsTTL = time.Hour
	anomalyAlert    = 0.6
)

type MarketDataProvider interface {
	DailyHistory(ctx context.Context, ticker string, days int) (domain.PriceSeries, error)
	QuoteSummary(ctx context.Context, ticker string) (*provider.CompanyInfo, error)
}

type Forecaster interface {
	Run(ctx context.Context, series domain.PriceSeries, kind domain.ModelKind, days int) (*domain.ForecastResult, error)
}

type StockStore interface {
	GetByTicker(ctx context.Context, ticker string) (*domain.Stock, error)
	Upsert(ctx context.Context, s domain.Stock) (*domain.Stock, error)
}

type PriceStore interface {
	UpsertPrices(ctx context.Context, stockID int64, series domain.PriceSeries) error
	GetPrices(ctx context.Context, stockID int64, limit int) (domain.PriceSeries, error)
}

type IndicatorStore interface {
	UpsertSnapshots(ctx context.Context, stockID int64, snaps []domain.IndicatorSnapshot) error
}

type PredictionStore interface {
	InsertForecast(ctx context.Context, stockID int64, result domain.ForecastResult) error
	ListByStock(ctx context.Context, stockID int64, limit int) ([]domain.StoredPrediction, error)
}

type RecommendationStore interface {
	Insert(ctx context.Context, rec domain.Recommendation) (*domain.Recommendation, error)
	ListByStock(ctx context.Context, stockID int64, limit int) ([]domain.Recommendation, error)
}

// AnalysisResult aggregates everything one run produced. Optional sections
// are nil when their inputs were unavailable; the run itself only fails on
// data-fetch, forecast or persistence errors.
type AnalysisResult struct {
	Stock          domain.Stock              `json:"stock"`
	CurrentPrice   float64                   `json:"current_price"`
	Forecast       *domain.ForecastResult    `json:"forecast"`
	Technical      *domain.SignalAnalysis    `json:"technical,omitempty"`
	Indicators     *domain.IndicatorSnapshot `json:"indicators,omitempty"`
	Fundamentals   *domain.FinancialRatios   `json:"fundamentals,omitempty"`
	Recommendation *domain.Recommendation    `json:"recommendation"`
	Direction      *domain.DirectionOutlook  `json:"direction,omitempty"`
	AnomalyScore   *float64                  `json:"anomaly_score,omitempty"`
}

type AnalysisService struct {
	tracer     trace.Tracer
	market     MarketDataProvider
	forecaster Forecaster
	stocks     StockStore
	prices     PriceStore
	indicators IndicatorStore
	preds      PredictionStore
	recs       RecommendationStore
	redis      *redis.Client
	lookback   int
}

func NewAnalysisService(
	tracer trace.Tracer,
	market MarketDataProvider,
	forecaster Forecaster,
	stocks StockStore,
	prices PriceStore,
	indicators IndicatorStore,
	preds PredictionStore,
	recs RecommendationStore,
	redisClient *redis.Client,
) *AnalysisService {
	return &AnalysisService{
		tracer:     tracer,
		market:     market,
		forecaster: forecaster,
		stocks:     stocks,
		prices:     prices,
		indicators: indicators,
		preds:      preds,
		recs:       recs,
		redis:      redisClient,
		lookback:   window.DefaultLookback,
	}
}

// Analyze runs the full pipeline for one ticker. The technical and
// fundamental sections degrade to neutral when their data is missing; the
// forecast is mandatory and its failure fails the run.
func (s *AnalysisService) Analyze(ctx context.Context, ticker string, kind domain.ModelKind, days int) (*AnalysisResult, error) {
	ctx, span := s.tracer.Start(ctx, "analysis-service.analyze")
	defer span.End()

	ticker = strings.ToUpper(strings.TrimSpace(ticker))
	if ticker == "" {
		return nil, fmt.Errorf("empty ticker")
	}
	if kind == "" {
		kind = domain.ModelGBTree
	}
	if !kind.IsValid() {
		return nil, fmt.Errorf("unknown model kind %q: %w", kind, domain.ErrBackendUnavailable)
	}

	series, err := s.market.DailyHistory(ctx, ticker, historyDays)
	if err != nil {
		return nil, fmt.Errorf("fetch history for %s: %w", ticker, err)
	}

	info, ratios := s.companyInfo(ctx, ticker)
	stock, err := s.upsertStock(ctx, ticker, info)
	if err != nil {
		return nil, err
	}

	if err := s.prices.UpsertPrices(ctx, stock.ID, series); err != nil {
		return nil, fmt.Errorf("persist prices for %s: %w", ticker, err)
	}

	result := &AnalysisResult{
		Stock:        *stock,
		CurrentPrice: series.LastClose(),
		Fundamentals: ratios,
	}

	snaps, err := indicator.Compute(series)
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		// technical section degrades to neutral
	case err != nil:
		return nil, fmt.Errorf("compute indicators for %s: %w", ticker, err)
	default:
		if err := s.indicators.UpsertSnapshots(ctx, stock.ID, snaps); err != nil {
			return nil, fmt.Errorf("persist indicators for %s: %w", ticker, err)
		}
		latest := snaps[len(snaps)-1]
		result.Indicators = &latest
		technical := analysis.AnalyzeSignals(latest)
		result.Technical = &technical
	}

	forecastResult, err := s.forecaster.Run(ctx, series, kind, days)
	if err != nil {
		return nil, fmt.Errorf("forecast %s: %w", ticker, err)
	}
	result.Forecast = forecastResult
	if err := s.preds.InsertForecast(ctx, stock.ID, *forecastResult); err != nil {
		return nil, fmt.Errorf("persist forecast for %s: %w", ticker, err)
	}

	rec := analysis.Recommend(analysis.RecommendationInput{
		StockID:           stock.ID,
		CurrentPrice:      result.CurrentPrice,
		PredictedPrice:    forecastResult.LastPrice(),
		ModelConfidence:   forecastResult.ConfidenceScore,
		TechnicalAnalysis: result.Technical,
		Ratios:            ratios,
	})
	stored, err := s.recs.Insert(ctx, rec)
	if err != nil {
		return nil, fmt.Errorf("persist recommendation for %s: %w", ticker, err)
	}
	result.Recommendation = stored

	// supplementary annotations are best effort
	result.Direction = s.directionOutlook(series)
	result.AnomalyScore = s.anomalyScore(series)

	return result, nil
}

// GetStock resolves a ticker to its stored record. Unknown tickers are an
// error here even though the store reports them as a nil row.
func (s *AnalysisService) GetStock(ctx context.Context, ticker string) (*domain.Stock, error) {
	_, span := s.tracer.Start(ctx, "analysis-service.get-stock")
	defer span.End()

	stock, err := s.stocks.GetByTicker(ctx, strings.ToUpper(strings.TrimSpace(ticker)))
	if err != nil {
		return nil, err
	}
	if stock == nil {
		return nil, fmt.Errorf("stock %s %w", strings.ToUpper(strings.TrimSpace(ticker)), domain.ErrNotFound)
	}
	return stock, nil
}

func (s *AnalysisService) ListPredictions(ctx context.Context, ticker string, limit int) ([]domain.StoredPrediction, error) {
	_, span := s.tracer.Start(ctx, "analysis-service.list-predictions")
	defer span.End()

	stock, err := s.GetStock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.preds.ListByStock(ctx, stock.ID, limit)
}

func (s *AnalysisService) ListRecommendations(ctx context.Context, ticker string, limit int) ([]domain.Recommendation, error) {
	_, span := s.tracer.Start(ctx, "analysis-service.list-recommendations")
	defer span.End()

	stock, err := s.GetStock(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return s.recs.ListByStock(ctx, stock.ID, limit)
}

// companyInfo fetches the profile and ratios, consulting the Redis cache
// first. Provider failures degrade to a nil ratios section instead of
// failing the run.
func (s *AnalysisService) companyInfo(ctx context.Context, ticker string) (*provider.CompanyInfo, *domain.FinancialRatios) {
	if s.redis != nil {
		var cached provider.CompanyInfo
		hit, err := cache.GetJSON(ctx, s.redis, cache.FundamentalsKey(ticker), &cached)
		if err != nil {
			log.Printf("fundamentals cache read for %s: %v", ticker, err)
		}
		if hit {
			return &cached, &cached.Ratios
		}
	}

	info, err := s.market.QuoteSummary(ctx, ticker)
	if err != nil {
		log.Printf("quote summary for %s unavailable: %v", ticker, err)
		return nil, nil
	}
	if s.redis != nil {
		if err := cache.SetJSON(ctx, s.redis, cache.FundamentalsKey(ticker), info, fundamentalsTTL); err != nil {
			log.Printf("fundamentals cache write for %s: %v", ticker, err)
		}
	}
	return info, &info.Ratios
}

func (s *AnalysisService) upsertStock(ctx context.Context, ticker string, info *provider.CompanyInfo) (*domain.Stock, error) {
	stock := domain.Stock{Ticker: ticker}
	if info != nil {
		stock.Name = info.Name
		stock.Exchange = info.Exchange
		stock.Sector = info.Sector
		stock.Currency = info.Currency
	} else if existing, err := s.stocks.GetByTicker(ctx, ticker); err == nil && existing != nil {
		// keep the previously stored profile when the provider has none
		stock = *existing
	}
	stored, err := s.stocks.Upsert(ctx, stock)
	if err != nil {
		return nil, fmt.Errorf("upsert stock %s: %w", ticker, err)
	}
	return stored, nil
}

func (s *AnalysisService) directionOutlook(series domain.PriceSeries) *domain.DirectionOutlook {
	ds, err := window.Build(series, s.lookback)
	if err != nil {
		return nil
	}
	model, err := direction.Train(ds.Inputs, ds.Labels)
	if err != nil {
		log.Printf("direction model skipped: %v", err)
		return nil
	}
	outlook, err := model.Outlook(ds.LastWindow)
	if err != nil {
		log.Printf("direction outlook skipped: %v", err)
		return nil
	}
	return &outlook
}

func (s *AnalysisService) anomalyScore(series domain.PriceSeries) *float64 {
	model, err := anomaly.Train(series, anomaly.DefaultTrainOptions())
	if err != nil {
		return nil
	}
	score, err := model.LatestScore(series)
	if err != nil {
		log.Printf("anomaly score skipped: %v", err)
		return nil
	}
	return &score
}

// Anomalous reports whether the annotation crossed the alert threshold.
func (r *AnalysisResult) Anomalous() bool {
	return r.AnomalyScore != nil && *r.AnomalyScore > anomalyAlert
}
