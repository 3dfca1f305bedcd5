// Package forecast trains a per-request model on one stock's closing prices
// and rolls it forward to produce a multi-day price path with a holdout
// error estimate.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"stock-insight/internal/domain"
	"stock-insight/internal/ml/models/gbtree"
	"stock-insight/internal/ml/models/recurrent"
	"stock-insight/internal/ml/window"
)

// MinWindows is the fewest sliding windows a series must yield before a
// model is worth training.
const MinWindows = 100

const (
	trainFraction = 0.8
	confidenceMin = 0.5
	confidenceMax = 0.95
)

// Backend is one trainable forecasting model. Fit and Predict operate in
// normalized space; the service owns scaling in both directions.
type Backend interface {
	Fit(x [][]float64, y []float64) error
	Predict(win []float64) (float64, error)
}

type Config struct {
	Lookback        int
	HorizonDays     int
	Timeout         time.Duration
	EnableRecurrent bool
}

func DefaultConfig() Config {
	return Config{
		Lookback:        window.DefaultLookback,
		HorizonDays:     30,
		Timeout:         120 * time.Second,
		EnableRecurrent: false,
	}
}

type Service struct {
	cfg    Config
	tracer trace.Tracer
}

func NewService(cfg Config, tracer trace.Tracer) *Service {
	if cfg.Lookback <= 0 {
		cfg.Lookback = window.DefaultLookback
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = DefaultConfig().HorizonDays
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &Service{cfg: cfg, tracer: tracer}
}

// Run trains the requested backend on the series and forecasts `days`
// consecutive calendar days past the last historical date. When days <= 0
// the configured horizon applies. The whole run shares one time budget;
// blowing it returns domain.ErrForecastTimeout.
func (s *Service) Run(ctx context.Context, series domain.PriceSeries, kind domain.ModelKind, days int) (*domain.ForecastResult, error) {
	ctx, span := s.tracer.Start(ctx, "forecast.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("model_kind", string(kind)),
		attribute.Int("series_len", len(series)),
	)

	if days <= 0 {
		days = s.cfg.HorizonDays
	}

	backend, err := s.newBackend(kind)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	type outcome struct {
		result *domain.ForecastResult
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		r, err := s.run(series, backend, kind, days)
		done <- outcome{result: r, err: err}
	}()

	select {
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("model %s after %s: %w", kind, s.cfg.Timeout, domain.ErrForecastTimeout)
		}
		return nil, ctx.Err()
	case out := <-done:
		if out.err != nil {
			return nil, out.err
		}
		span.SetAttributes(attribute.Float64("confidence", out.result.ConfidenceScore))
		return out.result, nil
	}
}

func (s *Service) run(series domain.PriceSeries, backend Backend, kind domain.ModelKind, days int) (*domain.ForecastResult, error) {
	ds, err := window.Build(series, s.cfg.Lookback)
	if err != nil {
		return nil, err
	}
	if len(ds.Inputs) < MinWindows {
		return nil, fmt.Errorf("%d windows, need %d: %w", len(ds.Inputs), MinWindows, domain.ErrInsufficientData)
	}

	// chronological split, never shuffled
	cut := int(float64(len(ds.Inputs)) * trainFraction)
	trainX, trainY := ds.Inputs[:cut], ds.Labels[:cut]
	testX, testY := ds.Inputs[cut:], ds.Labels[cut:]

	if err := backend.Fit(trainX, trainY); err != nil {
		return nil, fmt.Errorf("fit %s: %w", kind, err)
	}

	mae, rmse, err := holdoutError(backend, testX, testY)
	if err != nil {
		return nil, err
	}
	confidence := clamp(1-rmse*2, confidenceMin, confidenceMax)

	predictions, err := rollout(backend, ds, series.LastDate(), days)
	if err != nil {
		return nil, err
	}

	return &domain.ForecastResult{
		Predictions:     predictions,
		ConfidenceScore: confidence,
		MAE:             mae,
		RMSE:            rmse,
		ModelKind:       kind,
	}, nil
}

// rollout feeds each prediction back into the input window, evicting the
// oldest value, then maps the normalized path back to prices.
func rollout(backend Backend, ds *window.Dataset, lastDate time.Time, days int) ([]domain.PricePrediction, error) {
	buffer := append([]float64(nil), ds.LastWindow...)
	out := make([]domain.PricePrediction, 0, days)
	for i := 1; i <= days; i++ {
		next, err := backend.Predict(buffer)
		if err != nil {
			return nil, fmt.Errorf("rollout day %d: %w", i, err)
		}
		out = append(out, domain.PricePrediction{
			Date:  lastDate.AddDate(0, 0, i),
			Price: ds.Scaler.Inverse(next),
		})
		copy(buffer, buffer[1:])
		buffer[len(buffer)-1] = next
	}
	return out, nil
}

// holdoutError computes MAE and RMSE on the test split in normalized space.
func holdoutError(backend Backend, testX [][]float64, testY []float64) (mae, rmse float64, err error) {
	if len(testX) == 0 {
		return 0, 0, domain.ErrInsufficientData
	}
	var absSum, sqSum float64
	for i := range testX {
		pred, err := backend.Predict(testX[i])
		if err != nil {
			return 0, 0, fmt.Errorf("holdout sample %d: %w", i, err)
		}
		d := pred - testY[i]
		absSum += math.Abs(d)
		sqSum += d * d
	}
	n := float64(len(testX))
	return absSum / n, math.Sqrt(sqSum / n), nil
}

func (s *Service) newBackend(kind domain.ModelKind) (Backend, error) {
	switch kind {
	case domain.ModelGBTree:
		return &gbtreeBackend{opts: gbtree.DefaultTrainOptions()}, nil
	case domain.ModelRecurrent:
		if !s.cfg.EnableRecurrent {
			return nil, fmt.Errorf("model %s is disabled: %w", kind, domain.ErrBackendUnavailable)
		}
		return &recurrentBackend{opts: recurrent.DefaultTrainOptions()}, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q: %w", kind, domain.ErrBackendUnavailable)
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

type gbtreeBackend struct {
	opts  gbtree.TrainOptions
	model *gbtree.Model
}

func (b *gbtreeBackend) Fit(x [][]float64, y []float64) error {
	m, err := gbtree.Train(x, y, b.opts)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrTrainingFailure)
	}
	b.model = m
	return nil
}

func (b *gbtreeBackend) Predict(win []float64) (float64, error) {
	if b.model == nil {
		return 0, domain.ErrTrainingFailure
	}
	return b.model.Predict(win), nil
}

type recurrentBackend struct {
	opts  recurrent.TrainOptions
	model *recurrent.Model
}

func (b *recurrentBackend) Fit(x [][]float64, y []float64) error {
	m, err := recurrent.Train(x, y, b.opts)
	if err != nil {
		return fmt.Errorf("%v: %w", err, domain.ErrTrainingFailure)
	}
	b.model = m
	return nil
}

func (b *recurrentBackend) Predict(win []float64) (float64, error) {
	if b.model == nil {
		return 0, domain.ErrTrainingFailure
	}
	return b.model.Predict(win), nil
}
