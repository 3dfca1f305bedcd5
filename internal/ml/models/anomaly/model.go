// Package anomaly scores recent price action with an isolation forest over
// sliding windows of daily returns. A high score marks the latest window as
// unusual relative to the stock's own history and is surfaced as an
// annotation on the analysis result.
package anomaly

import (
	"errors"
	"math"

	goiforest "github.com/narumiruna/go-iforest/pkg/iforest"

	"stock-insight/internal/domain"
)

type TrainOptions struct {
	WindowSize int
	NumTrees   int
	SampleSize int
}

func DefaultTrainOptions() TrainOptions {
	return TrainOptions{
		WindowSize: 10,
		NumTrees:   100,
		SampleSize: 256,
	}
}

type Model struct {
	windowSize int
	means      []float64
	stds       []float64
	forest     *goiforest.IsolationForest
}

// Train derives daily returns from the series closes, slices them into
// overlapping windows, and fits the forest on z-scored windows.
func Train(series domain.PriceSeries, opts TrainOptions) (*Model, error) {
	if opts.WindowSize <= 0 {
		opts.WindowSize = DefaultTrainOptions().WindowSize
	}
	if opts.NumTrees <= 0 {
		opts.NumTrees = DefaultTrainOptions().NumTrees
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = DefaultTrainOptions().SampleSize
	}

	returns := dailyReturns(series.Closes())
	windows := returnWindows(returns, opts.WindowSize)
	if len(windows) < 2*opts.WindowSize {
		return nil, domain.ErrInsufficientHistory
	}

	means, stds := fitNormalizer(windows)
	normalized := make([][]float64, len(windows))
	for i := range windows {
		normalized[i] = normalize(windows[i], means, stds)
	}

	forest := goiforest.NewWithOptions(goiforest.Options{
		DetectionType: goiforest.DetectionTypeThreshold,
		Threshold:     0.6,
		NumTrees:      opts.NumTrees,
		SampleSize:    opts.SampleSize,
	})
	forest.Fit(normalized)

	return &Model{
		windowSize: opts.WindowSize,
		means:      means,
		stds:       stds,
		forest:     forest,
	}, nil
}

// LatestScore scores the most recent return window of the series. Scores
// are clamped to [0, 1]; callers treat anything above 0.6 as anomalous.
func (m *Model) LatestScore(series domain.PriceSeries) (float64, error) {
	if m == nil || m.forest == nil {
		return 0, errors.New("nil anomaly model")
	}
	returns := dailyReturns(series.Closes())
	if len(returns) < m.windowSize {
		return 0, domain.ErrInsufficientHistory
	}
	window := returns[len(returns)-m.windowSize:]
	scores := m.forest.Score([][]float64{normalize(window, m.means, m.stds)})
	if len(scores) == 0 {
		return 0, errors.New("forest returned no score")
	}
	score := scores[0]
	if math.IsNaN(score) || math.IsInf(score, 0) || score < 0 {
		return 0, nil
	}
	if score > 1 {
		return 1, nil
	}
	return score, nil
}

func dailyReturns(closes []float64) []float64 {
	if len(closes) < 2 {
		return nil
	}
	out := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		prev := closes[i-1]
		if prev == 0 {
			out = append(out, 0)
			continue
		}
		out = append(out, (closes[i]-prev)/prev)
	}
	return out
}

func returnWindows(returns []float64, size int) [][]float64 {
	if len(returns) < size {
		return nil
	}
	out := make([][]float64, 0, len(returns)-size+1)
	for i := 0; i+size <= len(returns); i++ {
		w := make([]float64, size)
		copy(w, returns[i:i+size])
		out = append(out, w)
	}
	return out
}

func fitNormalizer(samples [][]float64) ([]float64, []float64) {
	featureCount := len(samples[0])
	means := make([]float64, featureCount)
	stds := make([]float64, featureCount)
	for j := 0; j < featureCount; j++ {
		for i := range samples {
			means[j] += samples[i][j]
		}
		means[j] /= float64(len(samples))
		for i := range samples {
			d := samples[i][j] - means[j]
			stds[j] += d * d
		}
		stds[j] = math.Sqrt(stds[j] / float64(len(samples)))
		if stds[j] == 0 {
			stds[j] = 1
		}
	}
	return means, stds
}

func normalize(in, means, stds []float64) []float64 {
	out := make([]float64, len(in))
	for i := range in {
		out[i] = (in[i] - means[i]) / stds[i]
	}
	return out
}
