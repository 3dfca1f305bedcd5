package window

import (
	"stock-insight/internal/domain"

	"gonum.org/v1/gonum/floats"
)

// DefaultLookback is the number of past closes that make up one model input.
const DefaultLookback = 60

// Scaler is a min-max scaler fitted on one closing-price series. It is
// request-scoped: fit once per analysis and never reused across series.
type Scaler struct {
	Min float64
	Max float64
}

// FitScaler records the min and max of the series' closes.
func FitScaler(closes []float64) Scaler {
	if len(closes) == 0 {
		return Scaler{}
	}
	return Scaler{Min: floats.Min(closes), Max: floats.Max(closes)}
}

// Degenerate reports a zero-variance series. Such a series scales to all
// zeros rather than failing the run.
func (s Scaler) Degenerate() bool {
	return s.Max == s.Min
}

func (s Scaler) Transform(x float64) float64 {
	if s.Degenerate() {
		return 0
	}
	return (x - s.Min) / (s.Max - s.Min)
}

func (s Scaler) Inverse(scaled float64) float64 {
	return scaled*(s.Max-s.Min) + s.Min
}

func (s Scaler) TransformAll(xs []float64) []float64 {
	out := make([]float64, len(xs))
	for i, x := range xs {
		out[i] = s.Transform(x)
	}
	return out
}

func (s Scaler) InverseAll(scaled []float64) []float64 {
	out := make([]float64, len(scaled))
	for i, v := range scaled {
		out[i] = s.Inverse(v)
	}
	return out
}

// Dataset holds the sliding windows built from one series. Inputs[i] covers
// normalized closes [i, i+lookback) and Labels[i] is the normalized close at
// i+lookback. LastWindow is Inputs' final row, the seed for the iterative
// rollout.
type Dataset struct {
	Inputs     [][]float64
	Labels     []float64
	Scaler     Scaler
	Lookback   int
	LastWindow []float64
}

// Build sorts the series, fits the scaler and slides a step-1 window across
// the normalized closes. It returns domain.ErrInsufficientHistory when the
// series has no room for a single window (n <= lookback).
func Build(series domain.PriceSeries, lookback int) (*Dataset, error) {
	if lookback <= 0 {
		lookback = DefaultLookback
	}
	series.SortByDate()

	closes := series.Closes()
	if len(closes) <= lookback {
		return nil, domain.ErrInsufficientHistory
	}

	scaler := FitScaler(closes)
	scaled := scaler.TransformAll(closes)

	count := len(scaled) - lookback
	inputs := make([][]float64, 0, count)
	labels := make([]float64, 0, count)
	for i := lookback; i < len(scaled); i++ {
		win := make([]float64, lookback)
		copy(win, scaled[i-lookback:i])
		inputs = append(inputs, win)
		labels = append(labels, scaled[i])
	}

	last := make([]float64, lookback)
	copy(last, inputs[len(inputs)-1])

	return &Dataset{
		Inputs:     inputs,
		Labels:     labels,
		Scaler:     scaler,
		Lookback:   lookback,
		LastWindow: last,
	}, nil
}
