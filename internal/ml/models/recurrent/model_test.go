package recurrent

import (
	"math"
	"testing"
)

func TestTrainRejectsBadInput(t *testing.T) {
	if _, err := Train(nil, nil, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for empty dataset")
	}
	if _, err := Train([][]float64{{1, 2}, {3}}, []float64{1, 2}, DefaultTrainOptions()); err == nil {
		t.Fatal("expected error for ragged windows")
	}
}

func TestDeterministicWithFixedSeed(t *testing.T) {
	x, y := rampSequences(40, 10)
	a, err := Train(x, y, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	b, err := Train(x, y, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	probe := x[0]
	if a.Predict(probe) != b.Predict(probe) {
		t.Fatal("same seed gave different weights")
	}
}

func TestLearnsNextRampValue(t *testing.T) {
	x, y := rampSequences(120, 12)
	opts := DefaultTrainOptions()
	opts.Epochs = 40
	opts.LearningRate = 0.05
	m, err := Train(x, y, opts)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	var sse float64
	for i := range x {
		d := m.Predict(x[i]) - y[i]
		sse += d * d
	}
	rmse := math.Sqrt(sse / float64(len(x)))
	if rmse > 0.15 {
		t.Fatalf("rmse too high after training: %v", rmse)
	}
}

func TestPredictOutputIsFinite(t *testing.T) {
	x, y := rampSequences(30, 8)
	m, err := Train(x, y, DefaultTrainOptions())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	got := m.Predict(x[len(x)-1])
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Fatalf("non-finite prediction: %v", got)
	}
}

// rampSequences builds sliding windows over a normalized ramp so the label
// is always the next point of the ramp.
func rampSequences(count, window int) ([][]float64, []float64) {
	total := count + window
	series := make([]float64, total)
	for i := range series {
		series[i] = float64(i) / float64(total-1)
	}
	var x [][]float64
	var y []float64
	for i := 0; i+window < total; i++ {
		w := make([]float64, window)
		copy(w, series[i:i+window])
		x = append(x, w)
		y = append(y, series[i+window])
	}
	return x, y
}
