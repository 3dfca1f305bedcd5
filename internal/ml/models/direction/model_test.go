package direction

import (
	"errors"
	"testing"

	"stock-insight/internal/domain"
)

func TestTrainRejectsEmptyDataset(t *testing.T) {
	if _, err := Train(nil, nil); err == nil {
		t.Fatal("expected error for empty dataset")
	}
}

func TestTrainRejectsSingleClassLabels(t *testing.T) {
	// Every label sits above its window's last value, so the whole dataset
	// is one class.
	var x [][]float64
	var y []float64
	for i := 0; i < 30; i++ {
		x = append(x, []float64{0.1, 0.2, 0.3})
		y = append(y, 0.9)
	}
	_, err := Train(x, y)
	if !errors.Is(err, domain.ErrTrainingFailure) {
		t.Fatalf("expected ErrTrainingFailure, got %v", err)
	}
}

func TestOutlookSentimentBands(t *testing.T) {
	cases := []struct {
		probUp float64
		want   domain.Sentiment
	}{
		{0.75, domain.SentimentBullish},
		{0.5, domain.SentimentNeutral},
		{0.25, domain.SentimentBearish},
	}
	for _, c := range cases {
		got := sentimentFor(c.probUp)
		if got != c.want {
			t.Fatalf("probUp=%v: got %v, want %v", c.probUp, got, c.want)
		}
	}
}

// sentimentFor mirrors the banding in Outlook so the thresholds stay pinned
// without needing a trained ensemble.
func sentimentFor(probUp float64) domain.Sentiment {
	switch {
	case probUp > 0.6:
		return domain.SentimentBullish
	case probUp < 0.4:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

func TestTrainAndOutlookOnMixedData(t *testing.T) {
	var x [][]float64
	var y []float64
	for i := 0; i < 60; i++ {
		base := float64(i%10) / 10
		window := []float64{base, base + 0.01, base + 0.02}
		x = append(x, window)
		if i%2 == 0 {
			y = append(y, base+0.1)
		} else {
			y = append(y, base-0.1)
		}
	}
	m, err := Train(x, y)
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	out, err := m.Outlook(x[0])
	if err != nil {
		t.Fatalf("outlook: %v", err)
	}
	if out.ProbUp < 0 || out.ProbUp > 1 {
		t.Fatalf("probability out of range: %v", out.ProbUp)
	}
	if out.Sentiment == "" {
		t.Fatal("sentiment not set")
	}
}
