package window

import (
	"errors"
	"math"
	"testing"
	"time"

	"stock-insight/internal/domain"
)

func TestFitScalerAndRoundTrip(t *testing.T) {
	closes := []float64{10, 20, 15, 30, 25}
	s := FitScaler(closes)
	if s.Min != 10 || s.Max != 30 {
		t.Fatalf("scaler bounds: got [%v, %v], want [10, 30]", s.Min, s.Max)
	}
	for _, v := range closes {
		got := s.Inverse(s.Transform(v))
		if math.Abs(got-v) > 1e-9 {
			t.Fatalf("round trip %v: got %v", v, got)
		}
	}
	if s.Transform(10) != 0 || s.Transform(30) != 1 {
		t.Fatal("min must map to 0 and max to 1")
	}
}

func TestDegenerateSeriesScalesToZero(t *testing.T) {
	s := FitScaler([]float64{7, 7, 7})
	if !s.Degenerate() {
		t.Fatal("flat series should be degenerate")
	}
	for _, v := range []float64{7, 0, 100} {
		if s.Transform(v) != 0 {
			t.Fatalf("degenerate transform of %v: got %v, want 0", v, s.Transform(v))
		}
	}
	// inverse of 0 recovers the constant
	if s.Inverse(0) != 7 {
		t.Fatalf("inverse(0): got %v, want 7", s.Inverse(0))
	}
}

func TestBuildRejectsShortSeries(t *testing.T) {
	series := rampSeries(60)
	_, err := Build(series, 60)
	if !errors.Is(err, domain.ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory for n == lookback, got %v", err)
	}
}

func TestBuildWindowCountAndLabels(t *testing.T) {
	const n, lookback = 100, 60
	series := rampSeries(n)
	ds, err := Build(series, lookback)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(ds.Inputs) != n-lookback {
		t.Fatalf("window count: got %d, want %d", len(ds.Inputs), n-lookback)
	}
	if len(ds.Labels) != len(ds.Inputs) {
		t.Fatalf("labels: got %d, want %d", len(ds.Labels), len(ds.Inputs))
	}
	scaled := ds.Scaler.TransformAll(series.Closes())
	for i := range ds.Inputs {
		if len(ds.Inputs[i]) != lookback {
			t.Fatalf("window %d length: got %d", i, len(ds.Inputs[i]))
		}
		if ds.Inputs[i][0] != scaled[i] {
			t.Fatalf("window %d start: got %v, want %v", i, ds.Inputs[i][0], scaled[i])
		}
		if ds.Labels[i] != scaled[i+lookback] {
			t.Fatalf("label %d: got %v, want %v", i, ds.Labels[i], scaled[i+lookback])
		}
	}
}

func TestBuildLastWindowExcludesFinalClose(t *testing.T) {
	const n, lookback = 70, 60
	series := rampSeries(n)
	ds, err := Build(series, lookback)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	scaled := ds.Scaler.TransformAll(series.Closes())
	// LastWindow starts at n-lookback-1 and stops one short of the final
	// close, matching the final training input rather than the series tail.
	want := scaled[n-lookback-1 : n-1]
	for i := range ds.LastWindow {
		if ds.LastWindow[i] != want[i] {
			t.Fatalf("last window[%d]: got %v, want %v", i, ds.LastWindow[i], want[i])
		}
	}
}

func TestBuildSortsUnorderedSeries(t *testing.T) {
	series := rampSeries(80)
	shuffled := append(domain.PriceSeries(nil), series...)
	shuffled[0], shuffled[40] = shuffled[40], shuffled[0]
	shuffled[10], shuffled[70] = shuffled[70], shuffled[10]

	a, err := Build(series, 60)
	if err != nil {
		t.Fatalf("build sorted: %v", err)
	}
	b, err := Build(shuffled, 60)
	if err != nil {
		t.Fatalf("build shuffled: %v", err)
	}
	if len(a.Inputs) != len(b.Inputs) {
		t.Fatal("window counts differ")
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("label %d differs after sorting", i)
		}
	}
}

func rampSeries(n int) domain.PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	out := make(domain.PriceSeries, n)
	for i := range out {
		out[i] = domain.PricePoint{
			Date:  start.AddDate(0, 0, i),
			Close: 100 + float64(i),
		}
	}
	return out
}
