// Package indicator computes the standard daily indicator set over a price
// series: RSI, MACD with signal and histogram, simple and exponential
// moving averages.
package indicator

import (
	"math"

	"stock-insight/internal/domain"
)

const (
	rsiPeriod        = 14
	macdFastPeriod   = 12
	macdSlowPeriod   = 26
	macdSignalPeriod = 9
	smaShortPeriod   = 20
	smaMidPeriod     = 50
	smaLongPeriod    = 200
)

// MinHistory is the fewest daily bars needed before any snapshot is
// produced. It matches the longest moving average.
const MinHistory = 200

// Compute returns one snapshot per bar in date order. Indicators that have
// not warmed up yet are nil on early snapshots. Series shorter than
// MinHistory return domain.ErrInsufficientHistory.
func Compute(series domain.PriceSeries) ([]domain.IndicatorSnapshot, error) {
	if len(series) < MinHistory {
		return nil, domain.ErrInsufficientHistory
	}
	sorted := append(domain.PriceSeries(nil), series...)
	sorted.SortByDate()
	closes := sorted.Closes()

	rsi := rsiSeries(closes, rsiPeriod)
	macdLine, signalLine := macdSeries(closes, macdFastPeriod, macdSlowPeriod, macdSignalPeriod)
	sma20 := smaSeries(closes, smaShortPeriod)
	sma50 := smaSeries(closes, smaMidPeriod)
	sma200 := smaSeries(closes, smaLongPeriod)
	ema12 := emaSeries(closes, macdFastPeriod)
	ema26 := emaSeries(closes, macdSlowPeriod)

	out := make([]domain.IndicatorSnapshot, len(sorted))
	for i := range sorted {
		snap := domain.IndicatorSnapshot{
			Date:  sorted[i].Date,
			Close: sorted[i].Close,
		}
		snap.RSI14 = at(rsi, i)
		snap.SMA20 = at(sma20, i)
		snap.SMA50 = at(sma50, i)
		snap.SMA200 = at(sma200, i)
		snap.EMA12 = warmedAt(ema12, i, macdFastPeriod-1)
		snap.EMA26 = warmedAt(ema26, i, macdSlowPeriod-1)
		snap.MACD = warmedAt(macdLine, i, macdSlowPeriod-1)
		snap.MACDSignal = warmedAt(signalLine, i, macdSlowPeriod+macdSignalPeriod-2)
		if snap.MACD != nil && snap.MACDSignal != nil {
			hist := *snap.MACD - *snap.MACDSignal
			snap.MACDHistogram = &hist
		}
		out[i] = snap
	}
	return out, nil
}

// Latest is a convenience wrapper returning only the most recent snapshot.
func Latest(series domain.PriceSeries) (domain.IndicatorSnapshot, error) {
	snaps, err := Compute(series)
	if err != nil {
		return domain.IndicatorSnapshot{}, err
	}
	return snaps[len(snaps)-1], nil
}

func at(series []float64, i int) *float64 {
	if i >= len(series) || math.IsNaN(series[i]) {
		return nil
	}
	v := series[i]
	return &v
}

// warmedAt hides recursively-seeded values until the series has seen a full
// period of data.
func warmedAt(series []float64, i, warmup int) *float64 {
	if i < warmup {
		return nil
	}
	return at(series, i)
}

// rsiSeries uses Wilder smoothing: a simple average over the first period,
// then a running exponential update. Values before the first full period
// are NaN.
func rsiSeries(closes []float64, period int) []float64 {
	series := make([]float64, len(closes))
	for i := range series {
		series[i] = math.NaN()
	}
	if len(closes) <= period {
		return series
	}

	var gainSum, lossSum float64
	for i := 1; i <= period; i++ {
		delta := closes[i] - closes[i-1]
		if delta > 0 {
			gainSum += delta
		} else {
			lossSum -= delta
		}
	}
	avgGain := gainSum / float64(period)
	avgLoss := lossSum / float64(period)
	series[period] = rsiFromAvg(avgGain, avgLoss)

	for i := period + 1; i < len(closes); i++ {
		delta := closes[i] - closes[i-1]
		gain := math.Max(delta, 0)
		loss := math.Max(-delta, 0)
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		series[i] = rsiFromAvg(avgGain, avgLoss)
	}
	return series
}

func rsiFromAvg(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		return 100
	}
	rs := avgGain / avgLoss
	return 100 - (100 / (1 + rs))
}

func macdSeries(values []float64, fast, slow, signal int) ([]float64, []float64) {
	fastEMA := emaSeries(values, fast)
	slowEMA := emaSeries(values, slow)
	macdLine := make([]float64, len(values))
	for i := range values {
		macdLine[i] = fastEMA[i] - slowEMA[i]
	}
	signalLine := emaSeries(macdLine, signal)
	return macdLine, signalLine
}

func emaSeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / (float64(period) + 1.0)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

func smaSeries(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	for i := range out {
		out[i] = math.NaN()
	}
	if len(values) < period {
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}
		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}
	return out
}
