// Package analysis turns indicator snapshots, financial ratios and forecast
// output into scores and a final recommendation. Everything here is a pure
// function over its inputs.
package analysis

import (
	"fmt"

	"stock-insight/internal/domain"
)

// AnalyzeSignals scores the latest indicator snapshot. The score starts
// neutral at 0.5 and each present indicator group shifts it; missing
// indicators contribute nothing. A nil pointer means missing, a zero value
// is real data.
func AnalyzeSignals(snap domain.IndicatorSnapshot) domain.SignalAnalysis {
	score := 0.5
	var signals []string

	if snap.RSI14 != nil {
		rsi := *snap.RSI14
		switch {
		case rsi < 30:
			signals = append(signals, "RSI indicates oversold conditions (bullish)")
			score += 0.15
		case rsi > 70:
			signals = append(signals, "RSI indicates overbought conditions (bearish)")
			score -= 0.15
		default:
			signals = append(signals, fmt.Sprintf("RSI is neutral at %.2f", rsi))
		}
	}

	if snap.MACD != nil && snap.MACDSignal != nil {
		if *snap.MACD > *snap.MACDSignal {
			signals = append(signals, "MACD is above signal line (bullish)")
			score += 0.10
		} else {
			signals = append(signals, "MACD is below signal line (bearish)")
			score -= 0.10
		}
	}

	if snap.SMA50 != nil && snap.SMA200 != nil {
		close := snap.Close
		sma50, sma200 := *snap.SMA50, *snap.SMA200
		switch {
		case close > sma50 && sma50 > sma200:
			signals = append(signals, "Price above both 50-day and 200-day MA (strong bullish)")
			score += 0.15
		case close < sma50 && sma50 < sma200:
			signals = append(signals, "Price below both 50-day and 200-day MA (strong bearish)")
			score -= 0.15
		case close > sma50:
			signals = append(signals, "Price above 50-day MA (bullish)")
			score += 0.05
		default:
			signals = append(signals, "Price below 50-day MA (bearish)")
			score -= 0.05
		}
	}

	score = clamp01(score)
	return domain.SignalAnalysis{
		Score:     score,
		Signals:   signals,
		Sentiment: sentimentFor(score),
	}
}

func sentimentFor(score float64) domain.Sentiment {
	switch {
	case score > 0.6:
		return domain.SentimentBullish
	case score < 0.4:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
