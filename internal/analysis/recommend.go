package analysis

import (
	"fmt"
	"strings"
	"time"

	"stock-insight/internal/domain"
)

const disclaimer = "\n⚠️ **Disclaimer:** This recommendation is generated by AI and should not be considered " +
	"financial advice. Always conduct your own research and consult with a licensed financial " +
	"advisor before making investment decisions."

// RecommendationInput bundles the scores feeding the decision table.
// TechnicalAnalysis and Ratios may be missing; both default to a neutral
// 0.5 contribution.
type RecommendationInput struct {
	StockID           int64
	CurrentPrice      float64
	PredictedPrice    float64
	ModelConfidence   float64
	TechnicalAnalysis *domain.SignalAnalysis
	Ratios            *domain.FinancialRatios
}

// Recommend runs the decision table over the combined score and expected
// price move. Rules are evaluated top to bottom and the first match wins.
func Recommend(in RecommendationInput) domain.Recommendation {
	changePct := (in.PredictedPrice - in.CurrentPrice) / in.CurrentPrice * 100

	technicalScore := 0.5
	var signals []string
	if in.TechnicalAnalysis != nil {
		technicalScore = in.TechnicalAnalysis.Score
		signals = in.TechnicalAnalysis.Signals
	}
	fundamentalScore := FundamentalScore(in.Ratios)

	combined := technicalScore*0.4 + fundamentalScore*0.3 + in.ModelConfidence*0.3

	var action domain.Action
	var risk domain.RiskLevel
	switch {
	case changePct > 10 && combined > 0.65:
		action, risk = domain.ActionBuy, domain.RiskMedium
	case changePct < -10 && combined < 0.35:
		action, risk = domain.ActionSell, domain.RiskHigh
	case changePct > 5 && combined > 0.60:
		action, risk = domain.ActionBuy, domain.RiskLow
	case changePct < -5 && combined < 0.40:
		action, risk = domain.ActionSell, domain.RiskMedium
	default:
		action, risk = domain.ActionHold, domain.RiskLow
	}

	var horizon domain.TimeHorizon
	switch abs := absFloat(changePct); {
	case abs > 15:
		horizon = domain.HorizonShort
	case abs > 8:
		horizon = domain.HorizonMedium
	default:
		horizon = domain.HorizonLong
	}

	targetPrice := in.PredictedPrice
	if action == domain.ActionSell {
		targetPrice = in.CurrentPrice * 0.95
	}

	return domain.Recommendation{
		StockID:          in.StockID,
		Action:           action,
		ConfidenceScore:  combined,
		TargetPrice:      targetPrice,
		CurrentPrice:     in.CurrentPrice,
		TechnicalScore:   technicalScore,
		FundamentalScore: fundamentalScore,
		Reasoning:        reasoning(action, changePct, technicalScore, fundamentalScore, signals, in.Ratios),
		RiskLevel:        risk,
		TimeHorizon:      horizon,
		CreatedAt:        time.Now().UTC(),
	}
}

func reasoning(
	action domain.Action,
	changePct, technicalScore, fundamentalScore float64,
	signals []string,
	ratios *domain.FinancialRatios,
) string {
	var b strings.Builder

	direction := "increase"
	if changePct <= 0 {
		direction = "decrease"
	}
	fmt.Fprintf(&b, "**Price Prediction:** Our ML model predicts a %.2f%% %s in the stock price over the next 30 days.",
		absFloat(changePct), direction)

	fmt.Fprintf(&b, "\n**Technical Analysis (Score: %.2f/1.00):** ", technicalScore)
	if len(signals) > 0 {
		top := signals
		if len(top) > 3 {
			top = top[:3]
		}
		b.WriteString("Key signals include: " + strings.Join(top, "; ") + ".")
	} else {
		b.WriteString("Technical indicators show neutral sentiment.")
	}

	fmt.Fprintf(&b, "\n**Fundamental Analysis (Score: %.2f/1.00):** ", fundamentalScore)
	if ratios != nil {
		var insights []string
		if ratios.TrailingPE != nil {
			insights = append(insights, fmt.Sprintf("P/E ratio of %.2f", *ratios.TrailingPE))
		}
		if ratios.ReturnOnEquity != nil {
			insights = append(insights, fmt.Sprintf("ROE of %.2f%%", *ratios.ReturnOnEquity*100))
		}
		if ratios.DebtToEquity != nil {
			insights = append(insights, fmt.Sprintf("Debt/Equity ratio of %.2f", *ratios.DebtToEquity))
		}
		if len(insights) > 0 {
			b.WriteString("Company fundamentals show " + strings.Join(insights, ", ") + ".")
		} else {
			b.WriteString("Limited fundamental data available.")
		}
	} else {
		b.WriteString("Fundamental data not available for analysis.")
	}

	switch action {
	case domain.ActionBuy:
		b.WriteString("\n**Recommendation:** BUY - Strong bullish signals with positive price momentum. " +
			"Both technical and fundamental indicators support upward movement.")
	case domain.ActionSell:
		b.WriteString("\n**Recommendation:** SELL - Bearish indicators suggest downward pressure. " +
			"Consider reducing exposure or taking profits.")
	default:
		b.WriteString("\n**Recommendation:** HOLD - Mixed signals suggest waiting for clearer direction. " +
			"Monitor for breakout patterns or fundamental changes.")
	}

	b.WriteString(disclaimer)
	return b.String()
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
