package analysis

import "stock-insight/internal/domain"

// FundamentalScore rates the company's ratios on the same 0..1 scale as the
// technical score. A nil ratios struct or an all-nil one stays neutral at
// 0.5.
func FundamentalScore(ratios *domain.FinancialRatios) float64 {
	if ratios == nil {
		return 0.5
	}
	score := 0.5

	if ratios.TrailingPE != nil {
		switch pe := *ratios.TrailingPE; {
		case pe < 15:
			score += 0.10
		case pe > 30:
			score -= 0.10
		}
	}
	if ratios.PriceToBook != nil {
		switch pb := *ratios.PriceToBook; {
		case pb < 1.5:
			score += 0.10
		case pb > 3:
			score -= 0.05
		}
	}
	if ratios.ReturnOnEquity != nil {
		switch roe := *ratios.ReturnOnEquity; {
		case roe > 0.15:
			score += 0.15
		case roe < 0.05:
			score -= 0.10
		}
	}
	if ratios.DebtToEquity != nil {
		switch de := *ratios.DebtToEquity; {
		case de < 0.5:
			score += 0.10
		case de > 2:
			score -= 0.15
		}
	}
	if ratios.RevenueGrowth != nil {
		switch growth := *ratios.RevenueGrowth; {
		case growth > 0.15:
			score += 0.10
		case growth < 0:
			score -= 0.10
		}
	}

	return clamp01(score)
}
