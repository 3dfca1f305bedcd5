// Package provider fetches market data from the Yahoo Finance public API:
// daily OHLCV history from the chart endpoint and company profile plus
// fundamentals from quoteSummary.
package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"stock-insight/internal/domain"
)

const defaultBaseURL = "https://query1.finance.yahoo.com"

type YahooClient struct {
	httpClient *http.Client
	baseURL    string
}

func NewYahooClient() *YahooClient {
	return &YahooClient{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    defaultBaseURL,
	}
}

// NewYahooClientWithBase points the client at a different host, used by
// tests to hit an httptest server.
func NewYahooClientWithBase(baseURL string, client *http.Client) *YahooClient {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &YahooClient{httpClient: client, baseURL: baseURL}
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []any `json:"open"`
					High   []any `json:"high"`
					Low    []any `json:"low"`
					Close  []any `json:"close"`
					Volume []any `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// DailyHistory returns up to two years of daily bars in ascending date
// order. Null bars (market holidays) are dropped.
func (c *YahooClient) DailyHistory(ctx context.Context, ticker string, days int) (domain.PriceSeries, error) {
	rng := "2y"
	switch {
	case days <= 30:
		rng = "1mo"
	case days <= 90:
		rng = "3mo"
	case days <= 180:
		rng = "6mo"
	case days <= 365:
		rng = "1y"
	}

	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s", c.baseURL, url.PathEscape(ticker), rng)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("yahoo chart decode: %w", err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart api: %s", chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Timestamp) == 0 {
		return nil, fmt.Errorf("yahoo chart: no data for %s", ticker)
	}

	result := chart.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo chart: no quote block for %s", ticker)
	}
	quote := result.Indicators.Quote[0]

	series := make(domain.PriceSeries, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		o := toFloat(quote.Open[i])
		h := toFloat(quote.High[i])
		l := toFloat(quote.Low[i])
		cl := toFloat(quote.Close[i])
		if o == 0 && h == 0 && l == 0 && cl == 0 {
			continue
		}
		series = append(series, domain.PricePoint{
			Date:   time.Unix(ts, 0).UTC().Truncate(24 * time.Hour),
			Open:   o,
			High:   h,
			Low:    l,
			Close:  cl,
			Volume: toFloat(quote.Volume[i]),
		})
	}
	series.SortByDate()

	if days > 0 && len(series) > days {
		series = series[len(series)-days:]
	}
	return series, nil
}

type rawValue struct {
	Raw float64 `json:"raw"`
}

func (v *rawValue) ptr() *float64 {
	if v == nil {
		return nil
	}
	f := v.Raw
	return &f
}

type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			Price *struct {
				LongName     string    `json:"longName"`
				ShortName    string    `json:"shortName"`
				ExchangeName string    `json:"exchangeName"`
				Currency     string    `json:"currency"`
				MarketCap    *rawValue `json:"marketCap"`
			} `json:"price"`
			AssetProfile *struct {
				Sector string `json:"sector"`
			} `json:"assetProfile"`
			SummaryDetail *struct {
				TrailingPE *rawValue `json:"trailingPE"`
			} `json:"summaryDetail"`
			DefaultKeyStatistics *struct {
				PriceToBook *rawValue `json:"priceToBook"`
			} `json:"defaultKeyStatistics"`
			FinancialData *struct {
				ReturnOnEquity *rawValue `json:"returnOnEquity"`
				DebtToEquity   *rawValue `json:"debtToEquity"`
				RevenueGrowth  *rawValue `json:"revenueGrowth"`
			} `json:"financialData"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

// CompanyInfo is the quoteSummary payload split into profile fields and
// scoring ratios. Any ratio Yahoo omits stays nil.
type CompanyInfo struct {
	Name     string
	Exchange string
	Sector   string
	Currency string
	Ratios   domain.FinancialRatios
}

func (c *YahooClient) QuoteSummary(ctx context.Context, ticker string) (*CompanyInfo, error) {
	modules := "price,assetProfile,summaryDetail,defaultKeyStatistics,financialData"
	u := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=%s", c.baseURL, url.PathEscape(ticker), modules)
	body, err := c.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var resp quoteSummaryResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("yahoo summary decode: %w", err)
	}
	if resp.QuoteSummary.Error != nil {
		return nil, fmt.Errorf("yahoo summary api: %s", resp.QuoteSummary.Error.Description)
	}
	if len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("yahoo summary: no data for %s", ticker)
	}

	result := resp.QuoteSummary.Result[0]
	info := &CompanyInfo{}
	if result.Price != nil {
		info.Name = result.Price.LongName
		if info.Name == "" {
			info.Name = result.Price.ShortName
		}
		info.Exchange = result.Price.ExchangeName
		info.Currency = result.Price.Currency
		info.Ratios.MarketCap = result.Price.MarketCap.ptr()
	}
	if result.AssetProfile != nil {
		info.Sector = result.AssetProfile.Sector
	}
	if result.SummaryDetail != nil {
		info.Ratios.TrailingPE = result.SummaryDetail.TrailingPE.ptr()
	}
	if result.DefaultKeyStatistics != nil {
		info.Ratios.PriceToBook = result.DefaultKeyStatistics.PriceToBook.ptr()
	}
	if result.FinancialData != nil {
		info.Ratios.ReturnOnEquity = result.FinancialData.ReturnOnEquity.ptr()
		info.Ratios.DebtToEquity = result.FinancialData.DebtToEquity.ptr()
		info.Ratios.RevenueGrowth = result.FinancialData.RevenueGrowth.ptr()
	}
	return info, nil
}

func (c *YahooClient) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("yahoo fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("yahoo read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("yahoo: status %d, body: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return 0
	}
}
