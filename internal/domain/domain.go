package domain

import (
	"errors"
	"sort"
	"time"
)

// Pipeline failure taxonomy. All of these are recoverable at the call
// boundary: callers may retry with a longer history window or a different
// model kind instead of failing the whole analysis.
var (
	ErrInsufficientHistory = errors.New("not enough price history for the requested lookback")
	ErrInsufficientData    = errors.New("not enough windows to train a model")
	ErrBackendUnavailable  = errors.New("requested model backend is not available")
	ErrTrainingFailure     = errors.New("model training failed")
	ErrForecastTimeout     = errors.New("forecast exceeded its time budget")
	ErrNotFound            = errors.New("not found")
)

type Stock struct {
	ID       int64  `json:"id"`
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Exchange string `json:"exchange"`
	Sector   string `json:"sector"`
	Currency string `json:"currency"`
}

// PricePoint is one daily bar. Close must be > 0 for a valid series.
type PricePoint struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// PriceSeries is a chronologically ascending sequence of daily bars.
type PriceSeries []PricePoint

// SortByDate puts the series in ascending date order. The sort is stable so
// duplicate dates keep their relative order.
func (s PriceSeries) SortByDate() {
	sort.SliceStable(s, func(i, j int) bool { return s[i].Date.Before(s[j].Date) })
}

func (s PriceSeries) Closes() []float64 {
	out := make([]float64, len(s))
	for i := range s {
		out[i] = s[i].Close
	}
	return out
}

func (s PriceSeries) LastDate() time.Time {
	if len(s) == 0 {
		return time.Time{}
	}
	return s[len(s)-1].Date
}

func (s PriceSeries) LastClose() float64 {
	if len(s) == 0 {
		return 0
	}
	return s[len(s)-1].Close
}

// IndicatorSnapshot holds the indicator values for one date. A nil field
// means there was not enough history to compute that indicator; zero is a
// real value, not absence.
type IndicatorSnapshot struct {
	Date          time.Time `json:"date"`
	Close         float64   `json:"close"`
	RSI14         *float64  `json:"rsi_14,omitempty"`
	MACD          *float64  `json:"macd,omitempty"`
	MACDSignal    *float64  `json:"macd_signal,omitempty"`
	MACDHistogram *float64  `json:"macd_histogram,omitempty"`
	SMA20         *float64  `json:"sma_20,omitempty"`
	SMA50         *float64  `json:"sma_50,omitempty"`
	SMA200        *float64  `json:"sma_200,omitempty"`
	EMA12         *float64  `json:"ema_12,omitempty"`
	EMA26         *float64  `json:"ema_26,omitempty"`
}

// FinancialRatios carries the fundamentals used for scoring. Any subset may
// be absent.
type FinancialRatios struct {
	TrailingPE     *float64 `json:"trailing_pe,omitempty"`
	PriceToBook    *float64 `json:"price_to_book,omitempty"`
	ReturnOnEquity *float64 `json:"return_on_equity,omitempty"`
	DebtToEquity   *float64 `json:"debt_to_equity,omitempty"`
	RevenueGrowth  *float64 `json:"revenue_growth,omitempty"`
	MarketCap      *float64 `json:"market_cap,omitempty"`
}

type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentNeutral Sentiment = "neutral"
	SentimentBearish Sentiment = "bearish"
)

type SignalAnalysis struct {
	Score     float64   `json:"score"`
	Signals   []string  `json:"signals"`
	Sentiment Sentiment `json:"sentiment"`
}

type ModelKind string

const (
	ModelGBTree    ModelKind = "gbtree"
	ModelRecurrent ModelKind = "rnn"
)

func (k ModelKind) IsValid() bool {
	return k == ModelGBTree || k == ModelRecurrent
}

type PricePrediction struct {
	Date  time.Time `json:"date"`
	Price float64   `json:"price"`
}

// ForecastResult is the output of one forecasting run. ConfidenceScore is a
// rough inverse-error heuristic clamped to [0.5, 0.95], not a calibrated
// probability.
type ForecastResult struct {
	Predictions     []PricePrediction `json:"predictions"`
	ConfidenceScore float64           `json:"confidence_score"`
	MAE             float64           `json:"mae"`
	RMSE            float64           `json:"rmse"`
	ModelKind       ModelKind         `json:"model_kind"`
}

// LastPrice returns the final forecasted price, the one the recommendation
// decision table keys on.
func (f ForecastResult) LastPrice() float64 {
	if len(f.Predictions) == 0 {
		return 0
	}
	return f.Predictions[len(f.Predictions)-1].Price
}

type Action string

const (
	ActionBuy  Action = "buy"
	ActionHold Action = "hold"
	ActionSell Action = "sell"
)

type RiskLevel string

const (
	RiskLow    RiskLevel = "low"
	RiskMedium RiskLevel = "medium"
	RiskHigh   RiskLevel = "high"
)

type TimeHorizon string

const (
	HorizonShort  TimeHorizon = "short"
	HorizonMedium TimeHorizon = "medium"
	HorizonLong   TimeHorizon = "long"
)

// Recommendation is created once per analysis run and persisted as a
// historical record; it is never updated in place.
type Recommendation struct {
	ID               int64       `json:"id"`
	StockID          int64       `json:"stock_id"`
	Action           Action      `json:"action"`
	ConfidenceScore  float64     `json:"confidence_score"`
	TargetPrice      float64     `json:"target_price"`
	CurrentPrice     float64     `json:"current_price"`
	TechnicalScore   float64     `json:"technical_score"`
	FundamentalScore float64     `json:"fundamental_score"`
	Reasoning        string      `json:"reasoning"`
	RiskLevel        RiskLevel   `json:"risk_level"`
	TimeHorizon      TimeHorizon `json:"time_horizon"`
	CreatedAt        time.Time   `json:"created_at"`
}

// StoredPrediction is one persisted forecast day together with the run
// metadata shared by its batch.
type StoredPrediction struct {
	ID              int64     `json:"id"`
	StockID         int64     `json:"stock_id"`
	ModelKind       ModelKind `json:"model_kind"`
	PredictionDate  time.Time `json:"prediction_date"`
	PredictedPrice  float64   `json:"predicted_price"`
	ConfidenceScore float64   `json:"confidence_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// DirectionOutlook is the supplementary next-day classifier output. It does
// not feed the recommendation decision table.
type DirectionOutlook struct {
	ProbUp    float64   `json:"prob_up"`
	Sentiment Sentiment `json:"sentiment"`
}
