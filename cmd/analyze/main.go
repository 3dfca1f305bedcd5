package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"stock-insight/internal/analysis"
	"stock-insight/internal/domain"
	"stock-insight/internal/indicator"
	"stock-insight/internal/ml/forecast"
	"stock-insight/internal/provider"

	"github.com/joho/godotenv"
	"go.opentelemetry.io/otel/trace"
)

const historyDays = 730

var loadEnvFunc = godotenv.Load

type options struct {
	ticker string
	model  domain.ModelKind
	days   int
}

func main() {
	loadEnvFunc()

	opts, err := parseOptions(os.Args[1:], os.Getenv)
	if err != nil {
		log.Fatalf("parse options: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	tracer := trace.NewNoopTracerProvider().Tracer("analyze")
	market := provider.NewYahooClient()
	forecaster := forecast.NewService(forecast.Config{
		HorizonDays:     opts.days,
		EnableRecurrent: true,
	}, tracer)

	log.Printf("fetching %d days of history for %s", historyDays, opts.ticker)
	series, err := market.DailyHistory(ctx, opts.ticker, historyDays)
	if err != nil {
		log.Fatalf("fetch history for %s: %v", opts.ticker, err)
	}
	current := series.LastClose()

	var technical *domain.SignalAnalysis
	snap, err := indicator.Latest(series)
	switch {
	case errors.Is(err, domain.ErrInsufficientHistory):
		log.Printf("history too short for indicators, technical score stays neutral")
	case err != nil:
		log.Fatalf("compute indicators for %s: %v", opts.ticker, err)
	default:
		t := analysis.AnalyzeSignals(snap)
		technical = &t
	}

	var ratios *domain.FinancialRatios
	if info, err := market.QuoteSummary(ctx, opts.ticker); err != nil {
		log.Printf("fundamentals unavailable for %s: %v", opts.ticker, err)
	} else {
		ratios = &info.Ratios
	}

	result, err := forecaster.Run(ctx, series, opts.model, opts.days)
	if err != nil {
		log.Fatalf("forecast %s: %v", opts.ticker, err)
	}

	rec := analysis.Recommend(analysis.RecommendationInput{
		CurrentPrice:      current,
		PredictedPrice:    result.LastPrice(),
		ModelConfidence:   result.ConfidenceScore,
		TechnicalAnalysis: technical,
		Ratios:            ratios,
	})

	fmt.Printf("%s current price: $%.2f\n", opts.ticker, current)
	fmt.Printf("forecast (%s, %d days): $%.2f, confidence %.0f%%\n",
		result.ModelKind, len(result.Predictions), result.LastPrice(), result.ConfidenceScore*100)
	fmt.Printf("recommendation: %s (target $%.2f, risk %s, horizon %s)\n\n",
		strings.ToUpper(string(rec.Action)), rec.TargetPrice, rec.RiskLevel, rec.TimeHorizon)
	fmt.Println(rec.Reasoning)
}

func parseOptions(args []string, getenv func(string) string) (options, error) {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	ticker := fs.String("ticker", "", "ticker symbol to analyze (required)")
	model := fs.String("model", string(domain.ModelGBTree), "forecast model: gbtree or rnn")
	days := fs.Int("days", defaultHorizonDays(getenv), "forecast horizon in days (default from FORECAST_HORIZON_DAYS, else 30)")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	t := strings.ToUpper(strings.TrimSpace(*ticker))
	if t == "" {
		return options{}, fmt.Errorf("ticker is required")
	}

	kind := domain.ModelKind(strings.ToLower(strings.TrimSpace(*model)))
	if !kind.IsValid() {
		return options{}, fmt.Errorf("unsupported model: %s", *model)
	}

	if *days <= 0 || *days > 365 {
		return options{}, fmt.Errorf("days must be between 1 and 365")
	}

	return options{ticker: t, model: kind, days: *days}, nil
}

func defaultHorizonDays(getenv func(string) string) int {
	v := strings.TrimSpace(getenv("FORECAST_HORIZON_DAYS"))
	if v == "" {
		return 30
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > 365 {
		return 30
	}
	return n
}
