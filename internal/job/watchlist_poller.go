package job

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel/trace"

	"stock-insight/internal/domain"
	"stock-insight/internal/service"
)

const defaultPollInterval = time.Hour

type StockAnalyzer interface {
	Analyze(ctx context.Context, ticker string, kind domain.ModelKind, days int) (*service.AnalysisResult, error)
}

type RecommendationNotifier interface {
	NotifyRecommendation(ctx context.Context, ticker string, rec domain.Recommendation) error
}

// WatchlistPoller periodically re-analyzes watchlist tickers and pushes
// actionable recommendations to the notifier. One ticker per tick keeps the
// model training load flat.
type WatchlistPoller struct {
	tracer   trace.Tracer
	analyzer StockAnalyzer
	notifier RecommendationNotifier
	tickers  []string
	interval time.Duration
}

func NewWatchlistPoller(
	tracer trace.Tracer,
	analyzer StockAnalyzer,
	notifier RecommendationNotifier,
	tickers []string,
	interval time.Duration,
) *WatchlistPoller {
	if interval <= 0 {
		interval = defaultPollInterval
	}
	return &WatchlistPoller{
		tracer:   tracer,
		analyzer: analyzer,
		notifier: notifier,
		tickers:  tickers,
		interval: interval,
	}
}

// Start blocks until ctx is cancelled.
func (p *WatchlistPoller) Start(ctx context.Context) {
	if p.analyzer == nil || len(p.tickers) == 0 {
		log.Println("Watchlist poller disabled: nothing to watch")
		<-ctx.Done()
		return
	}

	log.Printf("Watchlist poller starting with %d ticker(s)...", len(p.tickers))
	index := 0
	p.analyzeNext(ctx, &index)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Watchlist poller stopped")
			return
		case <-ticker.C:
			p.analyzeNext(ctx, &index)
		}
	}
}

func (p *WatchlistPoller) analyzeNext(ctx context.Context, index *int) {
	symbol := p.tickers[*index%len(p.tickers)]
	*index++

	if p.tracer != nil {
		var span trace.Span
		ctx, span = p.tracer.Start(ctx, "watchlist-poller.analyze")
		defer span.End()
	}

	result, err := p.analyzer.Analyze(ctx, symbol, "", 0)
	if err != nil {
		log.Printf("watchlist analysis error for %s: %v", symbol, err)
		return
	}
	if p.notifier == nil || result.Recommendation == nil {
		return
	}
	if err := p.notifier.NotifyRecommendation(ctx, symbol, *result.Recommendation); err != nil {
		log.Printf("watchlist alert error for %s: %v", symbol, err)
	}
}
