package job

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"

	"stock-insight/internal/domain"
	"stock-insight/internal/service"
)

func TestWatchlistPollerStart(t *testing.T) {
	t.Parallel()

	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubAnalyzer{result: holdResult()}
	poller := NewWatchlistPoller(tracer, stub, nil, []string{"AAPL"}, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	go poller.Start(ctx)

	eventuallyAnalyzed(t, func() bool { return stub.callCount() > 0 })
	cancel()
}

func TestWatchlistPollerRoundRobin(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	stub := &stubAnalyzer{result: holdResult()}
	poller := NewWatchlistPoller(tracer, stub, nil, []string{"AAPL", "MSFT"}, time.Hour)

	idx := 0
	poller.analyzeNext(context.Background(), &idx)
	poller.analyzeNext(context.Background(), &idx)
	poller.analyzeNext(context.Background(), &idx)

	want := []string{"AAPL", "MSFT", "AAPL"}
	got := stub.seen()
	if len(got) != len(want) {
		t.Fatalf("expected %d analyses, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("unexpected ticker order: %v", got)
		}
	}
}

func TestWatchlistPollerForwardsRecommendation(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	notifier := &stubNotifier{}

	buy := holdResult()
	buy.Recommendation.Action = domain.ActionBuy
	stub := &stubAnalyzer{result: buy}
	poller := NewWatchlistPoller(tracer, stub, notifier, []string{"AAPL"}, time.Hour)

	idx := 0
	poller.analyzeNext(context.Background(), &idx)

	if len(notifier.notified) != 1 || notifier.notified[0] != "AAPL" {
		t.Fatalf("expected one AAPL notification, got %+v", notifier.notified)
	}
}

func TestWatchlistPollerSkipsNotifyOnAnalysisError(t *testing.T) {
	tracer := trace.NewNoopTracerProvider().Tracer("test")
	notifier := &stubNotifier{}
	stub := &stubAnalyzer{err: errors.New("provider down")}
	poller := NewWatchlistPoller(tracer, stub, notifier, []string{"AAPL"}, time.Hour)

	idx := 0
	poller.analyzeNext(context.Background(), &idx)

	if len(notifier.notified) != 0 {
		t.Fatalf("expected no notifications, got %+v", notifier.notified)
	}
}

func holdResult() *service.AnalysisResult {
	return &service.AnalysisResult{
		Stock:        domain.Stock{ID: 1, Ticker: "AAPL"},
		CurrentPrice: 100,
		Recommendation: &domain.Recommendation{
			Action:       domain.ActionHold,
			CurrentPrice: 100,
			TargetPrice:  100,
		},
	}
}

type stubAnalyzer struct {
	mu      sync.Mutex
	tickers []string
	result  *service.AnalysisResult
	err     error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, ticker string, kind domain.ModelKind, days int) (*service.AnalysisResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers = append(s.tickers, ticker)
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

func (s *stubAnalyzer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickers)
}

func (s *stubAnalyzer) seen() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.tickers...)
}

type stubNotifier struct {
	notified []string
}

func (s *stubNotifier) NotifyRecommendation(ctx context.Context, ticker string, rec domain.Recommendation) error {
	s.notified = append(s.notified, ticker)
	return nil
}

func eventuallyAnalyzed(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}
