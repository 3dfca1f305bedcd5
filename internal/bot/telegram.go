package bot

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"stock-insight/internal/domain"
	"stock-insight/internal/service"
)

type Analyzer interface {
	Analyze(ctx context.Context, ticker string, kind domain.ModelKind, days int) (*service.AnalysisResult, error)
	ListRecommendations(ctx context.Context, ticker string, limit int) ([]domain.Recommendation, error)
}

func StartTelegramBot(analyzer Analyzer) *AlertDispatcher {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return nil
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}
	alerts := NewAlertDispatcher(b)

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/analyze", func(c tele.Context) error {
		if analyzer == nil {
			return c.Send("Analysis service unavailable")
		}

		ticker, kind, days, err := parseAnalyzeArgs(c.Args())
		if err != nil {
			return c.Send("Usage: /analyze AAPL | /analyze AAPL --model rnn | /analyze AAPL --days 60")
		}

		if err := c.Send(fmt.Sprintf("Analyzing %s, this can take a minute...", ticker)); err != nil {
			return err
		}

		result, err := analyzer.Analyze(context.Background(), ticker, kind, days)
		if err != nil {
			return c.Send(fmt.Sprintf("Error analyzing %s: %v", ticker, err))
		}
		return c.Send(formatAnalysis(result))
	})

	b.Handle("/recommend", func(c tele.Context) error {
		if analyzer == nil {
			return c.Send("Analysis service unavailable")
		}

		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /recommend AAPL")
		}
		ticker := strings.ToUpper(strings.TrimSpace(args[0]))

		recs, err := analyzer.ListRecommendations(context.Background(), ticker, 3)
		if err != nil {
			return c.Send(fmt.Sprintf("Error fetching recommendations for %s: %v", ticker, err))
		}
		if len(recs) == 0 {
			return c.Send(fmt.Sprintf("No stored recommendations for %s yet. Run /analyze %s first.", ticker, ticker))
		}

		lines := make([]string, 0, len(recs)+1)
		lines = append(lines, fmt.Sprintf("Latest recommendations for %s:", ticker))
		for _, rec := range recs {
			lines = append(lines, formatRecommendation(rec))
		}
		return c.Send(strings.Join(lines, "\n"))
	})

	b.Handle("/alerts", func(c tele.Context) error {
		chat := c.Chat()
		if chat == nil {
			return c.Send("Unable to detect chat")
		}

		mode, err := parseAlertMode(c.Args())
		if err != nil {
			return c.Send("Usage: /alerts on | /alerts off | /alerts status")
		}

		switch mode {
		case "on":
			if alerts.Subscribe(chat.ID) {
				return c.Send("Watchlist alerts enabled for this chat.")
			}
			return c.Send("Watchlist alerts are already enabled for this chat.")
		case "off":
			if alerts.Unsubscribe(chat.ID) {
				return c.Send("Watchlist alerts disabled for this chat.")
			}
			return c.Send("Watchlist alerts are already disabled for this chat.")
		default:
			if alerts.IsSubscribed(chat.ID) {
				return c.Send("Alerts status: ON")
			}
			return c.Send("Alerts status: OFF")
		}
	})

	go b.Start()
	log.Println("Telegram bot started")
	return alerts
}

func parseAnalyzeArgs(args []string) (string, domain.ModelKind, int, error) {
	var (
		ticker string
		kind   domain.ModelKind
		days   int
	)

	for i := 0; i < len(args); i++ {
		arg := strings.TrimSpace(args[i])
		if arg == "" {
			continue
		}

		if strings.HasPrefix(arg, "--model=") {
			k := domain.ModelKind(strings.ToLower(strings.TrimPrefix(arg, "--model=")))
			if !k.IsValid() {
				return "", "", 0, errors.New("unknown model")
			}
			kind = k
			continue
		}

		if arg == "--model" {
			if i+1 >= len(args) {
				return "", "", 0, errors.New("missing model value")
			}
			i++
			k := domain.ModelKind(strings.ToLower(args[i]))
			if !k.IsValid() {
				return "", "", 0, errors.New("unknown model")
			}
			kind = k
			continue
		}

		if strings.HasPrefix(arg, "--days=") {
			n, err := strconv.Atoi(strings.TrimPrefix(arg, "--days="))
			if err != nil || n <= 0 || n > 365 {
				return "", "", 0, errors.New("days out of range")
			}
			days = n
			continue
		}

		if arg == "--days" {
			if i+1 >= len(args) {
				return "", "", 0, errors.New("missing days value")
			}
			i++
			n, err := strconv.Atoi(args[i])
			if err != nil || n <= 0 || n > 365 {
				return "", "", 0, errors.New("days out of range")
			}
			days = n
			continue
		}

		if strings.HasPrefix(arg, "--") {
			return "", "", 0, errors.New("unknown option")
		}
		if ticker != "" {
			return "", "", 0, errors.New("multiple tickers provided")
		}
		ticker = strings.ToUpper(arg)
	}

	if ticker == "" {
		return "", "", 0, errors.New("missing ticker")
	}
	return ticker, kind, days, nil
}

func formatAnalysis(res *service.AnalysisResult) string {
	lines := []string{fmt.Sprintf("%s ($%.2f)", res.Stock.Ticker, res.CurrentPrice)}

	if res.Forecast != nil && len(res.Forecast.Predictions) > 0 {
		predicted := res.Forecast.LastPrice()
		pct := (predicted - res.CurrentPrice) / res.CurrentPrice * 100
		lines = append(lines, fmt.Sprintf(
			"Forecast (%s, %d days): $%.2f (%+.2f%%)",
			res.Forecast.ModelKind, len(res.Forecast.Predictions), predicted, pct,
		))
	}
	if res.Recommendation != nil {
		lines = append(lines, formatRecommendation(*res.Recommendation))
	}
	if res.Direction != nil {
		lines = append(lines, fmt.Sprintf("Direction: %s (%.0f%% up)", res.Direction.Sentiment, res.Direction.ProbUp*100))
	}
	if res.Anomalous() {
		lines = append(lines, fmt.Sprintf("Warning: unusual recent price behaviour (anomaly score %.2f)", *res.AnomalyScore))
	}
	return strings.Join(lines, "\n")
}

func formatRecommendation(rec domain.Recommendation) string {
	return fmt.Sprintf(
		"%s at $%.2f, target $%.2f, confidence %.0f%%, risk %s, horizon %s (%s)",
		strings.ToUpper(string(rec.Action)),
		rec.CurrentPrice,
		rec.TargetPrice,
		rec.ConfidenceScore*100,
		rec.RiskLevel,
		rec.TimeHorizon,
		rec.CreatedAt.UTC().Format(time.RFC822),
	)
}
