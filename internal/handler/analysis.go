package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"stock-insight/internal/domain"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

type analyzeRequest struct {
	Ticker string `json:"ticker" binding:"required"`
	Model  string `json:"model"`
	Days   int    `json:"days"`
}

// Health godoc
// @Summary      Liveness probe
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Analyze godoc
// @Summary      Run the full analysis pipeline for a ticker
// @Description  Fetches history, computes indicators, trains the forecast model and stores a recommendation
// @Tags         analysis
// @Accept       json
// @Produce      json
// @Param        request  body  analyzeRequest  true  "Analysis request"
// @Success      200  {object}  service.AnalysisResult
// @Failure      400  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Failure      504  {object}  map[string]string
// @Router       /api/analyze [post]
func (h *Handler) Analyze(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.analyze")
	defer span.End()

	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticker is required"})
		return
	}

	ticker, ok := normalizeTicker(req.Ticker)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticker: " + req.Ticker})
		return
	}
	span.SetAttributes(attribute.String("ticker", ticker))

	result, err := h.analysisService.Analyze(ctx, ticker, domain.ModelKind(strings.ToLower(req.Model)), req.Days)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStock godoc
// @Summary      Get a stored stock profile
// @Tags         stocks
// @Produce      json
// @Param        ticker  path  string  true  "Ticker symbol"
// @Success      200  {object}  domain.Stock
// @Failure      404  {object}  map[string]string
// @Router       /api/stocks/{ticker} [get]
func (h *Handler) GetStock(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-stock")
	defer span.End()

	ticker, ok := normalizeTicker(c.Param("ticker"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticker: " + c.Param("ticker")})
		return
	}

	stock, err := h.analysisService.GetStock(ctx, ticker)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, stock)
}

// GetPredictions godoc
// @Summary      List stored forecast points for a ticker
// @Tags         predictions
// @Produce      json
// @Param        ticker  path   string  true   "Ticker symbol"
// @Param        limit   query  int     false  "Number of rows (default 30, max 500)"  default(30)
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/predictions/{ticker} [get]
func (h *Handler) GetPredictions(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-predictions")
	defer span.End()

	ticker, ok := normalizeTicker(c.Param("ticker"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticker: " + c.Param("ticker")})
		return
	}

	limit, ok := parseLimit(c.Query("limit"), 30)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	predictions, err := h.analysisService.ListPredictions(ctx, ticker, limit)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "predictions": predictions})
}

// GetRecommendations godoc
// @Summary      List stored recommendations for a ticker
// @Tags         recommendations
// @Produce      json
// @Param        ticker  path   string  true   "Ticker symbol"
// @Param        limit   query  int     false  "Number of rows (default 10, max 500)"  default(10)
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  map[string]string
// @Router       /api/recommendations/{ticker} [get]
func (h *Handler) GetRecommendations(c *gin.Context) {
	ctx, span := h.tracer.Start(c.Request.Context(), "handler.get-recommendations")
	defer span.End()

	ticker, ok := normalizeTicker(c.Param("ticker"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ticker: " + c.Param("ticker")})
		return
	}

	limit, ok := parseLimit(c.Query("limit"), 10)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
		return
	}

	recommendations, err := h.analysisService.ListRecommendations(ctx, ticker, limit)
	if err != nil {
		writeAnalysisError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ticker": ticker, "recommendations": recommendations})
}

func writeAnalysisError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrBackendUnavailable):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInsufficientHistory), errors.Is(err, domain.ErrInsufficientData):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrForecastTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// normalizeTicker uppercases and validates a ticker path or body value.
// Yahoo-style tickers allow dots and dashes (BRK.B, BTC-USD).
func normalizeTicker(raw string) (string, bool) {
	ticker := strings.ToUpper(strings.TrimSpace(raw))
	if ticker == "" || len(ticker) > 12 {
		return "", false
	}
	for _, r := range ticker {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '.' || r == '-':
		default:
			return "", false
		}
	}
	return ticker, true
}

func parseLimit(raw string, def int) (int, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 || n > 500 {
		return 0, false
	}
	return n, true
}
