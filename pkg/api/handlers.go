package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"GoModelRouter/pkg/discovery"
	"GoModelRouter/pkg/generation"
	"GoModelRouter/pkg/logger"
	"GoModelRouter/pkg/orchestrator"
	"GoModelRouter/pkg/store"
)

const defaultTopN = 5

// Generator runs the candidate fallback loop for one request.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// StatsProvider reports the pool monitoring view.
type StatsProvider interface {
	Stats(topN int) store.Stats
}

// Refresher forces a discovery refresh.
type Refresher interface {
	Refresh(ctx context.Context) discovery.RefreshResult
}

// Handler serves the router HTTP API.
type Handler struct {
	gen       Generator
	stats     StatsProvider
	refresher Refresher
	logger    *zap.Logger
}

// NewHandler wires the handler to its collaborators. log may be nil.
func NewHandler(gen Generator, stats StatsProvider, refresher Refresher, log *zap.Logger) *Handler {
	return &Handler{
		gen:       gen,
		stats:     stats,
		refresher: refresher,
		logger:    logger.OrNop(log).Named("api"),
	}
}

// GenerateRequest is the body of POST /api/generate. Prompt wins over Topic;
// with neither, the model picks a topic.
type GenerateRequest struct {
	Prompt      string  `json:"prompt"`
	Topic       string  `json:"topic"`
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type attemptView struct {
	Candidate string            `json:"candidate"`
	Reason    generation.Reason `json:"reason"`
	Error     string            `json:"error"`
}

// Health answers liveness probes.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Stats returns pool statistics with the ?top= best candidates (default 5).
func (h *Handler) Stats(c *gin.Context) {
	topN := defaultTopN
	if raw := c.Query("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "top must be a non-negative integer"})
			return
		}
		topN = n
	}
	c.JSON(http.StatusOK, h.stats.Stats(topN))
}

// Refresh queries the catalog regardless of pool age and returns the
// result with fresh statistics.
func (h *Handler) Refresh(c *gin.Context) {
	res := h.refresher.Refresh(c.Request.Context())
	h.logger.Info("manual discovery refresh",
		zap.Int("fetched", res.Fetched),
		zap.Int("added", len(res.Added)),
		zap.Int("dropped", len(res.Dropped)),
		zap.Int("evicted", len(res.Evicted)))
	c.JSON(http.StatusOK, gin.H{
		"refresh": res,
		"stats":   h.stats.Stats(defaultTopN),
	})
}

// Generate runs one request through the fallback loop. Exhaustion maps to
// 503 with the per-attempt failures, a caller timeout to 504.
func (h *Handler) Generate(c *gin.Context) {
	var body GenerateRequest
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to parse generate request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON payload"})
		return
	}

	req := generation.Request{
		Prompt:      body.Prompt,
		MaxTokens:   body.MaxTokens,
		Temperature: body.Temperature,
	}
	if req.Prompt == "" {
		req.Prompt = generation.ArticlePrompt(body.Topic)
	}

	res, err := h.gen.Generate(c.Request.Context(), req)
	if err == nil {
		c.JSON(http.StatusOK, res)
		return
	}

	var exh *orchestrator.ExhaustedError
	switch {
	case errors.As(err, &exh):
		attempts := make([]attemptView, 0, len(exh.Attempts))
		for _, a := range exh.Attempts {
			attempts = append(attempts, attemptView{Candidate: a.Candidate, Reason: a.Reason, Error: a.Err.Error()})
		}
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":    "exhausted",
			"aborted":  exh.Aborted,
			"attempts": attempts,
		})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		h.logger.Error("generation failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
