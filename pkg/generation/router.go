package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/logger"
)

const DefaultRouterURL = "https://router.huggingface.co/v1/chat/completions"

// Config configures the chat-completions router client.
type Config struct {
	URL            string        `mapstructure:"url"`
	APIKey         string        `mapstructure:"api_key"`
	Timeout        time.Duration `mapstructure:"timeout"`
	MaxTokens      int           `mapstructure:"max_tokens"`
	Temperature    float64       `mapstructure:"temperature"`
	RequireArticle bool          `mapstructure:"require_article"`
}

// DefaultConfig returns the production router settings.
func DefaultConfig() Config {
	return Config{
		URL:            DefaultRouterURL,
		Timeout:        30 * time.Second,
		MaxTokens:      2000,
		Temperature:    0.8,
		RequireArticle: true,
	}
}

// Throttle paces outgoing calls.
type Throttle interface {
	Wait(ctx context.Context) error
}

// RouterClient calls one candidate through an OpenAI-compatible
// chat-completions endpoint.
type RouterClient struct {
	cfg      Config
	client   *http.Client
	throttle Throttle
	log      *zap.Logger
}

// NewRouterClient builds a client. throttle may be nil.
func NewRouterClient(cfg Config, client *http.Client, throttle Throttle, log *zap.Logger) *RouterClient {
	d := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = d.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = d.MaxTokens
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	return &RouterClient{
		cfg:      cfg,
		client:   client,
		throttle: throttle,
		log:      logger.OrNop(log).Named("generation"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Attempt asks candidateID to fulfil req. Every error it returns is an
// *Error carrying a Reason.
func (c *RouterClient) Attempt(ctx context.Context, candidateID string, req Request) (Result, error) {
	fail := func(reason Reason, status int, err error) (Result, error) {
		return Result{}, &Error{Reason: reason, Candidate: candidateID, StatusCode: status, Err: err}
	}

	if c.throttle != nil {
		if err := c.throttle.Wait(ctx); err != nil {
			reason := ReasonThrottled
			if errors.Is(err, context.Canceled) {
				reason = ReasonCanceled
			}
			return fail(reason, 0, fmt.Errorf("throttle: %w", err))
		}
	}

	body, err := json.Marshal(c.buildRequest(candidateID, req))
	if err != nil {
		return fail(ReasonUnknown, 0, fmt.Errorf("encode request: %w", err))
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fail(ReasonUnknown, 0, fmt.Errorf("build request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		reason := ReasonTransient
		if errors.Is(err, context.Canceled) {
			reason = ReasonCanceled
		}
		return fail(reason, 0, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fail(ReasonTransient, resp.StatusCode, fmt.Errorf("read response: %w", err))
	}
	if reason, ok := classifyStatus(resp.StatusCode); ok {
		return fail(reason, resp.StatusCode, errors.New(snippet(payload)))
	}

	var chat chatResponse
	if err := json.Unmarshal(payload, &chat); err != nil {
		return fail(ReasonMalformed, resp.StatusCode, fmt.Errorf("decode response: %w", err))
	}
	if len(chat.Choices) == 0 || strings.TrimSpace(chat.Choices[0].Message.Content) == "" {
		return fail(ReasonMalformed, resp.StatusCode, errors.New("empty completion"))
	}

	text := chat.Choices[0].Message.Content
	res := Result{Candidate: candidateID, Text: text}
	article, err := ParseArticle(text)
	switch {
	case err == nil:
		res.Article = article
	case c.cfg.RequireArticle:
		return fail(ReasonMalformed, resp.StatusCode, err)
	default:
		c.log.Debug("completion is not an article", zap.String("candidate", candidateID), zap.Error(err))
	}
	return res, nil
}

func (c *RouterClient) buildRequest(model string, req Request) chatRequest {
	system := req.System
	if system == "" {
		system = SystemPrompt
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.cfg.MaxTokens
	}
	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.cfg.Temperature
	}
	return chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: req.Prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

func classifyStatus(code int) (Reason, bool) {
	switch {
	case code >= 200 && code < 300:
		return "", false
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return ReasonAuth, true
	case code == http.StatusTooManyRequests || code == http.StatusPaymentRequired:
		return ReasonQuota, true
	case code >= 500 || code == http.StatusRequestTimeout:
		return ReasonTransient, true
	default:
		// 400/404/422: this model cannot serve the request.
		return ReasonUnknown, true
	}
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	if s == "" {
		s = "empty body"
	}
	return s
}
