package discovery

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"GoModelRouter/pkg/logger"
)

const DefaultHubURL = "https://huggingface.co/api/models"

// DefaultProviders is the allow-list of organisations whose instruction
// models are free on the router. Anything else may be billable.
var DefaultProviders = []string{
	"Qwen", "meta-llama", "mistralai", "google", "microsoft", "bigscience", "tiiuae",
}

// Catalog lists candidate identifiers. It never fails: an unusable answer is
// an empty list.
type Catalog interface {
	FetchCandidates(ctx context.Context) []string
}

// Config describes the catalog query and its filters.
type Config struct {
	URL                string        `mapstructure:"url"`
	Timeout            time.Duration `mapstructure:"timeout"`
	PipelineTag        string        `mapstructure:"pipeline_tag"`
	Filter             string        `mapstructure:"filter"`
	Sort               string        `mapstructure:"sort"`
	FetchLimit         int           `mapstructure:"fetch_limit"`
	MaxResults         int           `mapstructure:"max_results"`
	RequireInID        string        `mapstructure:"require_in_id"`
	Providers          []string      `mapstructure:"providers"`
	MinRefreshInterval time.Duration `mapstructure:"min_refresh_interval"`
}

// DefaultConfig mirrors the production Hub query.
func DefaultConfig() Config {
	return Config{
		URL:                DefaultHubURL,
		Timeout:            5 * time.Second,
		PipelineTag:        "text-generation",
		Filter:             "conversational",
		Sort:               "downloads",
		FetchLimit:         30,
		MaxResults:         15,
		RequireInID:        "Instruct",
		Providers:          append([]string(nil), DefaultProviders...),
		MinRefreshInterval: time.Minute,
	}
}

type hubModel struct {
	ID      string `json:"id"`
	ModelID string `json:"modelId"`
}

// HubCatalog queries the Hugging Face Hub model listing.
type HubCatalog struct {
	cfg       Config
	client    *http.Client
	providers []*regexp.Regexp
	log       *zap.Logger
}

// NewHubCatalog builds a catalog client. A nil client gets one bounded by
// cfg.Timeout.
func NewHubCatalog(cfg Config, client *http.Client, log *zap.Logger) *HubCatalog {
	d := DefaultConfig()
	if cfg.URL == "" {
		cfg.URL = d.URL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = d.Timeout
	}
	if cfg.FetchLimit <= 0 {
		cfg.FetchLimit = d.FetchLimit
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = d.MaxResults
	}
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	providers := make([]*regexp.Regexp, 0, len(cfg.Providers))
	for _, p := range cfg.Providers {
		providers = append(providers, regexp.MustCompile("^"+regexp.QuoteMeta(p)+"/"))
	}
	return &HubCatalog{
		cfg:       cfg,
		client:    client,
		providers: providers,
		log:       logger.OrNop(log).Named("discovery"),
	}
}

// FetchCandidates returns the filtered ids, or nil on any failure.
func (h *HubCatalog) FetchCandidates(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, h.cfg.Timeout)
	defer cancel()

	models, err := h.query(ctx)
	if err != nil {
		h.log.Warn("failed to fetch candidates from catalog", zap.Error(err))
		return nil
	}

	ids := h.filter(models)
	h.log.Info("fetched candidates from catalog",
		zap.Int("listed", len(models)),
		zap.Int("kept", len(ids)))
	return ids
}

func (h *HubCatalog) query(ctx context.Context) ([]hubModel, error) {
	u, err := url.Parse(h.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse catalog url: %w", err)
	}
	q := u.Query()
	if h.cfg.PipelineTag != "" {
		q.Set("pipeline_tag", h.cfg.PipelineTag)
	}
	if h.cfg.Sort != "" {
		q.Set("sort", h.cfg.Sort)
	}
	if h.cfg.Filter != "" {
		q.Set("filter", h.cfg.Filter)
	}
	q.Set("limit", strconv.Itoa(h.cfg.FetchLimit))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build catalog request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("catalog request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("catalog returned status %d", resp.StatusCode)
	}
	var models []hubModel
	if err := json.NewDecoder(resp.Body).Decode(&models); err != nil {
		return nil, fmt.Errorf("decode catalog response: %w", err)
	}
	return models, nil
}

func (h *HubCatalog) filter(models []hubModel) []string {
	var ids []string
	for _, m := range models {
		id := m.ID
		if id == "" {
			id = m.ModelID
		}
		if id == "" || !strings.Contains(id, h.cfg.RequireInID) || !h.allowed(id) {
			continue
		}
		ids = append(ids, id)
		if len(ids) == h.cfg.MaxResults {
			break
		}
	}
	return ids
}

func (h *HubCatalog) allowed(id string) bool {
	if len(h.providers) == 0 {
		return true
	}
	for _, p := range h.providers {
		if p.MatchString(id) {
			return true
		}
	}
	return false
}
