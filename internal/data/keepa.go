package data

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/domain"
	"github.com/nagisa-labs/lark-sourcing-bot/internal/biz/repo"
)

const (
	defaultKeepaURL = "https://api.keepa.com/product"
	keepaDomainJP   = 5

	// positions in the csv-indexed "current" array
	keepaIdxAmazon = 0
	keepaIdxNew    = 1
	keepaIdxBuyBox = 18
)

// KeepaConfig contains pricing lookup configuration
type KeepaConfig struct {
	APIKey  string
	Domain  int
	Timeout time.Duration
	BaseURL string
}

// keepaRepo implements the pricing repository over the Keepa product API
type keepaRepo struct {
	config     KeepaConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewKeepaRepo creates a new pricing repository
func NewKeepaRepo(config KeepaConfig, log zerolog.Logger) repo.PricingRepo {
	if config.BaseURL == "" {
		config.BaseURL = defaultKeepaURL
	}
	if config.Domain == 0 {
		config.Domain = keepaDomainJP
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	return &keepaRepo{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		log:        log,
	}
}

// Lookup fetches title and price statistics. ASIN wins over JAN.
func (r *keepaRepo) Lookup(ctx context.Context, ids domain.Identifiers) (*domain.PricingResult, error) {
	if !ids.Any() {
		return nil, fmt.Errorf("keepa: asin or jan is required")
	}
	if r.config.APIKey == "" {
		return nil, fmt.Errorf("keepa: api key not configured")
	}

	q := url.Values{}
	q.Set("key", r.config.APIKey)
	q.Set("domain", strconv.Itoa(r.config.Domain))
	q.Set("stats", "1")
	q.Set("history", "0")
	if ids.ASIN != "" {
		q.Set("asin", ids.ASIN)
	} else {
		q.Set("code", ids.JAN)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.config.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("keepa: create request: %w", err)
	}

	r.log.Debug().Str("asin", ids.ASIN).Str("jan", ids.JAN).Msg("keepa request")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("keepa: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("keepa: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("keepa: read body: %w", err)
	}

	var payload keepaResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("keepa: decode json: %w", err)
	}
	if len(payload.Products) == 0 {
		return &domain.PricingResult{Found: false, ASIN: ids.ASIN}, nil
	}

	return r.mapProduct(payload.Products[0], ids), nil
}

func (r *keepaRepo) mapProduct(p keepaProduct, ids domain.Identifiers) *domain.PricingResult {
	scale := func(v int) int {
		if v <= 0 || r.config.Domain == keepaDomainJP {
			return v
		}
		return v / 100
	}
	scaleSeries := func(s []int) []int {
		out := make([]int, len(s))
		for i, v := range s {
			out[i] = scale(v)
		}
		return out
	}

	stats := domain.PriceStats{Current: make(map[string]int)}
	for src, v := range p.Stats.Current.values() {
		stats.Current[src] = scale(v)
	}
	for _, s := range [][]int{p.Stats.BuyBox, p.Stats.BuyBoxPrice, p.Data.BuyBoxShipping} {
		if len(s) > 0 {
			stats.BuyBoxHistory = append(stats.BuyBoxHistory, scaleSeries(s))
		}
	}

	asin := p.ASIN
	if asin == "" {
		asin = ids.ASIN
	}
	return &domain.PricingResult{
		Found: true,
		Title: p.Title,
		ASIN:  asin,
		Stats: stats,
	}
}

type keepaResponse struct {
	Products []keepaProduct `json:"products"`
}

type keepaProduct struct {
	ASIN  string `json:"asin"`
	Title string `json:"title"`
	Stats struct {
		Current     keepaCurrent `json:"current"`
		BuyBox      intSeries    `json:"buyBox"`
		BuyBoxPrice intSeries    `json:"buyBoxPrice"`
	} `json:"stats"`
	Data struct {
		BuyBoxShipping intSeries `json:"BUY_BOX_SHIPPING"`
	} `json:"data"`
}

// keepaCurrent accepts "current" both as an object keyed by source and as
// the csv-indexed array
type keepaCurrent struct {
	byName map[string]int
	byIdx  []int
}

func (c *keepaCurrent) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case map[string]any:
		c.byName = make(map[string]int, len(v))
		for k, x := range v {
			if n, ok := x.(float64); ok {
				c.byName[k] = int(n)
			}
		}
	case []any:
		c.byIdx = toInts(v)
	}
	return nil
}

func (c keepaCurrent) values() map[string]int {
	out := make(map[string]int)
	for _, src := range []string{domain.PriceSourceAmazon, domain.PriceSourceBuyBox, domain.PriceSourceNew} {
		if v, ok := c.byName[src]; ok {
			out[src] = v
		}
	}
	at := func(i int) (int, bool) {
		if i < len(c.byIdx) {
			return c.byIdx[i], true
		}
		return 0, false
	}
	if v, ok := at(keepaIdxAmazon); ok {
		out[domain.PriceSourceAmazon] = v
	}
	if v, ok := at(keepaIdxBuyBox); ok {
		out[domain.PriceSourceBuyBox] = v
	}
	if v, ok := at(keepaIdxNew); ok {
		out[domain.PriceSourceNew] = v
	}
	return out
}

// intSeries accepts a single number or an array of numbers
type intSeries []int

func (s *intSeries) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*s = intSeries{int(v)}
	case []any:
		*s = toInts(v)
	}
	return nil
}

func toInts(v []any) []int {
	out := make([]int, 0, len(v))
	for _, x := range v {
		if n, ok := x.(float64); ok {
			out = append(out, int(n))
		} else {
			out = append(out, -1)
		}
	}
	return out
}
