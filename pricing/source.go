package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-kit/log/level"
	"github.com/redis/go-redis/v9"

	"tripgenie/errs"
	"tripgenie/logger"
)

// RateSource supplies the current exchange-rate table.
type RateSource interface {
	Rates(ctx context.Context) (Rates, error)
}

// StaticSource serves a fixed table.
type StaticSource Rates

func (s StaticSource) Rates(context.Context) (Rates, error) {
	return Rates(s), nil
}

// HTTPSource fetches {"base": "...", "rates": {...}} documents, the shape
// returned by the public exchange-rate APIs the web client used.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func NewHTTPSource(url string) *HTTPSource {
	return &HTTPSource{URL: url, Client: &http.Client{Timeout: 5 * time.Second}}
}

type ratesDocument struct {
	Base  string `json:"base"`
	Rates Rates  `json:"rates"`
}

func (s *HTTPSource) Rates(ctx context.Context) (Rates, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, errs.Upstream(err, "building exchange-rate request")
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		return nil, errs.Upstream(err, "fetching exchange rates")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Upstream(fmt.Errorf("status %d", resp.StatusCode), "fetching exchange rates")
	}
	var doc ratesDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, errs.Upstream(err, "decoding exchange rates")
	}
	if len(doc.Rates) == 0 {
		return nil, errs.Upstream(fmt.Errorf("empty table"), "decoding exchange rates")
	}
	if doc.Base != "" {
		if _, ok := doc.Rates[doc.Base]; !ok {
			doc.Rates[doc.Base] = 1
		}
	}
	return doc.Rates, nil
}

const ratesCacheKey = "pricing:rates"

// CachedSource keeps the last table in redis for TTL. Cache failures are
// logged and bypassed.
type CachedSource struct {
	Source RateSource
	Redis  redis.Cmdable
	TTL    time.Duration
}

func (c *CachedSource) Rates(ctx context.Context) (Rates, error) {
	if raw, err := c.Redis.Get(ctx, ratesCacheKey).Bytes(); err == nil {
		var cached Rates
		if err := json.Unmarshal(raw, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	} else if err != redis.Nil {
		level.Warn(logger.Log).Log("msg", "rate cache read failed", "err", err)
	}

	rates, err := c.Source.Rates(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(rates); err == nil {
		if err := c.Redis.Set(ctx, ratesCacheKey, data, c.TTL).Err(); err != nil {
			level.Warn(logger.Log).Log("msg", "rate cache write failed", "err", err)
		}
	}
	return rates, nil
}
