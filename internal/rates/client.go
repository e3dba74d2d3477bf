// Package rates fetches exchange-rate snapshots from an exchangerate-api v6
// compatible endpoint.
package rates

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fxledger/internal/core"
	"fxledger/internal/log"
	"fxledger/internal/metrics"
)

const maxBodyBytes = 1 << 20

type Config struct {
	BaseURL     string
	APIKey      string
	DefaultBase string
	Timeout     time.Duration
}

// Client is a one-shot rate fetcher: no retries and no caching between calls.
type Client struct {
	cfg     Config
	http    *http.Client
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewClient(cfg Config, m *metrics.Metrics) *Client {
	if cfg.DefaultBase == "" {
		cfg.DefaultBase = "USD"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		metrics: m,
		logger:  log.Component(log.ComponentRates),
	}
}

type latestResponse struct {
	Result          string             `json:"result"`
	BaseCode        string             `json:"base_code"`
	ConversionRates map[string]float64 `json:"conversion_rates"`
	ErrorType       string             `json:"error-type"`
}

// FetchRates returns the latest rates relative to base. Any failure yields an
// empty snapshot; the failure is logged and counted but never returned.
func (c *Client) FetchRates(ctx context.Context, base string) core.RateSnapshot {
	base = strings.TrimSpace(base)
	if base == "" {
		base = c.cfg.DefaultBase
	}

	start := time.Now()
	snap, err := c.fetch(ctx, base)
	c.metrics.ObserveRateFetch(err == nil, time.Since(start))
	if err != nil {
		c.logger.WarnContext(ctx, "Exchange rates unavailable, continuing without conversion",
			log.FieldOperation, log.OpFetch,
			log.FieldBaseCurrency, base,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
		return core.EmptySnapshot(base)
	}

	c.logger.DebugContext(ctx, "Exchange rates fetched",
		log.FieldBaseCurrency, snap.Base,
		log.FieldRateCount, len(snap.Rates),
		log.FieldDuration, time.Since(start).Milliseconds())
	return snap
}

func (c *Client) fetch(ctx context.Context, base string) (core.RateSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.latestURL(base), nil)
	if err != nil {
		return core.RateSnapshot{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return core.RateSnapshot{}, fmt.Errorf("request rates: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return core.RateSnapshot{}, fmt.Errorf("rates endpoint returned status %d", resp.StatusCode)
	}

	var body latestResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&body); err != nil {
		return core.RateSnapshot{}, fmt.Errorf("decode rates: %w", err)
	}
	if body.Result != "" && body.Result != "success" {
		return core.RateSnapshot{}, fmt.Errorf("rates endpoint result %q: %s", body.Result, body.ErrorType)
	}
	if body.ConversionRates == nil {
		return core.RateSnapshot{}, fmt.Errorf("rates response has no conversion_rates")
	}

	snapBase := body.BaseCode
	if snapBase == "" {
		snapBase = base
	}
	return core.RateSnapshot{Base: snapBase, Rates: body.ConversionRates}, nil
}

func (c *Client) latestURL(base string) string {
	if c.cfg.APIKey == "" {
		return fmt.Sprintf("%s/latest/%s", c.cfg.BaseURL, url.PathEscape(base))
	}
	return fmt.Sprintf("%s/%s/latest/%s", c.cfg.BaseURL, url.PathEscape(c.cfg.APIKey), url.PathEscape(base))
}
