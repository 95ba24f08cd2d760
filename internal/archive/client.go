// Package archive downloads labeled KOI tables from the NASA Exoplanet
// Archive TAP service.
package archive

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"koi-classifier/internal/common"
	"koi-classifier/internal/features"
)

const (
	syncPath = "/TAP/sync"
	koiTable = "cumulative"

	defaultTimeout = 60 * time.Second
	retryCount     = 2
	retryWait      = 500 * time.Millisecond
	retryMaxWait   = 2 * time.Second
)

type Client struct {
	base     string
	rest     *resty.Client
	requests *prometheus.CounterVec
}

// New creates a client for the archive at base, e.g.
// https://exoplanetarchive.ipac.caltech.edu.
func New(base string, timeout time.Duration) *Client {
	r := resty.New().
		SetTimeout(effectiveTimeout(timeout)).
		SetRetryCount(retryCount).
		SetRetryWaitTime(retryWait).
		SetRetryMaxWaitTime(retryMaxWait)
	return &Client{base: strings.TrimRight(base, "/"), rest: r}
}

// Budget is the longest a fetch through a client built with timeout can
// take: every attempt timing out plus the widest backoff between them.
func Budget(timeout time.Duration) time.Duration {
	return (retryCount+1)*effectiveTimeout(timeout) + retryCount*retryMaxWait
}

func effectiveTimeout(timeout time.Duration) time.Duration {
	if timeout > 0 {
		return timeout
	}
	return defaultTimeout
}

// WithMetrics counts fetches by outcome on requests, which must carry a
// single "outcome" label.
func (c *Client) WithMetrics(requests *prometheus.CounterVec) *Client {
	c.requests = requests
	return c
}

// Query builds the ADQL selecting the schema features and disposition of up
// to limit labeled KOIs.
func Query(limit int) string {
	cols := append([]string{"kepoi_name"}, features.Names()...)
	cols = append(cols, "koi_disposition")

	return fmt.Sprintf("select top %d %s from %s where koi_disposition in ('%s','%s')",
		limit,
		strings.Join(cols, ","),
		koiTable,
		common.DispositionConfirmed,
		common.DispositionFalsePositive,
	)
}

// FetchTrainingCSV downloads up to limit labeled KOIs as CSV text in the
// training upload format.
func (c *Client) FetchTrainingCSV(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		return "", fmt.Errorf("row limit must be positive, got %d", limit)
	}

	start := time.Now()
	resp, err := c.rest.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"query":  Query(limit),
			"format": "csv",
		}).
		Get(c.base + syncPath)
	if err != nil {
		c.observe("error")
		return "", fmt.Errorf("archive request failed: %w", err)
	}

	if resp.StatusCode() != 200 {
		c.observe("error")
		return "", fmt.Errorf("archive error: status %d, body: %s", resp.StatusCode(), truncate(resp.String(), 200))
	}

	body := resp.String()
	if strings.TrimSpace(body) == "" {
		c.observe("empty")
		return "", fmt.Errorf("archive returned an empty table")
	}

	c.observe("success")
	log.Info().
		Int("bytes", len(body)).
		Int("limit", limit).
		Dur("duration", time.Since(start)).
		Msg("Fetched KOI table from archive")

	return body, nil
}

func (c *Client) observe(outcome string) {
	if c.requests != nil {
		c.requests.WithLabelValues(outcome).Inc()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
