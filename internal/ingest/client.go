// Package ingest pulls congress and insider filings from the upstream
// disclosure API, normalizes them into tape events, and lands them in the
// event store with a daily raw archive.
package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tapefeed/internal/util"
)

// Row is one raw upstream record. The shape varies per feed; normalization
// reads the fields it knows and keeps the rest in the event payload.
type Row map[string]any

// Client fetches filing pages from the upstream JSON API. Requests are
// rate limited and retried with backoff.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *util.RateLimiter
}

// NewClient creates an upstream client. perMinute bounds the request rate.
func NewClient(baseURL, apiKey string, perMinute int) *Client {
	return &Client{
		baseURL:    baseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    util.NewRateLimiter(perMinute),
	}
}

// FetchHouseTrades fetches one page of house filings.
func (c *Client) FetchHouseTrades(ctx context.Context, page, limit int) ([]Row, error) {
	return c.fetchPage(ctx, "house-trades", page, limit)
}

// FetchSenateTrades fetches one page of senate filings.
func (c *Client) FetchSenateTrades(ctx context.Context, page, limit int) ([]Row, error) {
	return c.fetchPage(ctx, "senate-trades", page, limit)
}

// FetchInsiderTrades fetches one page of insider ownership filings.
func (c *Client) FetchInsiderTrades(ctx context.Context, page, limit int) ([]Row, error) {
	return c.fetchPage(ctx, "insider-trading", page, limit)
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, page, limit int) ([]Row, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("missing upstream API key")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))
	params.Set("apikey", c.apiKey)
	u := c.baseURL + "/" + endpoint + "?" + params.Encode()

	var rows []Row
	err := util.Retry(ctx, 3, time.Second, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusNotFound:
			// Out-of-range pages terminate pagination.
			rows = nil
			return nil
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			body, _ := io.ReadAll(resp.Body)
			return fmt.Errorf("%s authorization failed (%d): %s", endpoint, resp.StatusCode, body)
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("%s status %d", endpoint, resp.StatusCode)
		}

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		rows, err = decodeRows(body)
		return err
	})
	return rows, err
}

// decodeRows accepts both a bare JSON array and a {"data": [...]} wrapper.
func decodeRows(body []byte) ([]Row, error) {
	var rows []Row
	if err := json.Unmarshal(body, &rows); err == nil {
		return rows, nil
	}
	var wrapped struct {
		Data []Row `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("decoding filing page: %w", err)
	}
	return wrapped.Data, nil
}
