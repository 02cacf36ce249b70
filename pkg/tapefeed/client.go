// Package tapefeed provides a Go SDK for the tapefeed-server API.
package tapefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Event is one tape event as served by the API.
type Event struct {
	ID               int64           `json:"id"`
	ExternalID       string          `json:"external_id,omitempty"`
	EventType        string          `json:"event_type"`
	TS               time.Time       `json:"ts"`
	EventDate        *time.Time      `json:"event_date,omitempty"`
	Symbol           string          `json:"symbol,omitempty"`
	Source           string          `json:"source,omitempty"`
	Headline         string          `json:"headline,omitempty"`
	Summary          string          `json:"summary,omitempty"`
	URL              string          `json:"url,omitempty"`
	MemberName       string          `json:"member_name,omitempty"`
	MemberBioguideID string          `json:"member_bioguide_id,omitempty"`
	Chamber          string          `json:"chamber,omitempty"`
	Party            string          `json:"party,omitempty"`
	TradeType        string          `json:"trade_type,omitempty"`
	TransactionType  string          `json:"transaction_type,omitempty"`
	AmountMin        *float64        `json:"amount_min,omitempty"`
	AmountMax        *float64        `json:"amount_max,omitempty"`
	ImpactScore      float64         `json:"impact_score"`
	Payload          json.RawMessage `json:"payload,omitempty"`
}

// EventsPage is one page of events. NextCursor is empty when the result
// set is exhausted.
type EventsPage struct {
	Items      []Event `json:"items"`
	NextCursor string  `json:"next_cursor,omitempty"`
	Total      *int    `json:"total,omitempty"`
}

// Query carries the events filter parameters. Zero values are omitted from
// the request.
type Query struct {
	Symbols      []string
	Tape         string
	Member       string
	MemberID     string
	Chamber      string
	Party        string
	TradeType    string
	Role         string
	Ownership    string
	MinAmount    string
	MaxAmount    string
	RecentDays   int
	Since        string
	Cursor       string
	Limit        int
	IncludeTotal bool
}

// Values encodes the query as URL parameters.
func (q Query) Values() url.Values {
	v := url.Values{}
	setIf := func(key, val string) {
		if val != "" {
			v.Set(key, val)
		}
	}
	setIf("symbol", strings.Join(q.Symbols, ","))
	setIf("tape", q.Tape)
	setIf("member", q.Member)
	setIf("member_id", q.MemberID)
	setIf("chamber", q.Chamber)
	setIf("party", q.Party)
	setIf("trade_type", q.TradeType)
	setIf("role", q.Role)
	setIf("ownership", q.Ownership)
	setIf("min_amount", q.MinAmount)
	setIf("max_amount", q.MaxAmount)
	setIf("since", q.Since)
	setIf("cursor", q.Cursor)
	if q.RecentDays > 0 {
		v.Set("recent_days", strconv.Itoa(q.RecentDays))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.IncludeTotal {
		v.Set("include_total", "true")
	}
	return v
}

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Client provides a Go SDK for interacting with the tapefeed-server API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new tapefeed API client.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// ListEvents retrieves one page of events matching the query.
func (c *Client) ListEvents(ctx context.Context, q Query) (*EventsPage, error) {
	var page EventsPage
	if err := c.getJSON(ctx, "/api/events", q.Values(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Suggest retrieves typeahead candidates for one of the suggestion kinds:
// "symbol", "member", or "role".
func (c *Client) Suggest(ctx context.Context, kind, q, tape string, limit int) ([]string, error) {
	values := url.Values{}
	values.Set("q", q)
	if tape != "" {
		values.Set("tape", tape)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}

	var out struct {
		Items []string `json:"items"`
	}
	if err := c.getJSON(ctx, "/api/suggest/"+kind, values, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// GetWatchlist retrieves the watched symbols.
func (c *Client) GetWatchlist(ctx context.Context) ([]string, error) {
	var out struct {
		Symbols []string `json:"symbols"`
	}
	if err := c.getJSON(ctx, "/api/watchlist", nil, &out); err != nil {
		return nil, err
	}
	return out.Symbols, nil
}

// AddToWatchlist adds a symbol to the watchlist.
func (c *Client) AddToWatchlist(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodPut, "/api/watchlist/"+url.PathEscape(symbol))
}

// RemoveFromWatchlist removes a symbol from the watchlist.
func (c *Client) RemoveFromWatchlist(ctx context.Context, symbol string) error {
	return c.do(ctx, http.MethodDelete, "/api/watchlist/"+url.PathEscape(symbol))
}

// Health checks server reachability.
func (c *Client) Health(ctx context.Context) error {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.getJSON(ctx, "/api/health", nil, &out); err != nil {
		return err
	}
	if out.Status != "ok" {
		return fmt.Errorf("unexpected health status %q", out.Status)
	}
	return nil
}

func (c *Client) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	u := c.baseURL + path
	if len(values) > 0 {
		u += "?" + values.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) do(ctx context.Context, method, path string) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return apiError(resp)
	}
	return nil
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var wire struct {
		Error string `json:"error"`
	}
	msg := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &wire); err == nil && wire.Error != "" {
		msg = wire.Error
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}
