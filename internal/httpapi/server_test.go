package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"tapefeed/internal/domain"
	"tapefeed/internal/store"
)

// fakeEventStore records the last query and serves canned results.
type fakeEventStore struct {
	lastQuery   store.EventQuery
	page        store.EventPage
	total       int
	countCalled bool
	suggestions []string
}

func (f *fakeEventStore) InsertEvents(_ context.Context, events []domain.RawEvent) (int, error) {
	return len(events), nil
}

func (f *fakeEventStore) QueryEvents(_ context.Context, q store.EventQuery) (*store.EventPage, error) {
	f.lastQuery = q
	page := f.page
	return &page, nil
}

func (f *fakeEventStore) CountEvents(_ context.Context, q store.EventQuery) (int, error) {
	f.countCalled = true
	return f.total, nil
}

func (f *fakeEventStore) SuggestSymbols(_ context.Context, prefix, tape string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	return f.suggestions, nil
}

func (f *fakeEventStore) SuggestMembers(_ context.Context, prefix string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	return f.suggestions, nil
}

func (f *fakeEventStore) SuggestRoles(_ context.Context, prefix string, limit int) ([]string, error) {
	if strings.TrimSpace(prefix) == "" {
		return nil, nil
	}
	return f.suggestions, nil
}

func newTestServer(t *testing.T) (*fakeEventStore, *httptest.Server) {
	t.Helper()
	fake := &fakeEventStore{}
	srv := NewFeedServer(fake, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return fake, ts
}

func get(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	return resp
}

func TestEventsParamValidation(t *testing.T) {
	_, ts := newTestServer(t)

	bad := []string{
		"tape=bogus",
		"chamber=congress",
		"party=green",
		"trade_type=swap",
		"cursor=no-pipe",
		"cursor=junk|notanumber",
		"recent_days=zero",
		"recent_days=-1",
		"min_amount=-5",
		"limit=abc",
		"since=not-a-date",
	}
	for _, qs := range bad {
		resp := get(t, ts.URL+"/api/events?"+qs)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("GET /api/events?%s status = %d, want 400", qs, resp.StatusCode)
		}
	}

	resp := get(t, ts.URL+"/api/events")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("unfiltered GET /api/events status = %d, want 200", resp.StatusCode)
	}
}

func TestEventsParamParsing(t *testing.T) {
	fake, ts := newTestServer(t)

	resp := get(t, ts.URL+"/api/events?symbol=nvda,+aapl&tape=Congress&member=+Doe+&trade_type=SALE&min_amount=250000&recent_days=30&limit=25")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	q := fake.lastQuery
	if len(q.Symbols) != 2 || q.Symbols[0] != "NVDA" || q.Symbols[1] != "AAPL" {
		t.Errorf("Symbols = %v, want uppercased [NVDA AAPL]", q.Symbols)
	}
	if q.Tape != "congress" {
		t.Errorf("Tape = %q, want lowercased congress", q.Tape)
	}
	if q.Member != "Doe" {
		t.Errorf("Member = %q, want trimmed Doe", q.Member)
	}
	if q.TradeType != "sale" {
		t.Errorf("TradeType = %q, want sale", q.TradeType)
	}
	if q.MinAmount == nil || *q.MinAmount != 250000 {
		t.Errorf("MinAmount = %v, want 250000", q.MinAmount)
	}
	if q.RecentDays != 30 || q.Limit != 25 {
		t.Errorf("RecentDays=%d Limit=%d, want 30 and 25", q.RecentDays, q.Limit)
	}
}

func TestEventsWhaleShorthand(t *testing.T) {
	fake, ts := newTestServer(t)

	resp := get(t, ts.URL+"/api/events?whale=true")
	resp.Body.Close()
	if fake.lastQuery.MinAmount == nil || *fake.lastQuery.MinAmount != 250000 {
		t.Errorf("MinAmount = %v, want whale floor 250000", fake.lastQuery.MinAmount)
	}

	// An explicit higher floor wins.
	resp = get(t, ts.URL+"/api/events?whale=true&min_amount=1000000")
	resp.Body.Close()
	if fake.lastQuery.MinAmount == nil || *fake.lastQuery.MinAmount != 1000000 {
		t.Errorf("MinAmount = %v, want explicit 1000000", fake.lastQuery.MinAmount)
	}
}

func TestEventsIncludeTotal(t *testing.T) {
	fake, ts := newTestServer(t)
	fake.total = 917

	resp := get(t, ts.URL+"/api/events?include_total=true")
	defer resp.Body.Close()

	var page struct {
		Total *int `json:"total"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !fake.countCalled {
		t.Error("CountEvents was not called")
	}
	if page.Total == nil || *page.Total != 917 {
		t.Errorf("total = %v, want 917", page.Total)
	}

	// Without the flag, no total is computed or serialized.
	fake.countCalled = false
	resp2 := get(t, ts.URL+"/api/events")
	defer resp2.Body.Close()
	var raw map[string]json.RawMessage
	if err := json.NewDecoder(resp2.Body).Decode(&raw); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if fake.countCalled {
		t.Error("CountEvents called without include_total")
	}
	if _, present := raw["total"]; present {
		t.Error("total serialized without include_total")
	}
}

func TestSuggestEndpoints(t *testing.T) {
	fake, ts := newTestServer(t)
	fake.suggestions = []string{"NVDA", "NVAX"}

	for _, kind := range []string{"symbol", "member", "role"} {
		// Empty q yields an empty list, not null.
		resp := get(t, ts.URL+"/api/suggest/"+kind+"?q=")
		var out SuggestResponse
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding %s response: %v", kind, err)
		}
		resp.Body.Close()
		if out.Items == nil || len(out.Items) != 0 {
			t.Errorf("suggest %s with empty q = %v, want []", kind, out.Items)
		}

		resp = get(t, ts.URL+"/api/suggest/"+kind+"?q=nv")
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decoding %s response: %v", kind, err)
		}
		resp.Body.Close()
		if len(out.Items) != 2 {
			t.Errorf("suggest %s = %v, want 2 items", kind, out.Items)
		}

		// Oversized limit is rejected.
		resp = get(t, ts.URL+"/api/suggest/"+kind+"?q=nv&limit=100")
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("suggest %s with limit=100 status = %d, want 400", kind, resp.StatusCode)
		}
	}
}

func TestWatchlistUnconfigured(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts.URL+"/api/watchlist")
	var out WatchlistResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	resp.Body.Close()
	if out.Symbols == nil || len(out.Symbols) != 0 {
		t.Errorf("watchlist = %v, want []", out.Symbols)
	}

	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/api/watchlist/NVDA", nil)
	putResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("PUT watchlist: %v", err)
	}
	putResp.Body.Close()
	if putResp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("PUT watchlist status = %d, want 503", putResp.StatusCode)
	}
}

func TestHealthAndCORS(t *testing.T) {
	_, ts := newTestServer(t)

	resp := get(t, ts.URL+"/api/health")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d, want 200", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS origin header = %q, want *", got)
	}

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/events", nil)
	optResp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("OPTIONS: %v", err)
	}
	optResp.Body.Close()
	if optResp.StatusCode != http.StatusNoContent {
		t.Errorf("OPTIONS status = %d, want 204", optResp.StatusCode)
	}
}
