// Package httpapi serves the events feed HTTP API: event queries with
// keyset pagination, typeahead suggestions, and the alpaca-backed
// watchlist.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	alpacaapi "github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"

	"tapefeed/internal/store"
)

const watchlistName = "tapefeed"

// FeedServer serves the feed HTTP API.
type FeedServer struct {
	events store.EventStore
	log    *slog.Logger

	// Alpaca client for watchlist (nil if not configured).
	alpacaClient *alpacaapi.Client
	watchlistID  string
}

// NewFeedServer creates a new feed HTTP server. alpacaClient may be nil;
// watchlist endpoints then report unconfigured.
func NewFeedServer(events store.EventStore, log *slog.Logger, alpacaClient *alpacaapi.Client) *FeedServer {
	s := &FeedServer{
		events:       events,
		log:          log,
		alpacaClient: alpacaClient,
	}

	// Discover watchlist ID.
	if alpacaClient != nil {
		go s.initWatchlist()
	}

	return s
}

func (s *FeedServer) initWatchlist() {
	lists, err := s.alpacaClient.GetWatchlists()
	if err != nil {
		s.log.Warn("listing watchlists", "error", err)
		return
	}
	for _, w := range lists {
		if w.Name == watchlistName {
			s.watchlistID = w.ID
			s.log.Info("watchlist found", "id", w.ID)
			return
		}
	}
	// Create it.
	w, err := s.alpacaClient.CreateWatchlist(alpacaapi.CreateWatchlistRequest{Name: watchlistName})
	if err != nil {
		s.log.Warn("creating watchlist", "error", err)
		return
	}
	s.watchlistID = w.ID
	s.log.Info("watchlist created", "id", w.ID)
}

// RegisterRoutes registers all API routes on the given mux.
func (s *FeedServer) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/events", s.handleEvents)
	mux.HandleFunc("GET /api/suggest/symbol", s.handleSuggestSymbol)
	mux.HandleFunc("GET /api/suggest/member", s.handleSuggestMember)
	mux.HandleFunc("GET /api/suggest/role", s.handleSuggestRole)
	mux.HandleFunc("GET /api/watchlist", s.handleGetWatchlist)
	mux.HandleFunc("PUT /api/watchlist/{symbol}", s.handleAddWatchlist)
	mux.HandleFunc("DELETE /api/watchlist/{symbol}", s.handleRemoveWatchlist)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

// Handler returns an http.Handler with CORS middleware.
func (s *FeedServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Events
// ---------------------------------------------------------------------------

func (s *FeedServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	q, includeTotal, err := parseEventQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	page, err := s.events.QueryEvents(r.Context(), *q)
	if err != nil {
		s.log.Error("querying events", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to query events")
		return
	}

	if includeTotal {
		total, err := s.events.CountEvents(r.Context(), *q)
		if err != nil {
			s.log.Error("counting events", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to count events")
			return
		}
		page.Total = &total
	}

	writeJSON(w, page)
}

// parseEventQuery validates every events query parameter. Invalid enums,
// cursors, and numbers are client errors.
func parseEventQuery(r *http.Request) (*store.EventQuery, bool, error) {
	values := r.URL.Query()
	q := &store.EventQuery{}

	for _, part := range strings.Split(values.Get("symbol"), ",") {
		if part = strings.TrimSpace(part); part != "" {
			q.Symbols = append(q.Symbols, strings.ToUpper(part))
		}
	}

	rawTypes := values.Get("event_type")
	if rawTypes == "" {
		rawTypes = values.Get("types")
	}
	for _, part := range strings.Split(rawTypes, ",") {
		if part = strings.TrimSpace(part); part != "" {
			q.Types = append(q.Types, strings.ToLower(part))
		}
	}

	var err error
	if q.Tape, err = parseEnum(values.Get("tape"), "tape", "congress", "insider", "all"); err != nil {
		return nil, false, err
	}
	if q.Chamber, err = parseEnum(values.Get("chamber"), "chamber", "house", "senate"); err != nil {
		return nil, false, err
	}
	if q.Party, err = parseEnum(values.Get("party"), "party", "democrat", "republican", "independent", "other"); err != nil {
		return nil, false, err
	}
	if q.TradeType, err = parseEnum(values.Get("trade_type"), "trade_type", "purchase", "sale", "p-purchase", "s-sale"); err != nil {
		return nil, false, err
	}

	if since := values.Get("since"); since != "" {
		t, err := parseISOTime(since)
		if err != nil {
			return nil, false, fmt.Errorf("invalid since datetime")
		}
		q.Since = t
	}
	if days := values.Get("recent_days"); days != "" {
		n, err := strconv.Atoi(days)
		if err != nil || n < 1 {
			return nil, false, fmt.Errorf("invalid recent_days, expected a positive integer")
		}
		q.RecentDays = n
	}

	q.Member = strings.TrimSpace(values.Get("member"))
	q.MemberID = strings.TrimSpace(values.Get("member_id"))
	q.TransactionType = strings.TrimSpace(values.Get("transaction_type"))
	q.Role = strings.TrimSpace(values.Get("role"))
	q.Ownership = strings.TrimSpace(values.Get("ownership"))

	if q.MinAmount, err = parseAmountParam(values.Get("min_amount"), "min_amount"); err != nil {
		return nil, false, err
	}
	if q.MaxAmount, err = parseAmountParam(values.Get("max_amount"), "max_amount"); err != nil {
		return nil, false, err
	}

	// whale is shorthand for a quarter-million floor.
	if values.Get("whale") == "true" && (q.MinAmount == nil || *q.MinAmount < 250_000) {
		floor := 250_000.0
		q.MinAmount = &floor
	}

	if cursor := values.Get("cursor"); cursor != "" {
		if _, _, err := store.ParseCursor(cursor); err != nil {
			return nil, false, fmt.Errorf("invalid cursor format, expected ts|id")
		}
		q.Cursor = cursor
	}
	if limit := values.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return nil, false, fmt.Errorf("invalid limit, expected a positive integer")
		}
		q.Limit = n
	}

	return q, values.Get("include_total") == "true", nil
}

func parseEnum(raw, label string, allowed ...string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == "" {
		return "", nil
	}
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", fmt.Errorf("invalid %s, allowed values: %s", label, strings.Join(allowed, ", "))
}

func parseAmountParam(raw, label string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, fmt.Errorf("invalid %s, expected a non-negative number", label)
	}
	return &v, nil
}

// parseISOTime accepts RFC3339 and the date-only form.
func parseISOTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// ---------------------------------------------------------------------------
// Suggestions
// ---------------------------------------------------------------------------

func (s *FeedServer) handleSuggestSymbol(w http.ResponseWriter, r *http.Request) {
	q, limit, err := parseSuggestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.events.SuggestSymbols(r.Context(), q, r.URL.Query().Get("tape"), limit)
	if err != nil {
		s.log.Error("suggesting symbols", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to suggest symbols")
		return
	}
	writeJSON(w, SuggestResponse{Items: emptyIfNil(items)})
}

func (s *FeedServer) handleSuggestMember(w http.ResponseWriter, r *http.Request) {
	q, limit, err := parseSuggestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.events.SuggestMembers(r.Context(), q, limit)
	if err != nil {
		s.log.Error("suggesting members", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to suggest members")
		return
	}
	writeJSON(w, SuggestResponse{Items: emptyIfNil(items)})
}

func (s *FeedServer) handleSuggestRole(w http.ResponseWriter, r *http.Request) {
	q, limit, err := parseSuggestParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := s.events.SuggestRoles(r.Context(), q, limit)
	if err != nil {
		s.log.Error("suggesting roles", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to suggest roles")
		return
	}
	writeJSON(w, SuggestResponse{Items: emptyIfNil(items)})
}

func parseSuggestParams(r *http.Request) (string, int, error) {
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > store.MaxSuggestLimit {
			return "", 0, fmt.Errorf("invalid limit, expected 1..%d", store.MaxSuggestLimit)
		}
		limit = n
	}
	return r.URL.Query().Get("q"), limit, nil
}

func emptyIfNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// ---------------------------------------------------------------------------
// Watchlist
// ---------------------------------------------------------------------------

func (s *FeedServer) handleGetWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.alpacaClient == nil || s.watchlistID == "" {
		writeJSON(w, WatchlistResponse{Symbols: []string{}})
		return
	}

	wl, err := s.alpacaClient.GetWatchlist(s.watchlistID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get watchlist")
		return
	}

	symbols := make([]string, 0, len(wl.Assets))
	for _, a := range wl.Assets {
		symbols = append(symbols, a.Symbol)
	}
	sort.Strings(symbols)
	writeJSON(w, WatchlistResponse{Symbols: symbols})
}

func (s *FeedServer) handleAddWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.alpacaClient == nil || s.watchlistID == "" {
		writeError(w, http.StatusServiceUnavailable, "watchlist not configured")
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	_, err := s.alpacaClient.AddSymbolToWatchlist(s.watchlistID, alpacaapi.AddSymbolToWatchlistRequest{Symbol: symbol})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to add %s: %v", symbol, err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *FeedServer) handleRemoveWatchlist(w http.ResponseWriter, r *http.Request) {
	if s.alpacaClient == nil || s.watchlistID == "" {
		writeError(w, http.StatusServiceUnavailable, "watchlist not configured")
		return
	}

	symbol := strings.ToUpper(r.PathValue("symbol"))
	err := s.alpacaClient.RemoveSymbolFromWatchlist(s.watchlistID, alpacaapi.RemoveSymbolFromWatchlistRequest{Symbol: symbol})
	if err != nil {
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to remove %s: %v", symbol, err))
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *FeedServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok"})
}
