// Package store defines storage interfaces for persisting and querying
// tape events, plus the cursor token format shared with the HTTP API.
package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"tapefeed/internal/domain"
)

// Query limits. The server clamps rather than rejects oversized limits.
const (
	DefaultLimit    = 50
	MaxLimit        = 200
	MaxSuggestLimit = 50
)

// EventQuery carries every supported events filter. Zero values mean
// "not filtered". Times are compared against coalesce(event_date, ts).
type EventQuery struct {
	Symbols         []string // uppercased tickers, OR-ed
	Types           []string // explicit event types, OR-ed
	Tape            string   // congress | insider | all | ""
	Since           time.Time
	RecentDays      int
	Member          string // substring, case-insensitive
	MemberID        string
	Chamber         string
	Party           string // democrat | republican | independent | other
	TradeType       string // purchase | sale | p-purchase | s-sale
	TransactionType string
	Role            string
	Ownership       string
	MinAmount       *float64 // against amount_max
	MaxAmount       *float64 // against amount_min
	Cursor          string
	Limit           int
}

// Scope resolves which tape the query effectively addresses. Congress-only
// filters force the congress scope and insider-only filters force the
// insider scope, even on the combined tape; the trade_type mapping depends
// on this.
func (q *EventQuery) Scope() string {
	congress := q.Member != "" || q.MemberID != "" || q.Chamber != "" || q.Party != ""
	insider := q.TransactionType != "" || q.Role != "" || q.Ownership != ""

	switch {
	case len(q.Types) == 1 && q.Types[0] == string(domain.EventTypeCongress):
		return "congress"
	case len(q.Types) == 1 && q.Types[0] == string(domain.EventTypeInsider):
		return "insider"
	case q.Tape == "congress", congress && !insider:
		return "congress"
	case q.Tape == "insider", insider && !congress:
		return "insider"
	}
	return "all"
}

// EffectiveLimit returns the page size clamped to [1, MaxLimit], defaulting
// when unset.
func (q *EventQuery) EffectiveLimit() int {
	switch {
	case q.Limit <= 0:
		return DefaultLimit
	case q.Limit > MaxLimit:
		return MaxLimit
	}
	return q.Limit
}

// EventPage is one page of query results. NextCursor is empty when the
// result set is exhausted.
type EventPage struct {
	Items      []domain.RawEvent `json:"items"`
	NextCursor string            `json:"next_cursor,omitempty"`
	Total      *int              `json:"total,omitempty"`
}

// EventStore persists and queries tape events.
type EventStore interface {
	// InsertEvents writes a batch, skipping rows whose external id is
	// already stored. It returns the number of newly inserted rows.
	InsertEvents(ctx context.Context, events []domain.RawEvent) (int, error)

	// QueryEvents returns one page matching the query, ordered by
	// coalesce(event_date, ts) descending, id descending.
	QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error)

	// CountEvents returns the full matching row count, ignoring the
	// query's cursor and limit.
	CountEvents(ctx context.Context, q EventQuery) (int, error)

	// SuggestSymbols returns distinct tickers starting with prefix,
	// optionally restricted to one tape.
	SuggestSymbols(ctx context.Context, prefix, tape string, limit int) ([]string, error)

	// SuggestMembers returns distinct congress member names starting
	// with prefix.
	SuggestMembers(ctx context.Context, prefix string, limit int) ([]string, error)

	// SuggestRoles returns distinct insider role/title strings starting
	// with prefix.
	SuggestRoles(ctx context.Context, prefix string, limit int) ([]string, error)
}

// --- Cursor tokens ---

// EncodeCursor builds the keyset continuation token for a row: the row's
// sort timestamp and id joined by a pipe.
func EncodeCursor(ts time.Time, id int64) string {
	return ts.UTC().Format(time.RFC3339) + "|" + strconv.FormatInt(id, 10)
}

// ParseCursor splits a continuation token back into its timestamp and id.
func ParseCursor(cursor string) (time.Time, int64, error) {
	tsStr, idStr, ok := strings.Cut(cursor, "|")
	if !ok {
		return time.Time{}, 0, fmt.Errorf("invalid cursor format, expected ts|id")
	}
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid cursor id: %w", err)
	}
	ts, err := time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	return ts.UTC(), id, nil
}
