package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"

	"tapefeed/internal/domain"
	"tapefeed/internal/feedstate"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver.
)

// Compile-time interface checks.
var _ EventStore = (*SQLiteStore)(nil)
var _ feedstate.Cache = (*SQLiteStore)(nil)

// sortExpr is the tape ordering key: the trade's own date when disclosed,
// else the ingest timestamp. Timestamps are stored as RFC3339 UTC text so
// string comparison is chronological comparison.
const sortExpr = "coalesce(event_date, ts)"

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id                 INTEGER PRIMARY KEY AUTOINCREMENT,
	external_id        TEXT NOT NULL UNIQUE,
	event_type         TEXT NOT NULL,
	ts                 TEXT NOT NULL,
	event_date         TEXT,
	symbol             TEXT,
	source             TEXT,
	headline           TEXT,
	summary            TEXT,
	url                TEXT,
	member_name        TEXT,
	member_bioguide_id TEXT,
	chamber            TEXT,
	party              TEXT,
	trade_type         TEXT,
	transaction_type   TEXT,
	amount_min         REAL,
	amount_max         REAL,
	impact_score       REAL NOT NULL DEFAULT 0,
	payload_json       TEXT
);
CREATE INDEX IF NOT EXISTS idx_events_sort ON events (coalesce(event_date, ts) DESC, id DESC);
CREATE INDEX IF NOT EXISTS idx_events_type ON events (event_type);
CREATE INDEX IF NOT EXISTS idx_events_symbol ON events (symbol);

CREATE TABLE IF NOT EXISTS filter_state (
	view       TEXT PRIMARY KEY,
	query      TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// SQLiteStore implements EventStore and the filter-state session cache
// backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath, applies
// the schema, and returns a ready-to-use store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("applying schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ---------------------------------------------------------------------------
// EventStore implementation
// ---------------------------------------------------------------------------

// InsertEvents writes a batch in one transaction. Rows whose external id
// is already stored are skipped; the count of newly inserted rows is
// returned.
func (s *SQLiteStore) InsertEvents(ctx context.Context, events []domain.RawEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO events (
			external_id, event_type, ts, event_date, symbol, source,
			headline, summary, url, member_name, member_bioguide_id,
			chamber, party, trade_type, transaction_type,
			amount_min, amount_max, impact_score, payload_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	inserted := 0
	for i := range events {
		ev := &events[i]
		if ev.ExternalID == "" {
			return inserted, fmt.Errorf("event %q missing external id", ev.Headline)
		}
		var eventDate any
		if ev.EventDate != nil && !ev.EventDate.IsZero() {
			eventDate = ev.EventDate.UTC().Format(time.RFC3339)
		}
		res, err := stmt.ExecContext(ctx,
			ev.ExternalID, string(ev.EventType), ev.TS.UTC().Format(time.RFC3339), eventDate,
			nullStr(ev.Symbol), nullStr(ev.Source), nullStr(ev.Headline), nullStr(ev.Summary),
			nullStr(ev.URL), nullStr(ev.MemberName), nullStr(ev.MemberBioguideID),
			nullStr(ev.Chamber), nullStr(ev.Party), nullStr(ev.TradeType), nullStr(ev.TransactionType),
			nullFloat(ev.AmountMin), nullFloat(ev.AmountMax), ev.ImpactScore,
			nullStr(string(ev.Payload)),
		)
		if err != nil {
			return inserted, fmt.Errorf("inserting event %s: %w", ev.ExternalID, err)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			inserted++
		}
	}
	return inserted, tx.Commit()
}

// QueryEvents returns one page ordered by sort timestamp descending, id
// descending. It fetches one row past the limit to decide whether a
// continuation cursor exists.
func (s *SQLiteStore) QueryEvents(ctx context.Context, q EventQuery) (*EventPage, error) {
	where, args, err := buildWhere(&q, true)
	if err != nil {
		return nil, err
	}
	limit := q.EffectiveLimit()

	sqlStr := "SELECT " + eventColumns + " FROM events" + where +
		" ORDER BY " + sortExpr + " DESC, id DESC LIMIT ?"
	args = append(args, limit+1)

	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.RawEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	page := &EventPage{}
	if events == nil {
		events = []domain.RawEvent{}
	}
	if len(events) > limit {
		last := events[limit-1]
		page.NextCursor = EncodeCursor(last.SortTime(), last.ID)
		events = events[:limit]
	}
	page.Items = events
	return page, nil
}

// CountEvents returns the full matching row count, ignoring cursor and
// limit.
func (s *SQLiteStore) CountEvents(ctx context.Context, q EventQuery) (int, error) {
	where, args, err := buildWhere(&q, false)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.db.QueryRowContext(ctx, "SELECT count(*) FROM events"+where, args...).Scan(&n)
	return n, err
}

// SuggestSymbols returns distinct non-empty tickers with the given prefix,
// ordered case-insensitively.
func (s *SQLiteStore) SuggestSymbols(ctx context.Context, prefix, tape string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}

	sqlStr := `SELECT DISTINCT symbol FROM events
		WHERE symbol IS NOT NULL AND length(trim(symbol)) > 0
		AND lower(symbol) LIKE ? ESCAPE '\'`
	args := []any{likePrefix(prefix)}
	switch strings.ToLower(strings.TrimSpace(tape)) {
	case "congress":
		sqlStr += " AND event_type = ?"
		args = append(args, string(domain.EventTypeCongress))
	case "insider":
		sqlStr += " AND event_type = ?"
		args = append(args, string(domain.EventTypeInsider))
	}
	sqlStr += " ORDER BY upper(symbol) LIMIT ?"
	args = append(args, clampSuggestLimit(limit))

	return s.queryStrings(ctx, sqlStr, args...)
}

// SuggestMembers returns distinct congress member names with the given
// prefix.
func (s *SQLiteStore) SuggestMembers(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, nil
	}
	return s.queryStrings(ctx, `SELECT DISTINCT member_name FROM events
		WHERE event_type = ? AND member_name IS NOT NULL
		AND length(trim(member_name)) > 0
		AND lower(member_name) LIKE ? ESCAPE '\'
		ORDER BY lower(member_name) LIMIT ?`,
		string(domain.EventTypeCongress), likePrefix(prefix), clampSuggestLimit(limit))
}

// SuggestRoles scans recent insider payloads for role and title strings
// with the given prefix. Roles live inside the opaque payload, so this is
// a bounded scan rather than an indexed lookup.
func (s *SQLiteStore) SuggestRoles(ctx context.Context, prefix string, limit int) ([]string, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix == "" {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT payload_json FROM events
		WHERE event_type = ? AND payload_json IS NOT NULL LIMIT 1000`,
		string(domain.EventTypeInsider))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	found := map[string]struct{}{}
	for rows.Next() {
		var payload sql.NullString
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(payload.String), &m); err != nil {
			continue
		}
		for _, key := range []string{"role", "title"} {
			value, _ := m[key].(string)
			value = strings.TrimSpace(value)
			if value == "" {
				continue
			}
			if strings.HasPrefix(strings.ToLower(value), prefix) {
				found[value] = struct{}{}
			}
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	items := make([]string, 0, len(found))
	for value := range found {
		items = append(items, value)
	}
	sort.Slice(items, func(i, j int) bool {
		return strings.ToLower(items[i]) < strings.ToLower(items[j])
	})
	if n := clampSuggestLimit(limit); len(items) > n {
		items = items[:n]
	}
	return items, nil
}

// ---------------------------------------------------------------------------
// Filter-state session cache
// ---------------------------------------------------------------------------

// SaveFilterState persists the encoded filter selection for a view.
func (s *SQLiteStore) SaveFilterState(view string, st feedstate.FilterState) error {
	_, err := s.db.Exec(`INSERT INTO filter_state (view, query, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(view) DO UPDATE SET query = excluded.query, updated_at = excluded.updated_at`,
		view, st.Values().Encode(), time.Now().UTC().Format(time.RFC3339))
	return err
}

// LoadFilterState restores the filter selection for a view. The second
// return is false when the view has no saved state.
func (s *SQLiteStore) LoadFilterState(view string) (feedstate.FilterState, bool, error) {
	var query string
	err := s.db.QueryRow(`SELECT query FROM filter_state WHERE view = ?`, view).Scan(&query)
	if err == sql.ErrNoRows {
		return feedstate.Default(), false, nil
	}
	if err != nil {
		return feedstate.Default(), false, err
	}
	values, err := url.ParseQuery(query)
	if err != nil {
		return feedstate.Default(), false, err
	}
	return feedstate.ParseValues(values), true, nil
}

// ---------------------------------------------------------------------------
// Query building
// ---------------------------------------------------------------------------

const eventColumns = `id, external_id, event_type, ts, event_date, symbol, source,
	headline, summary, url, member_name, member_bioguide_id, chamber, party,
	trade_type, transaction_type, amount_min, amount_max, impact_score, payload_json`

// buildWhere translates an EventQuery into a WHERE clause. withCursor
// controls whether the keyset continuation predicate is included; counts
// want the full result set.
func buildWhere(q *EventQuery, withCursor bool) (string, []any, error) {
	var clauses []string
	var args []any

	if len(q.Symbols) > 0 {
		clauses = append(clauses, "upper(symbol) IN ("+placeholders(len(q.Symbols))+")")
		for _, sym := range q.Symbols {
			args = append(args, strings.ToUpper(sym))
		}
	}

	if len(q.Types) > 0 {
		clauses = append(clauses, "event_type IN ("+placeholders(len(q.Types))+")")
		for _, t := range q.Types {
			args = append(args, t)
		}
	} else {
		switch q.Tape {
		case "congress":
			clauses = append(clauses, "event_type = ?")
			args = append(args, string(domain.EventTypeCongress))
		case "insider":
			clauses = append(clauses, "event_type = ?")
			args = append(args, string(domain.EventTypeInsider))
		}
	}

	if !q.Since.IsZero() {
		clauses = append(clauses, sortExpr+" >= ?")
		args = append(args, q.Since.UTC().Format(time.RFC3339))
	}
	if q.RecentDays > 0 {
		since := time.Now().UTC().AddDate(0, 0, -q.RecentDays)
		clauses = append(clauses, sortExpr+" >= ?")
		args = append(args, since.Format(time.RFC3339))
	}

	// A congress-only filter narrows the combined tape to congress rows,
	// and likewise for insider-only filters.
	congress := q.Member != "" || q.MemberID != "" || q.Chamber != "" || q.Party != ""
	insider := q.TransactionType != "" || q.Role != "" || q.Ownership != ""
	if congress {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(domain.EventTypeCongress))
	}
	if insider {
		clauses = append(clauses, "event_type = ?")
		args = append(args, string(domain.EventTypeInsider))
	}

	if q.Member != "" {
		clauses = append(clauses, `lower(member_name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(strings.TrimSpace(q.Member)))+"%")
	}
	if q.MemberID != "" {
		clauses = append(clauses, "lower(member_bioguide_id) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.MemberID)))
	}
	if q.Chamber != "" {
		clauses = append(clauses, "lower(chamber) = ?")
		args = append(args, strings.ToLower(q.Chamber))
	}
	if q.Party != "" {
		// "other" also matches rows with no recorded party.
		if strings.EqualFold(q.Party, "other") {
			clauses = append(clauses, "(party IS NULL OR lower(party) = ?)")
			args = append(args, "other")
		} else {
			clauses = append(clauses, "lower(party) = ?")
			args = append(args, strings.ToLower(q.Party))
		}
	}

	if q.TradeType != "" {
		clause, tradeArgs, err := tradeTypeClause(q)
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, tradeArgs...)
	}

	if q.TransactionType != "" {
		clauses = append(clauses, "lower(transaction_type) = ?")
		args = append(args, strings.ToLower(strings.TrimSpace(q.TransactionType)))
	}
	if q.Role != "" {
		clauses = append(clauses, "lower(payload_json) LIKE ?")
		args = append(args, `%"role"%`+strings.ToLower(strings.TrimSpace(q.Role))+"%")
	}
	if q.Ownership != "" {
		clauses = append(clauses, "lower(payload_json) LIKE ?")
		args = append(args, `%"ownership"%`+strings.ToLower(strings.TrimSpace(q.Ownership))+"%")
	}
	if q.MinAmount != nil {
		clauses = append(clauses, "amount_max >= ?")
		args = append(args, *q.MinAmount)
	}
	if q.MaxAmount != nil {
		clauses = append(clauses, "amount_min <= ?")
		args = append(args, *q.MaxAmount)
	}

	if withCursor && q.Cursor != "" {
		ts, id, err := ParseCursor(q.Cursor)
		if err != nil {
			return "", nil, err
		}
		tsStr := ts.Format(time.RFC3339)
		clauses = append(clauses, "("+sortExpr+" < ? OR ("+sortExpr+" = ? AND id < ?))")
		args = append(args, tsStr, tsStr, id)
	}

	if len(clauses) == 0 {
		return "", args, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

// tradeTypeClause maps the four accepted trade_type values onto stored
// rows. Congress rows store the canonical purchase/sale; insider rows keep
// the coded form, so purchase also matches p-purchase and sale matches
// s-sale. On the combined tape both mappings apply per row type.
func tradeTypeClause(q *EventQuery) (string, []any, error) {
	trade := strings.ToLower(strings.TrimSpace(q.TradeType))
	lookup := map[string][]string{
		"purchase":   {"purchase", "p-purchase"},
		"sale":       {"sale", "s-sale"},
		"p-purchase": {"p-purchase"},
		"s-sale":     {"s-sale"},
	}
	insiderValues, ok := lookup[trade]
	if !ok {
		return "", nil, fmt.Errorf("invalid trade_type %q", q.TradeType)
	}
	canonical := "sale"
	if trade == "purchase" || trade == "p-purchase" {
		canonical = "purchase"
	}

	switch q.Scope() {
	case "congress":
		return "lower(trade_type) = ?", []any{canonical}, nil
	case "insider":
		args := make([]any, len(insiderValues))
		for i, v := range insiderValues {
			args[i] = v
		}
		return "lower(trade_type) IN (" + placeholders(len(insiderValues)) + ")", args, nil
	}

	args := []any{string(domain.EventTypeCongress), canonical, string(domain.EventTypeInsider)}
	for _, v := range insiderValues {
		args = append(args, v)
	}
	clause := "((event_type = ? AND lower(trade_type) = ?) OR " +
		"(event_type = ? AND lower(trade_type) IN (" + placeholders(len(insiderValues)) + ")))"
	return clause, args, nil
}

// ---------------------------------------------------------------------------
// Row scanning and small helpers
// ---------------------------------------------------------------------------

func scanEvent(rows *sql.Rows) (*domain.RawEvent, error) {
	var (
		ev                         domain.RawEvent
		tsStr                      string
		eventDate, symbol, source  sql.NullString
		headline, summary, urlStr  sql.NullString
		memberName, memberID       sql.NullString
		chamber, party             sql.NullString
		tradeType, transactionType sql.NullString
		amountMin, amountMax       sql.NullFloat64
		payload                    sql.NullString
	)
	err := rows.Scan(&ev.ID, &ev.ExternalID, &ev.EventType, &tsStr, &eventDate,
		&symbol, &source, &headline, &summary, &urlStr, &memberName, &memberID,
		&chamber, &party, &tradeType, &transactionType,
		&amountMin, &amountMax, &ev.ImpactScore, &payload)
	if err != nil {
		return nil, err
	}

	ev.TS, err = time.Parse(time.RFC3339, tsStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ts for event %d: %w", ev.ID, err)
	}
	if eventDate.Valid {
		if t, err := time.Parse(time.RFC3339, eventDate.String); err == nil {
			ev.EventDate = &t
		}
	}
	ev.Symbol = symbol.String
	ev.Source = source.String
	ev.Headline = headline.String
	ev.Summary = summary.String
	ev.URL = urlStr.String
	ev.MemberName = memberName.String
	ev.MemberBioguideID = memberID.String
	ev.Chamber = chamber.String
	ev.Party = party.String
	ev.TradeType = tradeType.String
	ev.TransactionType = transactionType.String
	if amountMin.Valid {
		v := amountMin.Float64
		ev.AmountMin = &v
	}
	if amountMax.Valid {
		v := amountMax.Float64
		ev.AmountMax = &v
	}
	if payload.Valid && payload.String != "" {
		ev.Payload = json.RawMessage(payload.String)
	}
	return &ev, nil
}

func (s *SQLiteStore) queryStrings(ctx context.Context, sqlStr string, args ...any) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []string
	for rows.Next() {
		var value sql.NullString
		if err := rows.Scan(&value); err != nil {
			return nil, err
		}
		if cleaned := strings.TrimSpace(value.String); cleaned != "" {
			items = append(items, cleaned)
		}
	}
	return items, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func likePrefix(prefix string) string {
	return escapeLike(strings.ToLower(prefix)) + "%"
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func clampSuggestLimit(limit int) int {
	switch {
	case limit <= 0:
		return 10
	case limit > MaxSuggestLimit:
		return MaxSuggestLimit
	}
	return limit
}

func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
