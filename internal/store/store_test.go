package store

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"tapefeed/internal/domain"
	"tapefeed/internal/feedstate"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func fv(v float64) *float64 { return &v }

func tp(t time.Time) *time.Time { return &t }

func seedEvents(t *testing.T, s *SQLiteStore) {
	t.Helper()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	events := []domain.RawEvent{
		{
			ExternalID: "c1", EventType: domain.EventTypeCongress,
			TS: base, EventDate: tp(base.AddDate(0, 0, 4)),
			Symbol: "NVDA", Source: "house", MemberName: "Jane Doe",
			MemberBioguideID: "D000001", Chamber: "house", Party: "Democrat",
			TradeType: "purchase", AmountMin: fv(100001), AmountMax: fv(250000),
			Payload: json.RawMessage(`{"trade_date":"2024-06-05"}`),
		},
		{
			ExternalID: "c2", EventType: domain.EventTypeCongress,
			TS: base.Add(time.Hour), EventDate: tp(base.AddDate(0, 0, 2)),
			Symbol: "AAPL", Source: "senate", MemberName: "John Roe",
			Chamber: "senate", TradeType: "sale",
			AmountMin: fv(1001), AmountMax: fv(15000),
		},
		{
			ExternalID: "i1", EventType: domain.EventTypeInsider,
			TS: base.AddDate(0, 0, 3),
			Symbol: "NVDA", Source: "form4", TradeType: "s-sale",
			TransactionType: "S-Sale", AmountMin: fv(500000), AmountMax: fv(500000),
			Payload: json.RawMessage(`{"role":"CFO","ownership":"direct"}`),
		},
		{
			ExternalID: "i2", EventType: domain.EventTypeInsider,
			TS: base.AddDate(0, 0, 1),
			Symbol: "MSFT", Source: "form4", TradeType: "p-purchase",
			TransactionType: "P-Purchase",
			Payload:         json.RawMessage(`{"role":"Director"}`),
		},
	}
	n, err := s.InsertEvents(context.Background(), events)
	if err != nil {
		t.Fatalf("InsertEvents: %v", err)
	}
	if n != len(events) {
		t.Fatalf("InsertEvents inserted %d rows, want %d", n, len(events))
	}
}

func ids(items []domain.RawEvent) []string {
	out := make([]string, len(items))
	for i := range items {
		out[i] = items[i].ExternalID
	}
	return out
}

func TestInsertEventsDedupesOnExternalID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ev := domain.RawEvent{
		ExternalID: "dup-1", EventType: domain.EventTypeCongress,
		TS: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Symbol: "TSLA",
	}
	if n, err := s.InsertEvents(ctx, []domain.RawEvent{ev}); err != nil || n != 1 {
		t.Fatalf("first insert: n=%d err=%v", n, err)
	}
	if n, err := s.InsertEvents(ctx, []domain.RawEvent{ev}); err != nil || n != 0 {
		t.Fatalf("re-insert: n=%d err=%v, want 0 inserted", n, err)
	}
	total, err := s.CountEvents(ctx, EventQuery{})
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if total != 1 {
		t.Errorf("CountEvents = %d, want 1", total)
	}
}

func TestQueryEventsOrderAndPagination(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	// Sort key is coalesce(event_date, ts) desc, id desc:
	// c1 = Jun 5, i1 = Jun 4, c2 = Jun 3, i2 = Jun 2.
	page, err := s.QueryEvents(ctx, EventQuery{Limit: 2})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 2 || got[0] != "c1" || got[1] != "i1" {
		t.Fatalf("first page = %v, want [c1 i1]", got)
	}
	if page.NextCursor == "" {
		t.Fatal("first page has no continuation cursor")
	}

	// The second page continues without overlap.
	page2, err := s.QueryEvents(ctx, EventQuery{Limit: 2, Cursor: page.NextCursor})
	if err != nil {
		t.Fatalf("QueryEvents (page 2): %v", err)
	}
	if got := ids(page2.Items); len(got) != 2 || got[0] != "c2" || got[1] != "i2" {
		t.Fatalf("second page = %v, want [c2 i2]", got)
	}
	if page2.NextCursor != "" {
		t.Errorf("exhausted result set still has cursor %q", page2.NextCursor)
	}
}

func TestCursorRoundTrip(t *testing.T) {
	ts := time.Date(2024, 6, 5, 12, 0, 0, 0, time.UTC)
	token := EncodeCursor(ts, 917)
	if token != "2024-06-05T12:00:00Z|917" {
		t.Errorf("EncodeCursor = %q", token)
	}
	gotTS, gotID, err := ParseCursor(token)
	if err != nil {
		t.Fatalf("ParseCursor: %v", err)
	}
	if !gotTS.Equal(ts) || gotID != 917 {
		t.Errorf("ParseCursor = (%v, %d), want (%v, 917)", gotTS, gotID, ts)
	}

	for _, bad := range []string{"", "no-pipe", "2024-06-05T12:00:00Z|NaN", "junk|1"} {
		if _, _, err := ParseCursor(bad); err == nil {
			t.Errorf("ParseCursor(%q) accepted invalid token", bad)
		}
	}
}

func TestCongressFiltersForceCongressScope(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	// A member filter on the combined tape must only match congress rows.
	page, err := s.QueryEvents(ctx, EventQuery{Member: "doe"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "c1" {
		t.Errorf("member filter matched %v, want [c1]", got)
	}

	// Likewise a role filter forces the insider scope.
	page, err = s.QueryEvents(ctx, EventQuery{Role: "cfo"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "i1" {
		t.Errorf("role filter matched %v, want [i1]", got)
	}
}

func TestPartyOtherMatchesMissingParty(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)

	// c2 has no recorded party.
	page, err := s.QueryEvents(context.Background(), EventQuery{Party: "other"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "c2" {
		t.Errorf("party=other matched %v, want [c2]", got)
	}
}

func TestTradeTypeMappingOnCombinedTape(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	// On the combined tape, sale matches the congress canonical form and
	// the insider coded form.
	page, err := s.QueryEvents(ctx, EventQuery{TradeType: "sale"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 2 || got[0] != "i1" || got[1] != "c2" {
		t.Errorf("trade_type=sale matched %v, want [i1 c2]", got)
	}

	// The coded form stays insider-only.
	page, err = s.QueryEvents(ctx, EventQuery{TradeType: "s-sale"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "i1" {
		t.Errorf("trade_type=s-sale matched %v, want [i1]", got)
	}

	// Congress scope collapses the coded form to the canonical value.
	page, err = s.QueryEvents(ctx, EventQuery{Tape: "congress", TradeType: "s-sale"})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "c2" {
		t.Errorf("congress trade_type=s-sale matched %v, want [c2]", got)
	}

	if _, err := s.QueryEvents(ctx, EventQuery{TradeType: "bogus"}); err == nil {
		t.Error("invalid trade_type accepted")
	}
}

func TestAmountFilters(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	// min_amount compares against the range ceiling.
	page, err := s.QueryEvents(ctx, EventQuery{MinAmount: fv(250000)})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 2 || got[0] != "c1" || got[1] != "i1" {
		t.Errorf("min_amount matched %v, want [c1 i1]", got)
	}

	// max_amount compares against the range floor.
	page, err = s.QueryEvents(ctx, EventQuery{MaxAmount: fv(2000)})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 1 || got[0] != "c2" {
		t.Errorf("max_amount matched %v, want [c2]", got)
	}
}

func TestSymbolFilterIsCaseInsensitive(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)

	page, err := s.QueryEvents(context.Background(), EventQuery{Symbols: []string{"nvda"}})
	if err != nil {
		t.Fatalf("QueryEvents: %v", err)
	}
	if got := ids(page.Items); len(got) != 2 || got[0] != "c1" || got[1] != "i1" {
		t.Errorf("symbol filter matched %v, want [c1 i1]", got)
	}
}

func TestSuggestions(t *testing.T) {
	s := newTestStore(t)
	seedEvents(t, s)
	ctx := context.Background()

	// Empty prefix is suppressed, no query issued.
	if items, err := s.SuggestSymbols(ctx, "  ", "", 10); err != nil || items != nil {
		t.Errorf("SuggestSymbols(empty) = (%v, %v), want (nil, nil)", items, err)
	}

	items, err := s.SuggestSymbols(ctx, "n", "", 10)
	if err != nil {
		t.Fatalf("SuggestSymbols: %v", err)
	}
	if len(items) != 1 || items[0] != "NVDA" {
		t.Errorf("SuggestSymbols(n) = %v, want [NVDA]", items)
	}

	// Tape restriction.
	items, err = s.SuggestSymbols(ctx, "m", "congress", 10)
	if err != nil {
		t.Fatalf("SuggestSymbols: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("SuggestSymbols(m, congress) = %v, want none (MSFT is insider)", items)
	}

	items, err = s.SuggestMembers(ctx, "ja", 10)
	if err != nil {
		t.Fatalf("SuggestMembers: %v", err)
	}
	if len(items) != 1 || items[0] != "Jane Doe" {
		t.Errorf("SuggestMembers(ja) = %v, want [Jane Doe]", items)
	}

	items, err = s.SuggestRoles(ctx, "c", 10)
	if err != nil {
		t.Fatalf("SuggestRoles: %v", err)
	}
	if len(items) != 1 || items[0] != "CFO" {
		t.Errorf("SuggestRoles(c) = %v, want [CFO]", items)
	}
}

func TestFilterStateSaveLoad(t *testing.T) {
	s := newTestStore(t)

	if _, ok, err := s.LoadFilterState("feed"); err != nil || ok {
		t.Fatalf("LoadFilterState(empty) = ok=%v err=%v, want miss", ok, err)
	}

	st := feedstate.FilterState{Mode: feedstate.ModeCongress, Symbol: "NVDA", MinAmount: "250000"}
	if err := s.SaveFilterState("feed", st); err != nil {
		t.Fatalf("SaveFilterState: %v", err)
	}
	got, ok, err := s.LoadFilterState("feed")
	if err != nil || !ok {
		t.Fatalf("LoadFilterState = ok=%v err=%v", ok, err)
	}
	if got != st {
		t.Errorf("LoadFilterState = %+v, want %+v", got, st)
	}

	// Saving again overwrites.
	st2 := feedstate.Default()
	if err := s.SaveFilterState("feed", st2); err != nil {
		t.Fatalf("SaveFilterState (overwrite): %v", err)
	}
	got, _, _ = s.LoadFilterState("feed")
	if got != st2 {
		t.Errorf("LoadFilterState after overwrite = %+v, want defaults", got)
	}
}

func TestArchiveWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	as := NewArchiveStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)
	events := []domain.RawEvent{
		{
			ExternalID: "a1", EventType: domain.EventTypeCongress,
			TS: day, EventDate: tp(day.AddDate(0, 0, -3)),
			Symbol: "NVDA", MemberName: "Jane Doe", TradeType: "purchase",
			AmountMin: fv(1001), AmountMax: fv(15000),
			Payload:   json.RawMessage(`{"trade_date":"2024-05-29"}`),
		},
		{
			ExternalID: "a2", EventType: domain.EventTypeInsider,
			TS: day.Add(time.Hour), Symbol: "MSFT", TradeType: "p-purchase",
		},
	}
	if err := as.WriteEvents(ctx, events); err != nil {
		t.Fatalf("WriteEvents: %v", err)
	}

	got, err := as.ReadDay(ctx, day)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadDay returned %d events, want 2", len(got))
	}
	if got[0].ExternalID != "a1" || got[1].ExternalID != "a2" {
		t.Errorf("order = [%s %s], want [a1 a2]", got[0].ExternalID, got[1].ExternalID)
	}
	if got[0].EventDate == nil || !got[0].EventDate.Equal(day.AddDate(0, 0, -3)) {
		t.Errorf("EventDate not preserved: %v", got[0].EventDate)
	}
	if got[0].AmountMax == nil || *got[0].AmountMax != 15000 {
		t.Errorf("AmountMax not preserved: %v", got[0].AmountMax)
	}
	if string(got[0].Payload) != `{"trade_date":"2024-05-29"}` {
		t.Errorf("payload not preserved: %s", got[0].Payload)
	}
	if got[1].AmountMin != nil || got[1].EventDate != nil {
		t.Errorf("absent optionals came back set: %+v", got[1])
	}
}

func TestArchiveMergeIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	as := NewArchiveStore(dir)
	ctx := context.Background()

	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	ev := domain.RawEvent{ExternalID: "m1", EventType: domain.EventTypeCongress, TS: day, Symbol: "TSLA"}
	if err := as.WriteEvents(ctx, []domain.RawEvent{ev}); err != nil {
		t.Fatalf("WriteEvents (first): %v", err)
	}

	// Re-archiving the same day merges, it does not duplicate.
	second := domain.RawEvent{ExternalID: "m2", EventType: domain.EventTypeCongress, TS: day.Add(time.Minute), Symbol: "TSLA"}
	if err := as.WriteEvents(ctx, []domain.RawEvent{ev, second}); err != nil {
		t.Fatalf("WriteEvents (second): %v", err)
	}

	got, err := as.ReadDay(ctx, day)
	if err != nil {
		t.Fatalf("ReadDay: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("ReadDay returned %d events after merge, want 2", len(got))
	}

	days, err := as.ListDays(ctx)
	if err != nil {
		t.Fatalf("ListDays: %v", err)
	}
	if len(days) != 1 || days[0] != "2024-03-01" {
		t.Errorf("ListDays = %v, want [2024-03-01]", days)
	}
}

func TestReadDayMissingArchive(t *testing.T) {
	as := NewArchiveStore(t.TempDir())
	got, err := as.ReadDay(context.Background(), time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ReadDay on missing archive: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("ReadDay = %v, want empty", got)
	}
}
