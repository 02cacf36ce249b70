package feed

import (
	"encoding/json"
	"testing"
	"time"

	"tapefeed/internal/domain"
)

func TestMapCopiesIdentifyingFields(t *testing.T) {
	ts := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	ev := domain.RawEvent{
		ID:         77,
		EventType:  domain.EventTypeCongress,
		TS:         ts,
		Symbol:     "$nvda",
		Source:     "house",
		URL:        "https://example.com/filing/77",
		MemberName: "Jane Doe",
		Chamber:    "house",
		Party:      "Independent",
		TradeType:  "purchase",
		Payload:    json.RawMessage(`{}`),
	}

	item, ok := Map(&ev)
	if !ok {
		t.Fatal("Map dropped a congress event")
	}
	if item.ID != 77 || item.Symbol != "NVDA" || item.Source != "house" {
		t.Errorf("identifying fields not copied: %+v", item)
	}
	if item.URL != ev.URL || item.MemberName != ev.MemberName {
		t.Errorf("url/member not copied: %+v", item)
	}
	if !item.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", item.Timestamp, ts)
	}
	if item.Direction != domain.DirectionPurchase {
		t.Errorf("Direction = %q, want purchase", item.Direction)
	}
}

func TestMapDropsExcludedInsider(t *testing.T) {
	ev := domain.RawEvent{
		ID:        1,
		EventType: domain.EventTypeInsider,
		Payload:   json.RawMessage(`{"transactionType":"A-Award"}`),
	}
	if item, ok := Map(&ev); ok {
		t.Errorf("Map(award) = %+v, want dropped", item)
	}
}

func TestMapAllSortsNewestFirst(t *testing.T) {
	t1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	t2 := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	events := []domain.RawEvent{
		{ID: 1, EventType: domain.EventTypeCongress, TS: t1, TradeType: "sale"},
		{ID: 3, EventType: domain.EventTypeInsider, TS: t2, Payload: json.RawMessage(`{"transactionType":"A-Award"}`)},
		{ID: 2, EventType: domain.EventTypeCongress, TS: t2, TradeType: "purchase"},
		{ID: 4, EventType: domain.EventTypeCongress, TS: t2, TradeType: "purchase"},
	}

	items := MapAll(events)
	if len(items) != 3 {
		t.Fatalf("MapAll returned %d items, want 3 (award dropped)", len(items))
	}
	// t2 events first, higher id breaking the tie, then t1.
	if items[0].ID != 4 || items[1].ID != 2 || items[2].ID != 1 {
		t.Errorf("order = [%d %d %d], want [4 2 1]", items[0].ID, items[1].ID, items[2].ID)
	}
}
