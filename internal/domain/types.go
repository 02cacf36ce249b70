// Package domain defines the canonical types shared across the tape:
// raw events as served by the events API, their source payloads, and the
// classified display model consumed by the feed client.
package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// EventType discriminates the regulatory source of a raw event.
type EventType string

const (
	// EventTypeCongress is a legislative-branch holdings disclosure.
	EventTypeCongress EventType = "congress_trade"
	// EventTypeInsider is a corporate-insider ownership filing.
	EventTypeInsider EventType = "insider_trade"
	// EventTypeNews is a headline gathered for a symbol on the tape.
	EventTypeNews EventType = "news"
)

// Direction is the purchase/sale classification of a transaction.
type Direction string

const (
	DirectionPurchase Direction = "purchase"
	DirectionSale     Direction = "sale"
	DirectionUnknown  Direction = "unknown"
)

// RawEvent is the source-of-truth record as it arrives from the events API.
// It is read-only to everything downstream; classification is recomputed
// from it on every render and never written back.
type RawEvent struct {
	ID               int64           `json:"id"`
	ExternalID       string          `json:"external_id,omitempty"`
	EventType        EventType       `json:"event_type"`
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

// SortTime is the ordering key for the tape: the trade's own date when the
// source disclosed one, falling back to the ingest timestamp.
func (e *RawEvent) SortTime() time.Time {
	if e.EventDate != nil && !e.EventDate.IsZero() {
		return *e.EventDate
	}
	return e.TS
}

// PayloadMap decodes the opaque payload into a generic map. Payloads arrive
// either as a JSON object or as a JSON string containing encoded JSON (the
// double-encoding happens upstream); both shapes decode to the same map.
// Malformed payloads yield an empty map, never an error.
func (e *RawEvent) PayloadMap() map[string]any {
	raw := e.Payload
	if len(raw) == 0 {
		return map[string]any{}
	}

	// Unwrap a JSON-encoded string payload first.
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		raw = []byte(asString)
	}

	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// FeedItem is the canonical display record: identifying fields copied
// through from the raw event plus the derived classification.
type FeedItem struct {
	ID         int64
	EventType  EventType
	Timestamp  time.Time
	Symbol     string
	Source     string
	URL        string
	Headline   string
	MemberName string
	Chamber    string
	Party      string

	Direction     Direction
	CountedValue  float64
	HasValue      bool
	Shares        float64
	HasShares     bool
	Price         float64
	HasPrice      bool
	RoleLabel     string
	SecurityClass string
	LagDays       int
	HasLag        bool
}

// CanonicalSymbol normalizes a ticker: trimmed, uppercased, leading "$"
// markers stripped. Returns "" when nothing usable remains.
func CanonicalSymbol(raw string) string {
	s := strings.ToUpper(strings.TrimSpace(raw))
	for strings.HasPrefix(s, "$") {
		s = strings.TrimSpace(strings.TrimPrefix(s, "$"))
	}
	return s
}
