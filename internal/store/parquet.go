package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/parquet-go/parquet-go"

	"tapefeed/internal/domain"
)

// ArchiveStore persists daily snapshots of raw events as Parquet files on
// disk. Archives are the replay source for rebuilding the database; the
// SQLite store stays the query path.
type ArchiveStore struct {
	DataDir string
}

// NewArchiveStore creates an ArchiveStore rooted at the given data directory.
func NewArchiveStore(dataDir string) *ArchiveStore {
	return &ArchiveStore{DataDir: dataDir}
}

// ---------------------------------------------------------------------------
// Parquet record type (on-disk schema)
// ---------------------------------------------------------------------------

// EventRecord is the Parquet schema for archived raw events.
type EventRecord struct {
	ExternalID       string   `parquet:"external_id"`
	EventType        string   `parquet:"event_type"`
	TS               int64    `parquet:"ts,timestamp(millisecond)"` // Unix ms
	EventDate        *int64   `parquet:"event_date,optional,timestamp(millisecond)"`
	Symbol           string   `parquet:"symbol"`
	Source           string   `parquet:"source"`
	Headline         string   `parquet:"headline"`
	Summary          string   `parquet:"summary"`
	URL              string   `parquet:"url"`
	MemberName       string   `parquet:"member_name"`
	MemberBioguideID string   `parquet:"member_bioguide_id"`
	Chamber          string   `parquet:"chamber"`
	Party            string   `parquet:"party"`
	TradeType        string   `parquet:"trade_type"`
	TransactionType  string   `parquet:"transaction_type"`
	AmountMin        *float64 `parquet:"amount_min,optional"`
	AmountMax        *float64 `parquet:"amount_max,optional"`
	ImpactScore      float64  `parquet:"impact_score"`
	PayloadJSON      string   `parquet:"payload_json"`
}

// ---------------------------------------------------------------------------
// Archive read/write
// ---------------------------------------------------------------------------

// WriteEvents archives events into daily files keyed by ingest timestamp.
// Each day's file is merged with any existing records, deduplicated by
// external id, so re-archiving a day is idempotent.
func (s *ArchiveStore) WriteEvents(_ context.Context, events []domain.RawEvent) error {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[string][]EventRecord)
	for i := range events {
		ev := &events[i]
		date := ev.TS.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], toEventRecord(ev))
	}

	for date, records := range groups {
		path := s.dayPath(date)

		existing, _ := readParquetFile[EventRecord](path)
		merged := mergeEventRecords(existing, records)

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("archiving events for %s: %w", date, err)
		}
	}
	return nil
}

// ReadDay returns the archived events for one calendar day, oldest first.
// A missing archive yields an empty result, not an error.
func (s *ArchiveStore) ReadDay(_ context.Context, day time.Time) ([]domain.RawEvent, error) {
	path := s.dayPath(day.UTC().Format("2006-01-02"))
	records, err := readParquetFile[EventRecord](path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	events := make([]domain.RawEvent, 0, len(records))
	for i := range records {
		events = append(events, fromEventRecord(&records[i]))
	}
	return events, nil
}

// ListDays returns the archived dates, oldest first.
func (s *ArchiveStore) ListDays(_ context.Context) ([]string, error) {
	dir := filepath.Join(s.DataDir, "events")
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var days []string
	for _, e := range entries {
		if name, ok := strings.CutSuffix(e.Name(), ".parquet"); ok && !e.IsDir() {
			days = append(days, name)
		}
	}
	sort.Strings(days)
	return days, nil
}

// ---------------------------------------------------------------------------
// Record conversion and helpers
// ---------------------------------------------------------------------------

func toEventRecord(ev *domain.RawEvent) EventRecord {
	r := EventRecord{
		ExternalID:       ev.ExternalID,
		EventType:        string(ev.EventType),
		TS:               ev.TS.UnixMilli(),
		Symbol:           ev.Symbol,
		Source:           ev.Source,
		Headline:         ev.Headline,
		Summary:          ev.Summary,
		URL:              ev.URL,
		MemberName:       ev.MemberName,
		MemberBioguideID: ev.MemberBioguideID,
		Chamber:          ev.Chamber,
		Party:            ev.Party,
		TradeType:        ev.TradeType,
		TransactionType:  ev.TransactionType,
		AmountMin:        ev.AmountMin,
		AmountMax:        ev.AmountMax,
		ImpactScore:      ev.ImpactScore,
		PayloadJSON:      string(ev.Payload),
	}
	if ev.EventDate != nil && !ev.EventDate.IsZero() {
		ms := ev.EventDate.UnixMilli()
		r.EventDate = &ms
	}
	return r
}

func fromEventRecord(r *EventRecord) domain.RawEvent {
	ev := domain.RawEvent{
		ExternalID:       r.ExternalID,
		EventType:        domain.EventType(r.EventType),
		TS:               time.UnixMilli(r.TS).UTC(),
		Symbol:           r.Symbol,
		Source:           r.Source,
		Headline:         r.Headline,
		Summary:          r.Summary,
		URL:              r.URL,
		MemberName:       r.MemberName,
		MemberBioguideID: r.MemberBioguideID,
		Chamber:          r.Chamber,
		Party:            r.Party,
		TradeType:        r.TradeType,
		TransactionType:  r.TransactionType,
		AmountMin:        r.AmountMin,
		AmountMax:        r.AmountMax,
		ImpactScore:      r.ImpactScore,
	}
	if r.EventDate != nil {
		t := time.UnixMilli(*r.EventDate).UTC()
		ev.EventDate = &t
	}
	if r.PayloadJSON != "" {
		ev.Payload = []byte(r.PayloadJSON)
	}
	return ev
}

// dayPath returns the filesystem path for a daily archive.
// Layout: <dataDir>/events/<YYYY-MM-DD>.parquet
func (s *ArchiveStore) dayPath(date string) string {
	return filepath.Join(s.DataDir, "events", date+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// mergeEventRecords deduplicates by external id, preferring new records
// over existing ones. Results are sorted by timestamp, then external id
// for a stable layout.
func mergeEventRecords(existing, incoming []EventRecord) []EventRecord {
	seen := make(map[string]EventRecord, len(existing)+len(incoming))
	for _, r := range existing {
		seen[r.ExternalID] = r
	}
	for _, r := range incoming {
		seen[r.ExternalID] = r
	}

	merged := make([]EventRecord, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].TS != merged[j].TS {
			return merged[i].TS < merged[j].TS
		}
		return merged[i].ExternalID < merged[j].ExternalID
	})
	return merged
}
