package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"tapefeed/internal/domain"
	"tapefeed/internal/news"
	"tapefeed/internal/store"
)

// Archiver lands a raw batch outside the query path. Implemented by
// store.ArchiveStore; nil disables archiving.
type Archiver interface {
	WriteEvents(ctx context.Context, events []domain.RawEvent) error
}

// Options bounds one ingest run.
type Options struct {
	Days    int // recency cutoff; filings older than this are skipped
	Pages   int // pages per feed
	PerPage int
}

// Stats summarizes one ingest run.
type Stats struct {
	Scanned  int
	Inserted int
	Skipped  int
}

// Runner executes ingest runs against the upstream client and the stores.
type Runner struct {
	client  *Client
	events  store.EventStore
	archive Archiver
	log     *slog.Logger
	now     func() time.Time
}

// NewRunner wires an ingest runner. archive may be nil.
func NewRunner(client *Client, events store.EventStore, archive Archiver, log *slog.Logger) *Runner {
	return &Runner{
		client:  client,
		events:  events,
		archive: archive,
		log:     log,
		now:     time.Now,
	}
}

// Run ingests every feed: house and senate filings, then insider filings.
// Feeds are independent; a failing feed aborts the run after the feeds
// before it have already landed.
func (r *Runner) Run(ctx context.Context, opts Options) (*Stats, error) {
	stats := &Stats{}

	feeds := []struct {
		name      string
		fetch     func(ctx context.Context, page, limit int) ([]Row, error)
		normalize func(row Row, now time.Time) (*domain.RawEvent, bool)
	}{
		{"house", r.client.FetchHouseTrades, func(row Row, now time.Time) (*domain.RawEvent, bool) {
			return NormalizeCongressRow(row, "house", now)
		}},
		{"senate", r.client.FetchSenateTrades, func(row Row, now time.Time) (*domain.RawEvent, bool) {
			return NormalizeCongressRow(row, "senate", now)
		}},
		{"insider", r.client.FetchInsiderTrades, NormalizeInsiderRow},
	}

	for _, feed := range feeds {
		if err := r.runFeed(ctx, feed.name, feed.fetch, feed.normalize, opts, stats); err != nil {
			return stats, fmt.Errorf("ingesting %s feed: %w", feed.name, err)
		}
	}
	return stats, nil
}

// RunNews gathers headlines for the given symbols over the last week and
// lands them as news events. A symbol yielding nothing is not an error;
// the feed simply carries no news for it.
func (r *Runner) RunNews(ctx context.Context, gatherer *news.Gatherer, symbols []string) (*Stats, error) {
	stats := &Stats{}
	end := r.now().UTC()
	start := end.AddDate(0, 0, -7)

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return stats, err
		}
		articles := gatherer.Fetch(symbol, start, end)
		if len(articles) == 0 {
			continue
		}

		batch := make([]domain.RawEvent, 0, len(articles))
		for _, a := range articles {
			stats.Scanned++
			batch = append(batch, *news.ToRawEvent(symbol, a))
		}

		inserted, err := r.events.InsertEvents(ctx, batch)
		if err != nil {
			return stats, fmt.Errorf("ingesting news for %s: %w", symbol, err)
		}
		stats.Inserted += inserted
		stats.Skipped += len(batch) - inserted

		if r.archive != nil {
			if err := r.archive.WriteEvents(ctx, batch); err != nil {
				return stats, err
			}
		}

		r.log.Info("ingested news", "symbol", symbol, "articles", len(articles), "inserted", inserted)
	}
	return stats, nil
}

func (r *Runner) runFeed(
	ctx context.Context,
	name string,
	fetch func(ctx context.Context, page, limit int) ([]Row, error),
	normalize func(row Row, now time.Time) (*domain.RawEvent, bool),
	opts Options,
	stats *Stats,
) error {
	now := r.now().UTC()
	cutoff := now.AddDate(0, 0, -opts.Days)

	for page := 0; page < opts.Pages; page++ {
		rows, err := fetch(ctx, page, opts.PerPage)
		if err != nil {
			return err
		}
		if len(rows) == 0 {
			break
		}

		batch := make([]domain.RawEvent, 0, len(rows))
		for _, row := range rows {
			stats.Scanned++
			ev, ok := normalize(row, now)
			if !ok {
				stats.Skipped++
				continue
			}
			if opts.Days > 0 && ReferenceDate(ev).Before(cutoff) {
				stats.Skipped++
				continue
			}
			batch = append(batch, *ev)
		}
		if len(batch) == 0 {
			continue
		}

		inserted, err := r.events.InsertEvents(ctx, batch)
		if err != nil {
			return err
		}
		stats.Inserted += inserted
		stats.Skipped += len(batch) - inserted

		if r.archive != nil {
			if err := r.archive.WriteEvents(ctx, batch); err != nil {
				return err
			}
		}

		r.log.Info("ingested page",
			"feed", name, "page", page,
			"rows", len(rows), "inserted", inserted)
	}
	return nil
}
