// Package feed composes classifier output into the canonical display
// records consumed by the feed client.
package feed

import (
	"sort"

	"tapefeed/internal/classify"
	"tapefeed/internal/domain"
)

// Map converts one raw event into its display record. The second return is
// false when the event has no place on the feed: insider records the
// classifier could not resolve to a direction are silently dropped.
// Identifying fields are copied through unconditionally.
func Map(ev *domain.RawEvent) (*domain.FeedItem, bool) {
	c := classify.Classify(ev)
	if c == nil {
		return nil, false
	}

	item := &domain.FeedItem{
		ID:         ev.ID,
		EventType:  ev.EventType,
		Timestamp:  ev.SortTime(),
		Symbol:     domain.CanonicalSymbol(ev.Symbol),
		Source:     ev.Source,
		URL:        ev.URL,
		Headline:   ev.Headline,
		MemberName: ev.MemberName,
		Chamber:    ev.Chamber,
		Party:      ev.Party,

		Direction:     c.Direction,
		CountedValue:  c.CountedValue,
		HasValue:      c.HasValue,
		Shares:        c.Shares,
		HasShares:     c.HasShares,
		Price:         c.Price,
		HasPrice:      c.HasPrice,
		RoleLabel:     c.RoleLabel,
		SecurityClass: c.SecurityClass,
		LagDays:       c.LagDays,
		HasLag:        c.HasLag,
	}
	return item, true
}

// MapAll maps a batch of raw events, dropping unclassifiable records, and
// re-sorts the result newest-first. Upstream order is not guaranteed, so
// the ordering key (timestamp descending, id descending as tiebreak) is
// enforced here.
func MapAll(events []domain.RawEvent) []domain.FeedItem {
	items := make([]domain.FeedItem, 0, len(events))
	for i := range events {
		if item, ok := Map(&events[i]); ok {
			items = append(items, *item)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].ID > items[j].ID
	})
	return items
}
