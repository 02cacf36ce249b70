package news

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"

	"tapefeed/internal/domain"
)

// Gatherer collects headlines from every configured source. The marketdata
// client may be nil; the RSS sources are always available.
type Gatherer struct {
	mdc *marketdata.Client
	log *slog.Logger
}

// NewGatherer wires a gatherer. mdc may be nil.
func NewGatherer(mdc *marketdata.Client, log *slog.Logger) *Gatherer {
	return &Gatherer{mdc: mdc, log: log}
}

// Fetch gathers headlines for one symbol across all sources within the
// window, deduplicated by headline and ordered oldest first. A source
// failing is logged and skipped; the remaining sources still contribute.
func (g *Gatherer) Fetch(symbol string, start, end time.Time) []Article {
	var all []Article

	if g.mdc != nil {
		articles, err := FetchAlpacaNews(g.mdc, symbol, start, end)
		if err != nil {
			g.log.Warn("fetching alpaca news", "symbol", symbol, "error", err)
		} else {
			all = append(all, articles...)
		}
	}

	for _, fetch := range []func(string, time.Time, time.Time) ([]Article, error){
		FetchGoogleNews,
		FetchGlobeNewswire,
	} {
		articles, err := fetch(symbol, start, end)
		if err != nil {
			g.log.Warn("fetching rss news", "symbol", symbol, "error", err)
			continue
		}
		all = append(all, articles...)
	}

	return Dedup(all)
}

// Dedup removes articles whose normalized headline was already seen and
// sorts the remainder oldest first.
func Dedup(articles []Article) []Article {
	seen := make(map[string]bool, len(articles))
	out := articles[:0]
	for _, a := range articles {
		key := strings.ToLower(strings.TrimSpace(a.Headline))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Time.Before(out[j].Time)
	})
	return out
}

// ToRawEvent converts an article into a tape event for the given symbol.
// The dedup key covers source, symbol, headline, and publication time, so
// re-running a gather never duplicates rows.
func ToRawEvent(symbol string, a Article) *domain.RawEvent {
	payload, _ := json.Marshal(map[string]any{
		"source":   a.Source,
		"headline": a.Headline,
		"url":      a.URL,
	})

	return &domain.RawEvent{
		ExternalID: newsExternalID(a.Source, symbol, a.Headline, a.Time),
		EventType:  domain.EventTypeNews,
		TS:         a.Time.UTC(),
		Symbol:     domain.CanonicalSymbol(symbol),
		Source:     a.Source,
		Headline:   a.Headline,
		Summary:    a.Summary,
		URL:        a.URL,
		Payload:    payload,
	}
}

func newsExternalID(source, symbol, headline string, t time.Time) string {
	h := sha1.Sum([]byte(strings.Join([]string{
		"news", source, strings.ToUpper(symbol), headline, t.UTC().Format(time.RFC3339),
	}, "|")))
	return hex.EncodeToString(h[:])
}
