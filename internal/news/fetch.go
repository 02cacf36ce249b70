// Package news gathers recent headlines for symbols on the tape and lands
// them as news events alongside the filing feeds. Sources: Alpaca
// marketdata, Google News RSS, and GlobeNewswire RSS.
package news

import (
	"encoding/xml"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Article is a single headline from any source.
type Article struct {
	Time     time.Time
	Source   string
	Headline string
	Summary  string
	URL      string
}

var httpClient = &http.Client{Timeout: 10 * time.Second}

// --- Alpaca ---

// FetchAlpacaNews fetches news from the Alpaca marketdata API.
func FetchAlpacaNews(mdc *marketdata.Client, symbol string, start, end time.Time) ([]Article, error) {
	alpacaNews, err := mdc.GetNews(marketdata.GetNewsRequest{
		Symbols:            []string{symbol},
		Start:              start,
		End:                end,
		TotalLimit:         50,
		ExcludeContentless: true,
		Sort:               marketdata.SortAsc,
	})
	if err != nil {
		return nil, err
	}

	articles := make([]Article, 0, len(alpacaNews))
	for _, a := range alpacaNews {
		articles = append(articles, Article{
			Time:     a.CreatedAt,
			Source:   "alpaca",
			Headline: a.Headline,
			Summary:  StripHTML(a.Summary),
			URL:      a.URL,
		})
	}
	return articles, nil
}

// --- RSS sources ---

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
}

// FetchGoogleNews fetches headlines from Google News RSS.
func FetchGoogleNews(symbol string, start, end time.Time) ([]Article, error) {
	q := url.QueryEscape(symbol + " stock")
	u := "https://news.google.com/rss/search?q=" + q + "&hl=en-US&gl=US&ceid=US:en"

	rss, err := fetchRSS(u)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, ok := parseRSSTime(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		headline := item.Title
		// Google appends " - Publisher" to titles.
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			headline = headline[:idx]
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "google",
			Headline: headline,
			Summary:  StripHTML(item.Desc),
			URL:      item.Link,
		})
	}
	return articles, nil
}

// FetchGlobeNewswire fetches headlines from GlobeNewswire RSS.
func FetchGlobeNewswire(symbol string, start, end time.Time) ([]Article, error) {
	u := "https://www.globenewswire.com/RssFeed/keyword/" + url.PathEscape(symbol) + "/feedTitle/GlobeNewswire.xml"

	rss, err := fetchRSS(u)
	if err != nil {
		return nil, err
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, ok := parseRSSTime(item.PubDate)
		if !ok || t.Before(start) || t.After(end) {
			continue
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   "globenewswire",
			Headline: item.Title,
			Summary:  StripHTML(item.Desc),
			URL:      item.Link,
		})
	}
	return articles, nil
}

func fetchRSS(u string) (*rssResponse, error) {
	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, err
	}
	return &rss, nil
}

func parseRSSTime(s string) (time.Time, bool) {
	for _, layout := range []string{
		time.RFC1123Z,
		time.RFC1123,
		"Mon, 02 Jan 2006 15:04 MST",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// --- HTML helpers ---

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and normalizes whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	fields := strings.Fields(s)
	return strings.Join(fields, " ")
}
