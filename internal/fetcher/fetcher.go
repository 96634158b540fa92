package fetcher

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"github.com/pkg/errors"

	"silentwave/internal/models"
)

const (
	DefaultFeedURL = "https://www.ynet.co.il/Integration/StoryRss1854.xml"
	DefaultLimit   = 30

	userAgent = "Mozilla/5.0 (compatible; SilentWave/1.0)"
	accept    = "application/rss+xml, application/xml, text/xml"
)

// Fetcher downloads and parses an RSS/Atom feed into ticker items.
type Fetcher struct {
	client *http.Client
	parser *gofeed.Parser
}

// New creates a Fetcher with the given request timeout.
func New(timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Fetcher{
		client: &http.Client{Timeout: timeout},
		parser: gofeed.NewParser(),
	}
}

// FetchNews loads the feed at url and returns at most limit items.
func (f *Fetcher) FetchNews(ctx context.Context, url string, limit int) ([]models.NewsItem, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create feed request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "feed request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("RSS fetch failed: %d", resp.StatusCode)
	}

	feed, err := f.parser.Parse(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse feed")
	}

	items := feed.Items
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}

	news := make([]models.NewsItem, 0, len(items))
	for _, item := range items {
		news = append(news, models.NewsItem{
			Title:       strings.TrimSpace(item.Title),
			Link:        strings.TrimSpace(item.Link),
			PubDate:     strings.TrimSpace(item.Published),
			Description: StripHTML(item.Description),
		})
	}
	return news, nil
}

// StripHTML reduces an HTML fragment to its trimmed text content.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return strings.TrimSpace(fragment)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
