// Package fetcher handles RSS feed downloading, parsing, and normalization.
package fetcher

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/sidwashere/Twitter-News-Curator/internal/model"
)

// Maximum length of an article summary after HTML stripping. Keeps the
// downstream generation prompt bounded.
const maxSummaryLen = 500

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Fetcher downloads feeds and normalizes their entries into articles.
type Fetcher struct {
	client  HTTPClient
	log     *slog.Logger
	timeout time.Duration

	mu    sync.RWMutex
	feeds []string
}

// New creates a Fetcher for the given feed URLs.
func New(client HTTPClient, feeds []string, log *slog.Logger) *Fetcher {
	return &Fetcher{
		client:  client,
		log:     log,
		timeout: 30 * time.Second,
		feeds:   append([]string(nil), feeds...),
	}
}

// ApplyConfig replaces the feed list without restarting the process.
func (f *Fetcher) ApplyConfig(feeds []string) {
	f.mu.Lock()
	f.feeds = append([]string(nil), feeds...)
	f.mu.Unlock()
	f.log.Info("feed list updated", "count", len(feeds))
}

// Feeds returns a copy of the current feed list.
func (f *Fetcher) Feeds() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.feeds...)
}

// FeedCount returns the number of configured feeds.
func (f *Fetcher) FeedCount() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.feeds)
}

// FetchArticles fetches every configured feed and returns the combined
// entries, newest first. Each feed contributes at most perFeedLimit entries
// in feed order. A feed that fails to download or parse is logged and
// skipped; it never aborts the remaining feeds.
func (f *Fetcher) FetchArticles(ctx context.Context, perFeedLimit int) []model.Article {
	var articles []model.Article

	for _, url := range f.Feeds() {
		feed, err := f.fetch(ctx, url)
		if err != nil {
			f.log.Error("fetch feed", "url", url, "error", err)
			continue
		}

		items := feed.Items
		if len(items) > perFeedLimit {
			items = items[:perFeedLimit]
		}
		for _, item := range items {
			a, ok := f.parseEntry(item, url)
			if !ok {
				continue
			}
			articles = append(articles, a)
		}
		f.log.Info("fetched feed", "url", url, "items", len(items))
	}

	// Newest first; entries without a parsed date sort after all dated ones.
	sort.SliceStable(articles, func(i, j int) bool {
		pi, pj := articles[i].PublishedParsed, articles[j].PublishedParsed
		switch {
		case pi == nil:
			return false
		case pj == nil:
			return true
		default:
			return pi.After(*pj)
		}
	})

	f.log.Info("total articles fetched", "count", len(articles))
	return articles
}

// ArticleByURL refetches the feeds and returns the article with the given
// link, or an error if no feed currently carries it.
func (f *Fetcher) ArticleByURL(ctx context.Context, url string) (*model.Article, error) {
	for _, a := range f.FetchArticles(ctx, 50) {
		if a.Link == url {
			return &a, nil
		}
	}
	return nil, fmt.Errorf("article not found: %s", url)
}

func (f *Fetcher) fetch(ctx context.Context, url string) (*gofeed.Feed, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", "TwitterNewsCurator/1.0")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 5*1024*1024))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	parser := gofeed.NewParser()
	feed, err := parser.ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	return feed, nil
}

func (f *Fetcher) parseEntry(item *gofeed.Item, sourceURL string) (model.Article, bool) {
	title := strings.TrimSpace(item.Title)
	link := strings.TrimSpace(item.Link)
	if title == "" || link == "" {
		f.log.Warn("skipping article with missing title or link", "source", sourceURL)
		return model.Article{}, false
	}

	summary := item.Description
	if summary == "" {
		summary = item.Content
	}
	summary = truncate(StripHTML(summary), maxSummaryLen)

	return model.Article{
		Title:           title,
		Link:            link,
		Summary:         summary,
		Published:       item.Published,
		PublishedParsed: item.PublishedParsed,
		Source:          sourceURL,
		FetchedAt:       time.Now().UTC().Format(time.RFC3339),
	}, true
}

// StripHTML extracts the text content from an HTML fragment.
func StripHTML(s string) string {
	if !strings.Contains(s, "<") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(strings.Join(strings.Fields(doc.Text()), " "))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
