// Package ledger persists the posting outcome of every handled article so
// the same article is never posted twice.
package ledger

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/sidwashere/Twitter-News-Curator/internal/model"
)

// entry is the on-disk shape of one ledger record, keyed by article link.
type entry struct {
	Title    string  `json:"title"`
	PostedAt string  `json:"posted_at"`
	TweetID  *string `json:"tweet_id"`
	Source   string  `json:"source"`
}

// Ledger is the durable mapping from article link to its posting outcome.
// The whole document is loaded at startup and rewritten on every mutation.
// One Ledger instance may be shared between the dashboard handlers and a
// running cycle; all access is serialized by an internal mutex. Running two
// processes against the same file is not supported.
type Ledger struct {
	path string
	log  *slog.Logger

	mu      sync.Mutex
	records map[string]entry
}

// Open loads the ledger document at path. A missing file starts an empty
// ledger and the file is created on the first write. Malformed content also
// starts empty, with the parse error logged: availability is preferred over
// failing construction, so an operator who needs stricter guarantees must
// validate the file externally.
func Open(path string, log *slog.Logger) (*Ledger, error) {
	l := &Ledger{
		path:    path,
		log:     log,
		records: make(map[string]entry),
	}

	data, err := os.ReadFile(path) //nolint:gosec // operator-provided path
	if os.IsNotExist(err) {
		log.Info("creating new ledger", "path", path)
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read ledger %s: %w", path, err)
	}

	if err := json.Unmarshal(data, &l.records); err != nil {
		log.Error("ledger file is malformed, starting empty", "path", path, "error", err)
		l.records = make(map[string]entry)
		return l, nil
	}

	log.Info("loaded ledger", "path", path, "records", len(l.records))
	return l, nil
}

// IsPosted reports whether an article link has already been handled,
// whether it was actually tweeted or deliberately skipped.
func (l *Ledger) IsPosted(link string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.records[link]
	return ok
}

// MarkPosted records the outcome for an article. A nil tweetID means the
// article was drafted or skipped and must not be selected again. The update
// is applied in memory first and then persisted; a persistence failure is
// logged but does not roll back the in-memory state.
func (l *Ledger) MarkPosted(article model.Article, tweetID *string) {
	if article.Link == "" {
		l.log.Warn("cannot record article without link", "title", article.Title)
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[article.Link] = entry{
		Title:    article.Title,
		PostedAt: time.Now().UTC().Format(time.RFC3339),
		TweetID:  tweetID,
		Source:   article.Source,
	}
	l.save()
	l.log.Info("recorded article", "link", article.Link, "tweeted", tweetID != nil)
}

// RecentPosts returns up to limit records, most recent first. Records
// missing a posted_at timestamp sort last.
func (l *Ledger) RecentPosts(limit int) []model.PostRecord {
	l.mu.Lock()
	defer l.mu.Unlock()

	posts := l.sortedLocked()
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts
}

// Count returns the number of recorded articles.
func (l *Ledger) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// EvictOldest keeps only the maxEntries most recent records. A no-op when
// the ledger is already within the bound.
func (l *Ledger) EvictOldest(maxEntries int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.records) <= maxEntries {
		return
	}

	keep := l.sortedLocked()[:maxEntries]
	l.records = make(map[string]entry, maxEntries)
	for _, p := range keep {
		l.records[p.URL] = entry{
			Title:    p.Title,
			PostedAt: p.PostedAt,
			TweetID:  p.TweetID,
			Source:   p.Source,
		}
	}
	l.save()
	l.log.Info("evicted old ledger records", "kept", len(l.records))
}

// Clear drops every record. Destructive; explicit opt-in only.
func (l *Ledger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.log.Warn("clearing all ledger records", "count", len(l.records))
	l.records = make(map[string]entry)
	l.save()
}

// sortedLocked returns all records sorted descending by posted_at. The
// timestamps are zero-padded RFC 3339, so a string compare is enough.
func (l *Ledger) sortedLocked() []model.PostRecord {
	posts := make([]model.PostRecord, 0, len(l.records))
	for url, e := range l.records {
		posts = append(posts, model.PostRecord{
			URL:      url,
			Title:    e.Title,
			PostedAt: e.PostedAt,
			TweetID:  e.TweetID,
			Source:   e.Source,
		})
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].PostedAt > posts[j].PostedAt
	})
	return posts
}

func (l *Ledger) save() {
	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			l.log.Error("create ledger directory", "path", dir, "error", err)
			return
		}
	}
	data, err := json.MarshalIndent(l.records, "", "  ")
	if err != nil {
		l.log.Error("marshal ledger", "error", err)
		return
	}
	if err := os.WriteFile(l.path, data, 0o600); err != nil {
		l.log.Error("write ledger", "path", l.path, "error", err)
	}
}
