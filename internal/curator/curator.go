// Package curator sequences one curation cycle: fetch feeds, select the
// first unposted article, compose a draft, and publish or record a skip.
package curator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/filter"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
)

// Number of entries pulled per feed during a cycle.
const perFeedLimit = 10

// ErrNoNewArticles is returned when every fetched article has already been
// handled.
var ErrNoNewArticles = errors.New("no new articles")

// Fetcher provides normalized articles from the configured feeds.
type Fetcher interface {
	FetchArticles(ctx context.Context, perFeedLimit int) []model.Article
}

// Ledger tracks which articles have already been handled.
type Ledger interface {
	IsPosted(link string) bool
	MarkPosted(article model.Article, tweetID *string)
}

// Composer produces a validated tweet draft for an article.
type Composer interface {
	Compose(ctx context.Context, article model.Article) (*model.Draft, error)
}

// Poster publishes a finished tweet and returns its platform ID.
type Poster interface {
	Post(ctx context.Context, text string) (string, error)
}

// Reviewer decides whether a draft should be published in interactive mode.
type Reviewer interface {
	Approve(draft *model.Draft) (bool, error)
}

// State describes how a cycle ended.
type State string

// Cycle outcomes.
const (
	StatePosted  State = "posted"  // tweet published and recorded
	StateSkipped State = "skipped" // reviewer declined; recorded with nil id
	StateDrafted State = "drafted" // draft produced, nothing published
	StateFailed  State = "failed"  // cycle ended without a draft or post
)

// Outcome reports the result of one cycle. Reason is human-readable and
// set for StateFailed and StateDrafted.
type Outcome struct {
	State   State
	Article *model.Article
	Draft   *model.Draft
	TweetID string
	Reason  string
}

// Curator owns the collaborators of one pipeline instance.
type Curator struct {
	fetcher  Fetcher
	ledger   Ledger
	composer Composer
	poster   Poster // nil means draft-only mode
	reviewer Reviewer
	autoPost bool
	log      *slog.Logger

	mu    sync.Mutex // serializes cycles against the shared ledger
	prefs config.TopicPreferences
}

// New wires a Curator. poster may be nil (draft-only mode); reviewer may be
// nil (no interactive review).
func New(f Fetcher, l Ledger, c Composer, p Poster, r Reviewer, autoPost bool, prefs config.TopicPreferences, log *slog.Logger) *Curator {
	return &Curator{
		fetcher:  f,
		ledger:   l,
		composer: c,
		poster:   p,
		reviewer: r,
		autoPost: autoPost,
		prefs:    prefs,
		log:      log,
	}
}

// ApplyConfig replaces the topic preferences without restart.
func (c *Curator) ApplyConfig(prefs config.TopicPreferences) {
	c.mu.Lock()
	c.prefs = prefs
	c.mu.Unlock()
}

// RunOnce executes a single cycle. The returned Outcome always describes
// what happened; the error is non-nil only for terminal failures.
func (c *Curator) RunOnce(ctx context.Context) (*Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.log.Info("starting curation cycle")

	article, err := c.selectArticle(ctx)
	if err != nil {
		return &Outcome{State: StateFailed, Reason: err.Error()}, err
	}
	c.log.Info("selected article", "title", article.Title, "link", article.Link)

	draft, err := c.composer.Compose(ctx, *article)
	if err != nil {
		c.log.Error("compose draft", "error", err)
		return &Outcome{State: StateFailed, Article: article, Reason: "could not produce a draft"}, err
	}

	if c.poster == nil {
		c.log.Warn("no publish credentials configured, draft only")
		return &Outcome{State: StateDrafted, Article: article, Draft: draft, Reason: "publishing not configured"}, nil
	}

	if c.autoPost {
		return c.publish(ctx, draft)
	}
	return c.review(ctx, draft)
}

func (c *Curator) selectArticle(ctx context.Context) (*model.Article, error) {
	articles := c.fetcher.FetchArticles(ctx, perFeedLimit)
	articles = filter.Apply(articles, c.prefs)
	if len(articles) == 0 {
		return nil, fmt.Errorf("%w: nothing fetched", ErrNoNewArticles)
	}

	for _, a := range articles {
		if !c.ledger.IsPosted(a.Link) {
			a := a
			return &a, nil
		}
	}
	return nil, fmt.Errorf("%w: all %d fetched articles already handled", ErrNoNewArticles, len(articles))
}

func (c *Curator) publish(ctx context.Context, draft *model.Draft) (*Outcome, error) {
	tweetID, err := c.poster.Post(ctx, draft.FullText)
	if err != nil {
		c.log.Error("post tweet", "error", err)
		return &Outcome{State: StateFailed, Article: &draft.Article, Draft: draft, Reason: "publish failed: " + err.Error()}, err
	}

	c.ledger.MarkPosted(draft.Article, &tweetID)
	c.log.Info("cycle complete", "tweet_id", tweetID)
	return &Outcome{State: StatePosted, Article: &draft.Article, Draft: draft, TweetID: tweetID}, nil
}

func (c *Curator) review(ctx context.Context, draft *model.Draft) (*Outcome, error) {
	if c.reviewer == nil {
		return &Outcome{State: StateDrafted, Article: &draft.Article, Draft: draft, Reason: "review required"}, nil
	}

	approved, err := c.reviewer.Approve(draft)
	if err != nil {
		return &Outcome{State: StateFailed, Article: &draft.Article, Draft: draft, Reason: "review failed: " + err.Error()}, err
	}
	if !approved {
		// Record with a nil id so the article is not selected again.
		c.ledger.MarkPosted(draft.Article, nil)
		c.log.Info("draft skipped by reviewer", "link", draft.Article.Link)
		return &Outcome{State: StateSkipped, Article: &draft.Article, Draft: draft}, nil
	}
	return c.publish(ctx, draft)
}
