// Command curator runs a single curation cycle: fetch the configured
// feeds, pick the first article not yet handled, draft a tweet for it, and
// post it (or ask for review).
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/sidwashere/Twitter-News-Curator/internal/composer"
	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/curator"
	"github.com/sidwashere/Twitter-News-Curator/internal/fetcher"
	"github.com/sidwashere/Twitter-News-Curator/internal/ledger"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
	"github.com/sidwashere/Twitter-News-Curator/internal/poster"
)

// Ledger records retained after a cycle; older entries are evicted.
const maxLedgerEntries = 1000

func main() {
	auto := flag.Bool("auto", false, "post without review (overrides AUTO_POST)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	if *auto {
		cfg.AutoPost = true
	}

	log := newLogger(cfg.LogLevel)

	if cfg.OpenAIAPIKey == "" {
		log.Error("OPENAI_API_KEY is required")
		os.Exit(1)
	}
	if len(cfg.Settings.RSSFeeds) == 0 {
		log.Error("no RSS feeds configured", "settings", cfg.SettingsPath)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.Open(cfg.LedgerPath, log)
	if err != nil {
		log.Error("open ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}

	feeds := fetcher.New(http.DefaultClient, cfg.Settings.RSSFeeds, log)
	gen := composer.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.Settings.AI.Model)
	comp := composer.New(gen, cfg.Settings.TweetStyle, cfg.Settings.AI, log)

	var pub curator.Poster
	var reviewer curator.Reviewer
	if cfg.HasXCredentials() {
		p := poster.NewWithCredentials(cfg.XAPIKey, cfg.XAPISecret, cfg.XAccessToken, cfg.XAccessSecret, log)
		username, err := p.Verify(ctx)
		if err != nil {
			log.Error("twitter authentication failed", "error", err)
			os.Exit(1)
		}
		log.Info("authenticated", "username", username)
		pub = p
		reviewer = &stdinReviewer{in: bufio.NewReader(os.Stdin)}
	} else {
		log.Warn("twitter credentials not found, running in draft mode")
	}

	cur := curator.New(feeds, store, comp, pub, reviewer, cfg.AutoPost, cfg.Settings.Topics, log)

	outcome, err := cur.RunOnce(ctx)
	if err != nil {
		if errors.Is(err, curator.ErrNoNewArticles) {
			log.Info("no action taken", "reason", outcome.Reason)
			return
		}
		log.Error("cycle failed", "reason", outcome.Reason)
		os.Exit(1)
	}

	report(outcome)
	store.EvictOldest(maxLedgerEntries)
}

func report(o *curator.Outcome) {
	if o.Article != nil {
		fmt.Printf("\nArticle: %s\n%s\n", o.Article.Title, o.Article.Link)
	}
	if o.Draft != nil {
		fmt.Printf("\nDraft (%d chars):\n%s\n", utf8.RuneCountInString(o.Draft.FullText), o.Draft.FullText)
	}

	switch o.State {
	case curator.StatePosted:
		fmt.Printf("\nPosted. Tweet ID: %s\n", o.TweetID)
	case curator.StateSkipped:
		fmt.Println("\nNot posted. The article will not be selected again.")
	case curator.StateDrafted:
		fmt.Printf("\nDraft only: %s\n", o.Reason)
	}
}

type stdinReviewer struct {
	in *bufio.Reader
}

// Approve shows the draft and asks for a y/n decision on stdin.
func (r *stdinReviewer) Approve(d *model.Draft) (bool, error) {
	fmt.Printf("\nGenerated tweet (%d chars):\n%s\n\n", utf8.RuneCountInString(d.FullText), d.FullText)
	fmt.Print("Post this tweet now? (y/n): ")

	line, err := r.in.ReadString('\n')
	if err != nil {
		return false, fmt.Errorf("read answer: %w", err)
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
