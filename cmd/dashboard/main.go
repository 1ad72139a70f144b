// Command dashboard serves the management API: browse fetched articles,
// generate and post drafts, view history, and edit settings at runtime.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sidwashere/Twitter-News-Curator/internal/api"
	"github.com/sidwashere/Twitter-News-Curator/internal/composer"
	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/fetcher"
	"github.com/sidwashere/Twitter-News-Curator/internal/ledger"
	"github.com/sidwashere/Twitter-News-Curator/internal/poster"
)

const version = "1.0.0"

func main() {
	addr := flag.String("addr", ":5000", "listen address")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	log := newLogger(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := ledger.Open(cfg.LedgerPath, log)
	if err != nil {
		log.Error("open ledger", "path", cfg.LedgerPath, "error", err)
		os.Exit(1)
	}

	feeds := fetcher.New(http.DefaultClient, cfg.Settings.RSSFeeds, log)

	var comp *composer.Composer
	if cfg.OpenAIAPIKey != "" {
		gen := composer.NewOpenAIGenerator(cfg.OpenAIAPIKey, cfg.Settings.AI.Model)
		comp = composer.New(gen, cfg.Settings.TweetStyle, cfg.Settings.AI, log)
	} else {
		log.Warn("OPENAI_API_KEY not set, tweet generation disabled")
	}

	var pub *poster.Poster
	var username string
	if cfg.HasXCredentials() {
		pub = poster.NewWithCredentials(cfg.XAPIKey, cfg.XAPISecret, cfg.XAccessToken, cfg.XAccessSecret, log)
		username, err = pub.Verify(ctx)
		if err != nil {
			log.Error("twitter authentication failed, posting disabled", "error", err)
			pub = nil
		} else {
			log.Info("authenticated", "username", username)
		}
	} else {
		log.Warn("twitter credentials not found, posting disabled")
	}

	server := api.New(cfg, feeds, store, comp, pub, username, version, log)

	srv := &http.Server{
		Addr:              *addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("dashboard listening", "addr", *addr, "feeds", feeds.FeedCount(), "posted", store.Count())

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("serve", "error", err)
		os.Exit(1)
	}

	log.Info("dashboard stopped")
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
