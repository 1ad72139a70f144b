// Package api exposes the dashboard HTTP API over the pipeline components.
package api

import (
	"log/slog"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/sidwashere/Twitter-News-Curator/internal/composer"
	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/fetcher"
	"github.com/sidwashere/Twitter-News-Curator/internal/ledger"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
	"github.com/sidwashere/Twitter-News-Curator/internal/poster"
)

// Server holds the constructed pipeline components behind the dashboard
// API. Components are passed in by the caller; the server never builds its
// own.
type Server struct {
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	ledger   *ledger.Ledger
	composer *composer.Composer
	poster   *poster.Poster // nil when publishing is not configured
	username string
	version  string
	log      *slog.Logger

	// The dashboard works on one draft at a time.
	mu    sync.Mutex
	draft *model.Draft
}

// New creates a Server. poster may be nil (draft-only dashboard); username
// is the verified X account name, empty if unverified.
func New(cfg *config.Config, f *fetcher.Fetcher, l *ledger.Ledger, c *composer.Composer, p *poster.Poster, username, version string, log *slog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		fetcher:  f,
		ledger:   l,
		composer: c,
		poster:   p,
		username: username,
		version:  version,
		log:      log,
	}
}

// Router builds the gin engine with all dashboard routes.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", s.health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/status", s.getStatus)
		v1.GET("/articles", s.getArticles)
		v1.GET("/history", s.getHistory)
		v1.GET("/monitor/stats", s.getMonitorStats)

		v1.GET("/tweets/draft", s.getDraft)
		v1.POST("/tweets/generate", s.generateTweet)
		v1.POST("/tweets/regenerate", s.regenerateTweet)
		v1.POST("/tweets/post", s.postTweet)

		v1.POST("/settings", s.saveSettings)
		v1.POST("/feeds", s.addFeed)
		v1.DELETE("/feeds", s.removeFeed)
	}

	return r
}

func (s *Server) currentDraft() *model.Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft
}

func (s *Server) setDraft(d *model.Draft) {
	s.mu.Lock()
	s.draft = d
	s.mu.Unlock()
}
