package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "news-curator",
		"version": s.version,
	})
}

// getStatus handles GET /api/v1/status
func (s *Server) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_posted":      s.ledger.Count(),
		"rss_feeds":         s.fetcher.FeedCount(),
		"twitter_connected": s.poster != nil,
		"twitter_username":  s.username,
		"ai_connected":      s.composer != nil,
	})
}

// getArticles handles GET /api/v1/articles?limit=
func (s *Server) getArticles(c *gin.Context) {
	limit := intQuery(c, "limit", 20)

	articles := s.fetcher.FetchArticles(c.Request.Context(), limit)
	for i := range articles {
		articles[i].IsPosted = s.ledger.IsPosted(articles[i].Link)
	}

	c.JSON(http.StatusOK, gin.H{
		"articles": articles,
		"count":    len(articles),
	})
}

// getHistory handles GET /api/v1/history?limit=
func (s *Server) getHistory(c *gin.Context) {
	limit := intQuery(c, "limit", 50)
	posts := s.ledger.RecentPosts(limit)
	c.JSON(http.StatusOK, gin.H{
		"posts": posts,
		"count": len(posts),
	})
}

// getMonitorStats handles GET /api/v1/monitor/stats
func (s *Server) getMonitorStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"application": gin.H{
			"total_posts":       s.ledger.Count(),
			"rss_feeds_count":   s.fetcher.FeedCount(),
			"twitter_connected": s.poster != nil,
			"ai_connected":      s.composer != nil,
		},
	})
}

// getDraft handles GET /api/v1/tweets/draft
func (s *Server) getDraft(c *gin.Context) {
	draft := s.currentDraft()
	if draft == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no draft available"})
		return
	}
	c.JSON(http.StatusOK, draft)
}

type generateRequest struct {
	ArticleURL string `json:"article_url"`
}

// generateTweet handles POST /api/v1/tweets/generate
func (s *Server) generateTweet(c *gin.Context) {
	var req generateRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ArticleURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "article_url is required"})
		return
	}

	if s.composer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI not configured, set OPENAI_API_KEY"})
		return
	}

	article, err := s.fetcher.ArticleByURL(c.Request.Context(), req.ArticleURL)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	draft, err := s.composer.Compose(c.Request.Context(), *article)
	if err != nil {
		s.log.Error("generate tweet", "link", req.ArticleURL, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate tweet"})
		return
	}
	s.setDraft(draft)

	c.JSON(http.StatusOK, gin.H{
		"content":    draft.Content,
		"full_tweet": draft.FullText,
		"char_count": utf8.RuneCountInString(draft.FullText),
		"article":    draft.Article,
	})
}

type regenerateRequest struct {
	Temperature *float32 `json:"temperature"`
}

// regenerateTweet handles POST /api/v1/tweets/regenerate
func (s *Server) regenerateTweet(c *gin.Context) {
	draft := s.currentDraft()
	if draft == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no article in session, generate a tweet first"})
		return
	}
	if s.composer == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "AI not configured, set OPENAI_API_KEY"})
		return
	}

	var req regenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	temperature := s.cfg.Settings.AI.Temperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}

	next, err := s.composer.ComposeWithTemperature(c.Request.Context(), draft.Article, temperature)
	if err != nil {
		s.log.Error("regenerate tweet", "link", draft.Article.Link, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to regenerate tweet"})
		return
	}
	s.setDraft(next)

	c.JSON(http.StatusOK, gin.H{
		"content":    next.Content,
		"full_tweet": next.FullText,
		"char_count": utf8.RuneCountInString(next.FullText),
	})
}

type postRequest struct {
	Tweet string `json:"tweet"`
}

// postTweet handles POST /api/v1/tweets/post
func (s *Server) postTweet(c *gin.Context) {
	draft := s.currentDraft()
	if draft == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no tweet ready to post"})
		return
	}
	if s.poster == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "twitter not configured"})
		return
	}

	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	// The operator may have edited the text before posting.
	text := draft.FullText
	if req.Tweet != "" {
		text = req.Tweet
	}

	tweetID, err := s.poster.Post(c.Request.Context(), text)
	if err != nil {
		s.log.Error("post tweet", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	s.ledger.MarkPosted(draft.Article, &tweetID)
	s.setDraft(nil)

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"tweet_id": tweetID,
		"url":      fmt.Sprintf("https://twitter.com/%s/status/%s", s.username, tweetID),
	})
}

// saveSettings handles POST /api/v1/settings. The body is a partial
// settings document; omitted keys keep their current values.
func (s *Server) saveSettings(c *gin.Context) {
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read request body"})
		return
	}

	if err := s.cfg.MergeSettings(raw); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.cfg.SaveSettings(); err != nil {
		s.log.Error("save settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save settings"})
		return
	}
	s.applySettings()

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "settings saved and applied",
	})
}

type feedRequest struct {
	URL string `json:"url"`
}

// addFeed handles POST /api/v1/feeds
func (s *Server) addFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed URL is required"})
		return
	}

	if err := s.cfg.AddFeed(req.URL); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.applySettings()

	s.log.Info("added feed", "url", req.URL)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "feed added"})
}

// removeFeed handles DELETE /api/v1/feeds
func (s *Server) removeFeed(c *gin.Context) {
	var req feedRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.URL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "feed URL is required"})
		return
	}

	if err := s.cfg.RemoveFeed(req.URL); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	s.applySettings()

	s.log.Info("removed feed", "url", req.URL)
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "feed removed"})
}

// applySettings pushes the current settings into the live components.
func (s *Server) applySettings() {
	s.fetcher.ApplyConfig(s.cfg.Settings.RSSFeeds)
	if s.composer != nil {
		s.composer.ApplyConfig(s.cfg.Settings.TweetStyle, s.cfg.Settings.AI)
	}
}

func intQuery(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.DefaultQuery(name, strconv.Itoa(def)))
	if err != nil || v < 1 {
		return def
	}
	return v
}
