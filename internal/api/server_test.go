package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/h2non/gock"

	"github.com/sidwashere/Twitter-News-Curator/internal/composer"
	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/fetcher"
	"github.com/sidwashere/Twitter-News-Curator/internal/ledger"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
	"github.com/sidwashere/Twitter-News-Curator/internal/poster"
)

const feedURL = "https://news.example.com/feed.xml"

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Tech Briefing</title>
    <link>https://news.example.com</link>
    <item>
      <title>Kubernetes 1.32 Released</title>
      <link>https://news.example.com/k8s-132</link>
      <description>The release ships dynamic resource allocation improvements.</description>
      <pubDate>Mon, 02 Jun 2025 09:00:00 GMT</pubDate>
    </item>
  </channel>
</rss>`

type feedTransport struct{}

func (feedTransport) Do(req *http.Request) (*http.Response, error) {
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(feedXML)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

type fakeGen struct {
	reply string
	calls int
}

func (g *fakeGen) Generate(context.Context, string, float32, int) (string, error) {
	g.calls++
	return g.reply, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestServer wires real components over fakes: an in-memory feed
// transport, a canned generator, a temp-dir ledger, and a gock-intercepted
// poster.
func newTestServer(t *testing.T) (*Server, *gin.Engine, *fakeGen) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	cfg := &config.Config{
		SettingsPath: filepath.Join(dir, "config.json"),
		Settings:     config.DefaultSettings(),
	}
	cfg.Settings.RSSFeeds = []string{feedURL}

	log := testLogger()
	f := fetcher.New(feedTransport{}, cfg.Settings.RSSFeeds, log)

	store, err := ledger.Open(filepath.Join(dir, "posted.json"), log)
	if err != nil {
		t.Fatal(err)
	}

	gen := &fakeGen{reply: "Dynamic resource allocation lands in Kubernetes and it changes cluster tuning."}
	comp := composer.New(gen, cfg.Settings.TweetStyle, cfg.Settings.AI, log)

	client := &http.Client{}
	gock.InterceptClient(client)
	p := poster.New(client, log)

	srv := New(cfg, f, store, comp, p, "newscurator", "test", log)
	return srv, srv.Router(), gen
}

func doJSON(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"service":"news-curator"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestGetStatus(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/status", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	for _, want := range []string{`"rss_feeds":1`, `"twitter_connected":true`, `"ai_connected":true`, `"twitter_username":"newscurator"`} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %s: %s", want, body)
		}
	}
}

func TestGetArticles(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodGet, "/api/v1/articles", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Kubernetes 1.32 Released") || !strings.Contains(body, `"count":1`) {
		t.Errorf("body = %s", body)
	}
}

func TestGenerateAndPostFlow(t *testing.T) {
	defer gock.Off()
	srv, r, _ := newTestServer(t)

	// No draft before generating.
	if w := doJSON(t, r, http.MethodGet, "/api/v1/tweets/draft", ""); w.Code != http.StatusNotFound {
		t.Fatalf("draft before generate: status = %d", w.Code)
	}

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/generate",
		`{"article_url": "https://news.example.com/k8s-132"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"full_tweet"`) {
		t.Errorf("generate body = %s", w.Body.String())
	}

	if w := doJSON(t, r, http.MethodGet, "/api/v1/tweets/draft", ""); w.Code != http.StatusOK {
		t.Fatalf("draft after generate: status = %d", w.Code)
	}

	gock.New("https://api.twitter.com").
		Post("/2/tweets").
		Reply(http.StatusCreated).
		JSON(map[string]any{"data": map[string]string{"id": "555", "text": "x"}})

	w = doJSON(t, r, http.MethodPost, "/api/v1/tweets/post", "")
	if w.Code != http.StatusOK {
		t.Fatalf("post: status = %d, body = %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"tweet_id":"555"`) {
		t.Errorf("post body = %s", w.Body.String())
	}

	// Posting consumes the draft and records the article.
	if w := doJSON(t, r, http.MethodGet, "/api/v1/tweets/draft", ""); w.Code != http.StatusNotFound {
		t.Errorf("draft after post: status = %d", w.Code)
	}
	if !srv.ledger.IsPosted("https://news.example.com/k8s-132") {
		t.Error("posted article not recorded in the ledger")
	}
}

func TestGenerateRequiresArticleURL(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/generate", `{}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestGenerateUnknownArticle(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/generate",
		`{"article_url": "https://news.example.com/never-fetched"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestRegenerateWithoutDraft(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/regenerate", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestRegenerateCallsBackendAgain(t *testing.T) {
	_, r, gen := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/generate",
		`{"article_url": "https://news.example.com/k8s-132"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate: status = %d", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/api/v1/tweets/regenerate", `{"temperature": 1.2}`)
	if w.Code != http.StatusOK {
		t.Fatalf("regenerate: status = %d, body = %s", w.Code, w.Body.String())
	}
	if gen.calls != 2 {
		t.Errorf("generator calls = %d, want 2", gen.calls)
	}
}

func TestPostWithoutDraft(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/tweets/post", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestSaveSettings(t *testing.T) {
	srv, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/settings",
		`{"tweet_style": {"max_length": 280, "max_hashtags": 1, "hashtags": ["#Go"]}}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	if srv.cfg.Settings.TweetStyle.MaxHashtags != 1 {
		t.Errorf("MaxHashtags = %d, want 1", srv.cfg.Settings.TweetStyle.MaxHashtags)
	}
	// The document is persisted for the next startup.
	if _, err := os.Stat(srv.cfg.SettingsPath); err != nil {
		t.Errorf("settings file not written: %v", err)
	}
}

func TestSaveSettingsRejectsInvalid(t *testing.T) {
	_, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/settings",
		`{"ai_settings": {"max_retries": 0}}`)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestFeedManagement(t *testing.T) {
	srv, r, _ := newTestServer(t)

	w := doJSON(t, r, http.MethodPost, "/api/v1/feeds",
		`{"url": "https://other.example.com/rss"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("add: status = %d, body = %s", w.Code, w.Body.String())
	}
	if srv.fetcher.FeedCount() != 2 {
		t.Errorf("FeedCount = %d, want 2", srv.fetcher.FeedCount())
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/feeds",
		`{"url": "https://other.example.com/rss"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("remove: status = %d, body = %s", w.Code, w.Body.String())
	}
	if srv.fetcher.FeedCount() != 1 {
		t.Errorf("FeedCount = %d, want 1", srv.fetcher.FeedCount())
	}

	w = doJSON(t, r, http.MethodDelete, "/api/v1/feeds",
		`{"url": "https://other.example.com/rss"}`)
	if w.Code != http.StatusNotFound {
		t.Errorf("remove missing: status = %d", w.Code)
	}
}

func TestHistory(t *testing.T) {
	srv, r, _ := newTestServer(t)

	id := "99"
	srv.ledger.MarkPosted(model.Article{Link: "https://news.example.com/old", Title: "Old Story"}, &id)

	w := doJSON(t, r, http.MethodGet, "/api/v1/history", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "Old Story") || !strings.Contains(body, `"count":1`) {
		t.Errorf("body = %s", body)
	}
}
