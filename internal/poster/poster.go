// Package poster publishes finished tweets through the X API v2.
package poster

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"unicode/utf8"

	"github.com/dghubble/oauth1"
)

// maxTweetLen is the platform's hard length limit.
const maxTweetLen = 280

// Failure kinds surfaced to the caller. None are retried within the same
// cycle; a scheduler may try again on a later cycle.
var (
	ErrTweetTooLong = errors.New("tweet exceeds 280 characters")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrForbidden    = errors.New("forbidden: check API permissions and account status")
)

// Poster posts tweets using an OAuth 1.0a user-context client.
type Poster struct {
	client  *http.Client
	baseURL string
	log     *slog.Logger
}

// New creates a Poster over a pre-configured HTTP client. The client must
// already handle request signing.
func New(client *http.Client, log *slog.Logger) *Poster {
	return &Poster{
		client:  client,
		baseURL: "https://api.twitter.com",
		log:     log,
	}
}

// NewWithCredentials creates a Poster that signs requests with the given
// OAuth 1.0a consumer and access credentials.
func NewWithCredentials(apiKey, apiSecret, accessToken, accessSecret string, log *slog.Logger) *Poster {
	cfg := oauth1.NewConfig(apiKey, apiSecret)
	token := oauth1.NewToken(accessToken, accessSecret)
	return New(cfg.Client(oauth1.NoContext, token), log)
}

// SetBaseURL overrides the API endpoint (useful for testing).
func (p *Poster) SetBaseURL(u string) {
	p.baseURL = u
}

type tweetRequest struct {
	Text string `json:"text"`
}

type tweetResponse struct {
	Data struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	} `json:"data"`
}

type userResponse struct {
	Data struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Username string `json:"username"`
	} `json:"data"`
}

// Post publishes the text and returns the platform-assigned tweet ID.
// Texts over the length limit are rejected before any API call. Rate-limit
// and permission responses map to ErrRateLimited and ErrForbidden.
func (p *Poster) Post(ctx context.Context, text string) (string, error) {
	if n := utf8.RuneCountInString(text); n > maxTweetLen {
		return "", fmt.Errorf("%w: %d characters", ErrTweetTooLong, n)
	}

	body, err := json.Marshal(tweetRequest{Text: text})
	if err != nil {
		return "", fmt.Errorf("marshal tweet: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/2/tweets", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	p.log.Info("posting tweet", "chars", utf8.RuneCountInString(text))

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post tweet: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var tr tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if tr.Data.ID == "" {
		return "", fmt.Errorf("response missing tweet id")
	}

	p.log.Info("tweet posted", "tweet_id", tr.Data.ID)
	return tr.Data.ID, nil
}

// Verify checks the credentials by fetching the authenticated user and
// returns the account username.
func (p *Poster) Verify(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/2/users/me", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("get authenticated user: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if err := classifyStatus(resp); err != nil {
		return "", err
	}

	var ur userResponse
	if err := json.NewDecoder(resp.Body).Decode(&ur); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	return ur.Data.Username, nil
}

func classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	default:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, snippet)
	}
}
