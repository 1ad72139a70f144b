// Package composer turns one article into one postable tweet draft,
// enforcing format and length rules with bounded retries against the
// generation backend.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sethvargo/go-retry"

	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
)

// ErrGenerationFailed is returned when the configured attempt budget is
// exhausted without producing a valid draft. Callers must not retry further
// within the same cycle.
var ErrGenerationFailed = errors.New("could not produce a draft")

// Minimum length of a generated tweet body after trimming. Anything
// shorter is treated as a degenerate backend response.
const minContentLen = 20

// Generator is the interface to the generative text backend.
type Generator interface {
	Generate(ctx context.Context, prompt string, temperature float32, maxTokens int) (string, error)
}

// Composer builds, validates, and formats tweet drafts.
type Composer struct {
	gen     Generator
	log     *slog.Logger
	backoff time.Duration

	mu    sync.RWMutex
	style config.TweetStyle
	ai    config.AISettings
}

// New creates a Composer over the given generation backend.
func New(gen Generator, style config.TweetStyle, ai config.AISettings, log *slog.Logger) *Composer {
	return &Composer{
		gen:     gen,
		log:     log,
		backoff: 500 * time.Millisecond,
		style:   style,
		ai:      ai,
	}
}

// SetBackoff overrides the delay between generation attempts.
func (c *Composer) SetBackoff(d time.Duration) {
	c.backoff = d
}

// ApplyConfig replaces the style and generation settings without restart.
func (c *Composer) ApplyConfig(style config.TweetStyle, ai config.AISettings) {
	c.mu.Lock()
	c.style = style
	c.ai = ai
	c.mu.Unlock()
	c.log.Info("composer settings updated", "model", ai.Model, "temperature", ai.Temperature)
}

// Compose generates a draft for the article using the configured
// temperature.
func (c *Composer) Compose(ctx context.Context, article model.Article) (*model.Draft, error) {
	c.mu.RLock()
	temp := c.ai.Temperature
	c.mu.RUnlock()
	return c.ComposeWithTemperature(ctx, article, temp)
}

// ComposeWithTemperature generates a draft with an explicit temperature,
// used by the dashboard's regenerate flow. One hashtag set is sampled per
// call and used for both the length check and the final text, so the two
// always agree.
func (c *Composer) ComposeWithTemperature(ctx context.Context, article model.Article, temperature float32) (*model.Draft, error) {
	c.mu.RLock()
	style := c.style
	ai := c.ai
	c.mu.RUnlock()

	hashtags := sampleHashtags(style.Hashtags, style.MaxHashtags)
	prompt := buildPrompt(article, style.MaxHashtags)

	var content string
	backoff := retry.WithMaxRetries(uint64(ai.MaxRetries-1), retry.NewConstant(c.backoff))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		text, err := c.gen.Generate(ctx, prompt, temperature, ai.MaxOutputTokens)
		if err != nil {
			c.log.Warn("generation attempt failed", "error", err)
			return retry.RetryableError(err)
		}

		text = strings.TrimSpace(text)
		if err := validate(text, hashtags, article.Link, style.MaxLength); err != nil {
			c.log.Warn("draft failed validation, retrying", "reason", err)
			return retry.RetryableError(err)
		}

		content = text
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w (after %d attempts): %v", ErrGenerationFailed, ai.MaxRetries, err)
	}

	full := FormatTweet(content, hashtags, article.Link)
	c.log.Info("draft composed", "chars", utf8.RuneCountInString(full))

	return &model.Draft{
		Content:  content,
		FullText: full,
		Article:  article,
	}, nil
}

// validate rejects degenerate backend output: bodies under the minimum
// length, echoed-instruction artifacts, and drafts that would exceed the
// length cap once hashtags and the link are appended.
func validate(content string, hashtags []string, link string, maxLength int) error {
	if utf8.RuneCountInString(content) < minContentLen {
		return fmt.Errorf("body too short (%d chars)", utf8.RuneCountInString(content))
	}
	if strings.HasPrefix(content, `"`) || strings.HasPrefix(content, "Tweet:") {
		return fmt.Errorf("body has formatting artifacts")
	}
	full := FormatTweet(content, hashtags, link)
	if n := utf8.RuneCountInString(full); n > maxLength {
		return fmt.Errorf("tweet too long: %d chars (max %d)", n, maxLength)
	}
	return nil
}

// FormatTweet joins the body, hashtags, and link with single spaces. An
// empty hashtag set produces no extra separator.
func FormatTweet(content string, hashtags []string, link string) string {
	parts := []string{content}
	if len(hashtags) > 0 {
		parts = append(parts, strings.Join(hashtags, " "))
	}
	if link != "" {
		parts = append(parts, link)
	}
	return strings.Join(parts, " ")
}

// sampleHashtags picks up to max hashtags from the pool without
// replacement. A pool smaller than max yields the whole pool.
func sampleHashtags(pool []string, max int) []string {
	if max <= 0 || len(pool) == 0 {
		return nil
	}
	n := max
	if n > len(pool) {
		n = len(pool)
	}
	picked := make([]string, 0, n)
	for _, i := range rand.Perm(len(pool))[:n] {
		picked = append(picked, pool[i])
	}
	return picked
}
