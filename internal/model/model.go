// Package model defines the domain types used across the application.
package model

import "time"

// Article is a single normalized entry pulled from an RSS feed.
// Articles are identified by their link and are never persisted directly;
// only the posting outcome is recorded in the ledger.
type Article struct {
	Title           string     `json:"title"`
	Link            string     `json:"link"`
	Summary         string     `json:"summary"`
	Published       string     `json:"published"`
	PublishedParsed *time.Time `json:"published_parsed,omitempty"`
	Source          string     `json:"source"`
	FetchedAt       string     `json:"fetched_at"`
	IsPosted        bool       `json:"is_posted,omitempty"`
}

// PostRecord describes when and whether an article was published.
// A nil TweetID means the article was drafted or skipped on purpose and
// must not be selected again.
type PostRecord struct {
	URL      string  `json:"url"`
	Title    string  `json:"title"`
	PostedAt string  `json:"posted_at"`
	TweetID  *string `json:"tweet_id"`
	Source   string  `json:"source"`
}

// Draft is a fully formatted candidate tweet awaiting review or auto-post.
// Content is the AI-authored body; FullText adds hashtags and the link.
type Draft struct {
	Content  string  `json:"content"`
	FullText string  `json:"full_tweet"`
	Article  Article `json:"article"`
}
