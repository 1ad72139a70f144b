// Package filter matches fetched articles against topic preferences.
package filter

import (
	"strings"

	"github.com/sidwashere/Twitter-News-Curator/internal/config"
	"github.com/sidwashere/Twitter-News-Curator/internal/model"
)

// Match checks whether an article passes the topic preferences.
// Exclude keywords use AND logic (none may match); include keywords use OR
// logic (at least one must match when any are configured). Matching is a
// case-insensitive substring test over title and summary.
func Match(a model.Article, prefs config.TopicPreferences) bool {
	text := strings.ToLower(a.Title + " " + a.Summary)

	for _, kw := range prefs.Exclude {
		kw = strings.TrimSpace(kw)
		if kw != "" && strings.Contains(text, strings.ToLower(kw)) {
			return false
		}
	}

	hasIncludes := false
	for _, kw := range prefs.Include {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		hasIncludes = true
		if strings.Contains(text, strings.ToLower(kw)) {
			return true
		}
	}
	return !hasIncludes
}

// Apply returns the articles that pass the topic preferences, preserving
// their order.
func Apply(articles []model.Article, prefs config.TopicPreferences) []model.Article {
	if len(prefs.Include) == 0 && len(prefs.Exclude) == 0 {
		return articles
	}
	var kept []model.Article
	for _, a := range articles {
		if Match(a, prefs) {
			kept = append(kept, a)
		}
	}
	return kept
}
