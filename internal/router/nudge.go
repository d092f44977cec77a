package router

import (
	"strings"

	"github.com/fentz26/toolrouter/internal/config"
)

// matchNudge scans userText against the configured keyword_nudge table and
// returns the discovery queries for the first category whose keywords
// appear in the text as whole words. Rewritten from the reference source's
// word-boundary keyword-rule matcher.
func matchNudge(userText string, rules []config.NudgeRule) (category string, queries []string, matched bool) {
	text := strings.ToLower(userText)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if containsWord(text, strings.ToLower(keyword)) {
				return rule.Category, rule.DiscoveryQueries, true
			}
		}
	}
	return "", nil, false
}

// containsWord reports whether text contains keyword as a standalone word.
// Multi-word keywords (e.g. "pull request") fall back to a substring match.
func containsWord(text, keyword string) bool {
	if strings.Contains(keyword, " ") {
		return strings.Contains(text, keyword)
	}
	for _, word := range strings.Fields(text) {
		cleaned := strings.Trim(word, ".,;:!?\"'()[]{}")
		if cleaned == keyword {
			return true
		}
	}
	return false
}
