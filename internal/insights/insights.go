// Package insights turns the negative keyword bucket into a short list of
// natural-language recommendations via a fixed, ordered rule table.
package insights

import (
	"github.com/mhavryliuk/reviewlens/internal/nlp"
)

// topKeywords bounds how many negative keywords a rule can see.
const topKeywords = 50

// Rule fires when any of its trigger keywords appears among the top
// negative keywords. Matching is exact string equality on the (already
// lowercased) keyword, never substring containment.
type Rule struct {
	Triggers []string
	Message  string
}

// Fallback is emitted when no rule fires.
const Fallback = "Sentiment analysis did not highlight specific dominant issues. Continue monitoring."

// rules is evaluated in order; rules are independent, so several can fire
// on the same bucket. Extend by appending, not by editing conditions.
var rules = []Rule{
	{
		Triggers: []string{"price", "subscription", "pay"},
		Message:  "Pricing concerns detected. Consider revisiting subscription plans or offering trials.",
	},
	{
		Triggers: []string{"bug", "crash", "error", "issue"},
		Message:  "Users report stability issues. Prioritize bug fixes and QA.",
	},
	{
		Triggers: []string{"login", "account", "sign"},
		Message:  "Login or account issues prevalent. Simplify authentication flow.",
	},
	{
		Triggers: []string{"ads", "advert"},
		Message:  "Negative sentiment around ads. Evaluate frequency and placement of advertisements.",
	},
	{
		Triggers: []string{"slow", "lag", "performance"},
		Message:  "Performance issues noted. Optimize app speed and responsiveness.",
	},
	{
		Triggers: []string{"youtube", "streaming", "video", "channel"},
		Message:  "Users compare the app with YouTube/other streaming platforms and question the subscription's value. Clearly communicate unique offerings, consider content diversification, and evaluate pricing tiers.",
	},
}

// Generate evaluates the rule table against the negative keyword bucket
// and returns the fired messages in rule order, or the single fallback
// message when nothing fires. Scores are ignored; only keyword strings
// matter.
func Generate(negative []nlp.Keyword) []string {
	limit := min(len(negative), topKeywords)
	seen := make(map[string]struct{}, limit)
	for _, kw := range negative[:limit] {
		seen[kw.Keyword] = struct{}{}
	}

	var out []string
	for _, rule := range rules {
		for _, trigger := range rule.Triggers {
			if _, ok := seen[trigger]; ok {
				out = append(out, rule.Message)
				break
			}
		}
	}

	if len(out) == 0 {
		out = append(out, Fallback)
	}
	return out
}
