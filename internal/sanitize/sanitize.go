// Package sanitize strips markup from user-entered text. Dish names, notes,
// eating-out locations and history comments are shown on the kiosk, so they
// are stored as plain text only. Uses bluemonday's strict policy, which drops
// every tag and the contents of script and style elements.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy.
// Initialized once via sync.Once for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

// getPolicy returns the shared sanitization policy, initializing it on first call.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all HTML from input and trims surrounding whitespace.
// Entities escaped by the policy are decoded again so "Mac & Cheese" is
// stored as typed.
func Text(input string) string {
	input = strings.TrimSpace(input)
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
