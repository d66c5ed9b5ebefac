// Package sanitize strips markup from user-provided text fields. The gateway
// stores and relays plain text only; anything that looks like HTML in a
// display name is hostile input, not formatting.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton strict policy: no elements, no attributes.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// Text removes all markup from input and returns the remaining plain text.
// Entities introduced by the sanitizer are unescaped again so names like
// "O'Brien & Sons" survive the round trip unchanged.
func Text(input string) string {
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
