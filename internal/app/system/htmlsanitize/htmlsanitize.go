// Package htmlsanitize strips unsafe markup from user-generated content.
// Note bodies and project descriptions pass through Sanitize before any
// store write; scripts, event handlers, and javascript: URLs are removed
// while common formatting tags survive.
package htmlsanitize

import "github.com/microcosm-cc/bluemonday"

var policy = bluemonday.UGCPolicy()

// Sanitize returns s with disallowed HTML removed. Plain text passes
// through unchanged.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return policy.Sanitize(s)
}
