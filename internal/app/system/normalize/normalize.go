// Package normalize cleans user-entered identity fields before storage or
// comparison. Every write path and lookup goes through these so that
// "User@Example.COM " and "user@example.com" are the same account.
package normalize

import "strings"

// Email lowercases and trims an email address.
func Email(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// Name trims surrounding whitespace; case is preserved.
func Name(s string) string {
	return strings.TrimSpace(s)
}

// Role lowercases and trims a role value for table lookups.
func Role(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
