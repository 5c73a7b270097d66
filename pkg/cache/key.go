package cache

import "strings"

// Key joins parts into a deterministic cache key, e.g.
// Key("forex", "EUR", "USD") -> "forex_EUR_USD".
func Key(parts ...string) string {
	return strings.Join(parts, "_")
}
