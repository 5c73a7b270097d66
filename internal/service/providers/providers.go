package providers

// Adapters for the five external data sources. Each one builds its
// provider-specific request, surfaces embedded error and rate-limit markers
// as typed failures, and hands back a Payload for the unified fetcher to
// normalize.

// periodDays maps a history period to the number of daily bars requested.
func periodDays(period string) int {
	switch period {
	case "1d":
		return 1
	case "1w":
		return 7
	case "1m":
		return 30
	case "3m":
		return 90
	case "1y":
		return 365
	default:
		return 30
	}
}
