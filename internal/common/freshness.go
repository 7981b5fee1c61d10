// Package common provides shared utilities for CryptoMarket
package common

import "time"

// Freshness TTLs for cached data components
const (
	FreshnessSnapshot = 2 * time.Minute  // market snapshot, refreshed every 60s
	FreshnessDetail   = 1 * time.Minute  // per-asset detail
	FreshnessNews     = 5 * time.Minute  // news articles
	FreshnessChart    = 10 * time.Minute // rendered trend charts
)

// IsFresh returns true if the given timestamp is within the TTL
func IsFresh(updated time.Time, ttl time.Duration) bool {
	if updated.IsZero() {
		return false
	}
	return time.Since(updated) < ttl
}
