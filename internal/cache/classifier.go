package cache

import (
	"strings"
	"time"
)

// ClassifierFunc maps a query's text to the TTL its cached result gets.
// Classification is a textual heuristic, not semantic analysis: a query
// that is aggregate in spirit but phrased without recognized keywords
// falls back to the default TTL.
type ClassifierFunc func(query string) time.Duration

// TTLs holds the class-dependent expirations.
type TTLs struct {
	// Default applies to queries matching no recognized class.
	Default time.Duration

	// Aggregate applies to aggregate-shaped queries, which summarize
	// slowly-changing history and stay useful longer.
	Aggregate time.Duration

	// Realtime applies to queries textually referencing the current
	// moment, whose answers go stale quickly.
	Realtime time.Duration
}

// DefaultTTLs returns the stock expirations.
func DefaultTTLs() TTLs {
	return TTLs{
		Default:   5 * time.Minute,
		Aggregate: 30 * time.Minute,
		Realtime:  30 * time.Second,
	}
}

// aggregateMarkers are the textual signals of an aggregate-shaped query.
var aggregateMarkers = []string{
	"group by", "count(", "sum(", "avg(", "min(", "max(",
}

// realtimeMarkers are the textual signals that a query references the
// current moment.
var realtimeMarkers = []string{
	"now()", "current_timestamp", "current_date", "today",
}

// NewClassifier builds the stock classifier over the given TTLs.
// Aggregate shape wins over realtime markers when both appear.
func NewClassifier(ttls TTLs) ClassifierFunc {
	return func(query string) time.Duration {
		q := strings.ToLower(query)
		for _, marker := range aggregateMarkers {
			if strings.Contains(q, marker) {
				return ttls.Aggregate
			}
		}
		for _, marker := range realtimeMarkers {
			if strings.Contains(q, marker) {
				return ttls.Realtime
			}
		}
		return ttls.Default
	}
}
