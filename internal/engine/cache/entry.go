package cache

import (
	"encoding/json"
	"time"
)

// Entry is a single cached payload with its write timestamp. The
// payload is opaque to the store; only the caller knows its shape.
type Entry struct {
	// Key is the resource identity this entry was stored under.
	Key string `json:"key"`

	// Payload is the cached response body, stored verbatim.
	Payload json.RawMessage `json:"payload"`

	// StoredAt is when the entry was written.
	StoredAt time.Time `json:"stored_at"`
}

// Age returns how long ago the entry was written.
func (e *Entry) Age(now time.Time) time.Duration {
	return now.Sub(e.StoredAt)
}

// Fresh reports whether the entry is still valid at now for the given
// TTL. An entry is fresh strictly while its age is below the TTL.
func (e *Entry) Fresh(now time.Time, ttl time.Duration) bool {
	return e.Age(now) < ttl
}
