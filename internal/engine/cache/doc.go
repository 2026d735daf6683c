// Package cache provides expiring key/value stores for API payloads.
//
// Entries are opaque JSON blobs keyed by resource identity (the full
// catalog listing, or one item's order book). The stores record when
// each entry was written; freshness against a TTL is the caller's
// policy, so the same stored entry can serve lookups with different
// validity windows. Three implementations share the Store interface:
//   - FileStore: one JSON file per key under a configurable root,
//     written atomically, surviving across invocations
//   - MemoryStore: map-backed, for tests
//   - NullStore: always misses, selected when caching is disabled
package cache
