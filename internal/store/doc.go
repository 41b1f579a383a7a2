// Package store caches rated artifact listings in memory, keyed by the filter
// that produced them. Entries expire on a TTL so the browse view can serve the
// last good listing while a refresh is in flight or has failed.
package store
