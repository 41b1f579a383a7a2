// Package api implements the dashboard's HTTP surface: artifact search and
// detail pages backed by the registry client, ingest pass-through, and health
// views served from the poller's last known pair. Listing responses are cached
// with a short TTL; stale cache entries are served with a stale marker when the
// upstream registry is unreachable.
package api
