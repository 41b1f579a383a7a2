// Package health polls the registry's health surface on a fixed cadence and
// shapes the results for the dashboard.
//
// The Poller fetches the aggregate summary and the windowed components report
// concurrently each cycle and swaps them in as one atomic pair — consumers
// never observe a summary from one cycle paired with components from another.
// A failed cycle keeps the previous pair whole (stale-while-revalidate); the
// next tick is the retry, there is no backoff.
//
// Classify maps status tokens to severity tiers for rendering, failing open to
// unknown. Bucketize reshapes raw timeline samples into chart-ready points.
package health
