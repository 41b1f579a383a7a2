// Package score converts the registry's heterogeneous rating payloads into the
// canonical score model used uniformly across the dashboard.
//
// The rating endpoint has gone through several generations: older responses
// carry fractional 0–1 metrics (net_score, tree_score), a later surface returns
// 0–100 percentages (overall_score, code_review_score), and the newest fields
// arrive pre-scaled to the canonical range. A single response may mix
// generations, so conversion is keyed per field name, never per response.
//
// Normalize is total: nil or malformed input yields the all-zero Score and
// every output field is clamped to its declared range.
package score
