package registry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
)

// Health fetches the registry's aggregate health summary. Non-2xx responses
// surface as errors; the poller decides what to do with a failed cycle.
func (c *Client) Health(ctx context.Context) (*HealthSnapshot, error) {
	var snap HealthSnapshot
	if err := c.do(ctx, http.MethodGet, "/health", nil, &snap); err != nil {
		return nil, err
	}
	if snap.Status == "" {
		// Fail open: the classifier renders an unrecognized status as unknown.
		snap.Status = "unknown"
	}
	return &snap, nil
}

// HealthComponents fetches the windowed per-component health report.
// windowMinutes and includeTimeline parameterize the server-side aggregation.
func (c *Client) HealthComponents(ctx context.Context, windowMinutes int, includeTimeline bool) (*ComponentsReport, error) {
	var report ComponentsReport
	path := fmt.Sprintf("/health/components?window_minutes=%d&include_timeline=%t",
		windowMinutes, includeTimeline)
	if err := c.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	if report.WindowMinutes == 0 {
		report.WindowMinutes = windowMinutes
	}
	for i := range report.Components {
		report.Components[i].Timeline = dropRegressions(
			report.Components[i].ID, report.Components[i].Timeline)
	}
	return &report, nil
}

// dropRegressions enforces the non-decreasing-bucket invariant without
// re-sorting: the server promises chronological order, so an entry whose
// bucket moves backwards is discarded rather than reshuffled.
func dropRegressions(componentID string, timeline []TimelinePoint) []TimelinePoint {
	if len(timeline) < 2 {
		return timeline
	}
	out := timeline[:1]
	for _, p := range timeline[1:] {
		if p.Bucket.Before(out[len(out)-1].Bucket) {
			slog.Warn("registry: dropping out-of-order timeline bucket",
				"component", componentID, "bucket", p.Bucket)
			continue
		}
		out = append(out, p)
	}
	return out
}
