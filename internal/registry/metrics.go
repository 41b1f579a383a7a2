package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
)

// ErrNoMetricsEndpoint is returned by ScrapeMetrics when the registry's
// Prometheus exposition endpoint is not configured.
var ErrNoMetricsEndpoint = errors.New("registry: metrics endpoint not configured")

// requestFamilies are the counter families checked, in order, for per-route
// request totals. Registries expose one of these depending on their HTTP stack.
var requestFamilies = []string{
	"registry_http_requests_total",
	"http_requests_total",
}

// routeLabels are the label names that may carry the route.
var routeLabels = []string{"route", "path", "handler"}

// RouteCounts holds total request counts keyed by route.
type RouteCounts map[string]int64

// ScrapeMetrics reads the registry's Prometheus exposition endpoint and
// extracts per-route request totals. It exists as a fallback: some registry
// builds omit per_route from the health summary while still exporting the
// counters on /metrics. Only used when metrics_url is configured.
func (c *Client) ScrapeMetrics(ctx context.Context) (RouteCounts, error) {
	if c.metricsURL == "" {
		return nil, ErrNoMetricsEndpoint
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.metricsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("registry: build metrics request: %w", err)
	}
	req.Header.Set("Accept", string(expfmt.NewFormat(expfmt.TypeTextPlain)))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("registry: scrape metrics: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("registry: metrics endpoint returned HTTP %d", resp.StatusCode)
	}

	mfs, err := parseExposition(resp.Body)
	if err != nil {
		return nil, err
	}
	return routeCounts(mfs), nil
}

// parseExposition decodes a Prometheus text exposition into metric families.
// A partial result with a non-fatal parse warning is still returned successfully.
func parseExposition(r io.Reader) (map[string]*dto.MetricFamily, error) {
	var parser expfmt.TextParser
	mfs, err := parser.TextToMetricFamilies(r)
	if err != nil && len(mfs) == 0 {
		return nil, fmt.Errorf("registry: parse metrics exposition: %w", err)
	}
	return mfs, nil
}

// routeCounts sums the first recognized request-counter family by route label.
func routeCounts(mfs map[string]*dto.MetricFamily) RouteCounts {
	counts := make(RouteCounts)
	for _, name := range requestFamilies {
		mf, ok := mfs[name]
		if !ok {
			continue
		}
		for _, m := range mf.GetMetric() {
			route := routeOf(m)
			if route == "" {
				continue
			}
			switch {
			case m.Counter != nil:
				counts[route] += int64(m.Counter.GetValue())
			case m.Untyped != nil:
				counts[route] += int64(m.Untyped.GetValue())
			}
		}
		break
	}
	return counts
}

// routeOf returns the route label value of a metric, or empty.
func routeOf(m *dto.Metric) string {
	for _, lp := range m.GetLabel() {
		for _, want := range routeLabels {
			if lp.GetName() == want {
				return lp.GetValue()
			}
		}
	}
	return ""
}
