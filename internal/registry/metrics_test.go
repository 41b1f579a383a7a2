package registry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/registrypulse/registrypulse/internal/config"
)

const exposition = `# HELP registry_http_requests_total Total HTTP requests.
# TYPE registry_http_requests_total counter
registry_http_requests_total{route="/artifacts",method="POST"} 812
registry_http_requests_total{route="/health",method="GET"} 240
registry_http_requests_total{route="/artifacts",method="GET"} 80
registry_http_requests_total{method="GET"} 5
`

func TestScrapeMetrics_SumsByRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w.Write([]byte(exposition))
	}))
	defer srv.Close()

	c, err := New(config.RegistryConfig{
		BaseURL:    srv.URL,
		MetricsURL: srv.URL + "/metrics",
		Timeout:    5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	counts, err := c.ScrapeMetrics(context.Background())
	if err != nil {
		t.Fatalf("ScrapeMetrics: %v", err)
	}
	if counts["/artifacts"] != 892 {
		t.Errorf("/artifacts = %d, want 892 (summed across methods)", counts["/artifacts"])
	}
	if counts["/health"] != 240 {
		t.Errorf("/health = %d, want 240", counts["/health"])
	}
	// Series without a route label contribute nothing.
	if len(counts) != 2 {
		t.Errorf("counts = %v, want 2 routes", counts)
	}
}

func TestScrapeMetrics_Unconfigured(t *testing.T) {
	c, err := New(config.RegistryConfig{BaseURL: "http://registry.local", Timeout: time.Second})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.ScrapeMetrics(context.Background()); !errors.Is(err, ErrNoMetricsEndpoint) {
		t.Errorf("err = %v, want ErrNoMetricsEndpoint", err)
	}
}
