package api

import (
	"github.com/registrypulse/registrypulse/internal/health"
	"github.com/registrypulse/registrypulse/internal/ratings"
	"github.com/registrypulse/registrypulse/internal/registry"
	"github.com/registrypulse/registrypulse/internal/score"
)

// ListResponse is the payload for GET /api/v1/artifacts.
type ListResponse struct {
	Artifacts []ratings.Rated `json:"artifacts"`
	Cached    bool            `json:"cached"`
	Stale     bool            `json:"stale"`
	UpdatedAt string          `json:"updated_at,omitempty"` // RFC3339, set for cached responses
}

// DetailResponse is the payload for GET /api/v1/artifacts/{type}/{id}.
type DetailResponse struct {
	registry.ArtifactDetail
	Score     *score.Score `json:"score,omitempty"`
	HasRating bool         `json:"has_rating"`
	Degraded  bool         `json:"rating_degraded"`
}

// HealthView is the payload for GET /api/v1/health and the ws health event.
type HealthView struct {
	Status        string                  `json:"status"`
	Tier          string                  `json:"tier"`
	Icon          string                  `json:"icon"`
	ColorClass    string                  `json:"color_class"`
	CheckedAt     string                  `json:"checked_at,omitempty"` // RFC3339
	UptimeSeconds *float64                `json:"uptime_seconds,omitempty"`
	Requests      registry.RequestSummary `json:"requests"`
	WindowMinutes int                     `json:"window_minutes"`
	PolledAt      string                  `json:"polled_at"` // RFC3339
	Stale         bool                    `json:"stale"`
	CycleError    string                  `json:"cycle_error,omitempty"`
}

// ComponentView is one component row in GET /api/v1/health/components.
type ComponentView struct {
	ID          string              `json:"id"`
	DisplayName string              `json:"display_name,omitempty"`
	Status      string              `json:"status"`
	Tier        string              `json:"tier"`
	Icon        string              `json:"icon"`
	ColorClass  string              `json:"color_class"`
	ObservedAt  string              `json:"observed_at,omitempty"` // RFC3339
	Metrics     map[string]any      `json:"metrics,omitempty"`
	Issues      []registry.ComponentIssue `json:"issues,omitempty"`
	Timeline    []health.Point      `json:"timeline"`
}

// ComponentsResponse is the payload for GET /api/v1/health/components.
type ComponentsResponse struct {
	WindowMinutes int             `json:"window_minutes"`
	Components    []ComponentView `json:"components"`
	PolledAt      string          `json:"polled_at"` // RFC3339
	Stale         bool            `json:"stale"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}
