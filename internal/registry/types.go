package registry

import "time"

// ArtifactType distinguishes the three artifact kinds the registry stores.
// Only model artifacts carry ratings.
type ArtifactType string

const (
	TypeModel   ArtifactType = "model"
	TypeDataset ArtifactType = "dataset"
	TypeCode    ArtifactType = "code"
)

// ValidType reports whether t is one of the known artifact types.
func ValidType(t ArtifactType) bool {
	switch t {
	case TypeModel, TypeDataset, TypeCode:
		return true
	}
	return false
}

// Artifact is one listing entry. Immutable once fetched.
type Artifact struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ArtifactType `json:"type"`
	SourceURL string       `json:"source_url"`
}

// ArtifactDetail is the full record returned by a by-id lookup.
type ArtifactDetail struct {
	Artifact
	URL         string         `json:"url"`
	DownloadURL string         `json:"download_url"`
	Lineage     []LineageEntry `json:"lineage,omitempty"`
}

// LineageEntry links an artifact to one of its ancestors or derivatives.
type LineageEntry struct {
	ID       string `json:"id"`
	Relation string `json:"relation,omitempty"`
}

// RawRating is the untyped record returned by the rating endpoint. Field names
// and value ranges vary by endpoint generation; it is never assumed
// well-formed. Package score owns its interpretation.
type RawRating map[string]any

// IngestRequest asks the registry to ingest a model from a source URL.
type IngestRequest struct {
	URL  string `json:"url"`
	Name string `json:"name,omitempty"`
}

// IngestReceipt acknowledges an accepted ingest.
type IngestReceipt struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HealthSnapshot is the registry's own aggregate health report.
type HealthSnapshot struct {
	Status        string         `json:"status"`
	CheckedAt     time.Time      `json:"checked_at"`
	UptimeSeconds *float64       `json:"uptime_seconds,omitempty"`
	RequestSummary RequestSummary `json:"request_summary"`
}

// RequestSummary aggregates request traffic over the health window.
type RequestSummary struct {
	TotalRequests   int64            `json:"total_requests"`
	UniqueClients   int64            `json:"unique_clients"`
	PerRoute        map[string]int64 `json:"per_route"`
	PerArtifactType map[string]int64 `json:"per_artifact_type"`
	WindowStart     time.Time        `json:"window_start"`
	WindowEnd       time.Time        `json:"window_end"`
}

// ComponentsReport is the windowed per-component health breakdown.
type ComponentsReport struct {
	WindowMinutes int               `json:"window_minutes"`
	Components    []ComponentHealth `json:"components"`
}

// ComponentHealth describes one registry subsystem within the window.
type ComponentHealth struct {
	ID          string           `json:"id"`
	DisplayName string           `json:"display_name"`
	Status      string           `json:"status"`
	ObservedAt  time.Time        `json:"observed_at"`
	Metrics     map[string]any   `json:"metrics,omitempty"`
	Issues      []ComponentIssue `json:"issues,omitempty"`
	Timeline    []TimelinePoint  `json:"timeline,omitempty"`
}

// ComponentIssue is one problem the registry reports for a component.
type ComponentIssue struct {
	Severity string `json:"severity"` // info | warning | error
	Summary  string `json:"summary"`
	Details  string `json:"details,omitempty"`
}

// TimelinePoint is one aggregated sample within the health window.
type TimelinePoint struct {
	Bucket time.Time `json:"bucket"`
	Value  float64   `json:"value"`
}
