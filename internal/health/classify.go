package health

import "strings"

// Tier is the severity bucket a status token classifies into.
type Tier string

const (
	TierOK       Tier = "ok"
	TierDegraded Tier = "degraded"
	TierCritical Tier = "critical"
	TierUnknown  Tier = "unknown"
)

// Classification is the presentation mapping for one status token.
type Classification struct {
	Tier       Tier   `json:"tier"`
	Icon       string `json:"icon"`
	ColorClass string `json:"color_class"`
}

var classifications = map[Tier]Classification{
	TierOK:       {Tier: TierOK, Icon: "check-circle", ColorClass: "status-ok"},
	TierDegraded: {Tier: TierDegraded, Icon: "alert-triangle", ColorClass: "status-degraded"},
	TierCritical: {Tier: TierCritical, Icon: "x-octagon", ColorClass: "status-critical"},
	TierUnknown:  {Tier: TierUnknown, Icon: "help-circle", ColorClass: "status-unknown"},
}

// Classify maps a status token from the registry to its severity tier and
// presentation hints. Unrecognized tokens classify as unknown — a fail-open
// rendering state, never an error.
//
// The aggregate dashboard status is always the classification of the
// summary's own status field; it is never recomputed from component statuses.
// Components may individually degrade without flipping the top-level status —
// that call belongs to the registry.
func Classify(status string) Classification {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "ok", "healthy", "up", "operational", "pass":
		return classifications[TierOK]
	case "degraded", "warning", "warn", "partial":
		return classifications[TierDegraded]
	case "critical", "down", "error", "unhealthy", "fail", "failed":
		return classifications[TierCritical]
	default:
		return classifications[TierUnknown]
	}
}
