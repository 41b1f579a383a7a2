package alerts

import (
	"strconv"
	"strings"

	"github.com/registrypulse/registrypulse/internal/health"
)

// registrySubject is the subject used for conditions over the aggregate
// snapshot, as opposed to per-component conditions.
const registrySubject = "registry"

// match is one (subject, value) pair a condition fired on.
type match struct {
	subject string
	value   float64
}

// evalCondition evaluates a rule condition string against a health pair.
//
// Supported expressions (field operator value):
//
//	status == critical
//	status == degraded
//	component_status == critical
//	components_critical > 0
//	components_degraded > 1
//	components_unknown > 0
//	total_requests < 10
//	unique_clients < 1
//	uptime_seconds < 600
//
// status fields compare classified severity tiers, so "status == critical"
// fires for any token the classifier maps to the critical tier ("down",
// "unhealthy", ...). component_status produces one match per component.
//
// Returns no matches if the expression cannot be parsed or the field is unknown.
func evalCondition(cond string, pair *health.Pair) []match {
	parts := strings.Fields(cond)
	if len(parts) != 3 || pair == nil || pair.Summary == nil {
		return nil
	}
	field, op, rhs := parts[0], parts[1], parts[2]

	switch field {
	case "status":
		if op != "==" {
			return nil
		}
		if string(health.Classify(pair.Summary.Status).Tier) == rhs {
			return []match{{subject: registrySubject}}
		}
		return nil

	case "component_status":
		if op != "==" {
			return nil
		}
		var out []match
		for _, c := range pair.Components {
			if string(health.Classify(c.Status).Tier) == rhs {
				out = append(out, match{subject: c.ID})
			}
		}
		return out

	default:
		threshold, err := strconv.ParseFloat(rhs, 64)
		if err != nil {
			return nil
		}
		v, ok := numericField(field, pair)
		if !ok {
			return nil
		}
		if compareFloat(v, op, threshold) {
			return []match{{subject: registrySubject, value: v}}
		}
		return nil
	}
}

// numericField maps a field name to its value in the pair.
func numericField(field string, pair *health.Pair) (float64, bool) {
	switch field {
	case "total_requests":
		return float64(pair.Summary.RequestSummary.TotalRequests), true
	case "unique_clients":
		return float64(pair.Summary.RequestSummary.UniqueClients), true
	case "uptime_seconds":
		if pair.Summary.UptimeSeconds == nil {
			return 0, false
		}
		return *pair.Summary.UptimeSeconds, true
	case "components_critical":
		return float64(countTier(pair, health.TierCritical)), true
	case "components_degraded":
		return float64(countTier(pair, health.TierDegraded)), true
	case "components_unknown":
		return float64(countTier(pair, health.TierUnknown)), true
	default:
		return 0, false
	}
}

// countTier counts components whose status classifies into tier.
func countTier(pair *health.Pair, tier health.Tier) int {
	n := 0
	for _, c := range pair.Components {
		if health.Classify(c.Status).Tier == tier {
			n++
		}
	}
	return n
}

// compareFloat applies a comparison operator to two float64 values.
func compareFloat(v float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return v > threshold
	case ">=":
		return v >= threshold
	case "<":
		return v < threshold
	case "<=":
		return v <= threshold
	case "==":
		return v == threshold
	default:
		return false
	}
}
