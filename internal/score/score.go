package score

import (
	"math"
	"strconv"
)

// Canonical range limits. Overall, Quality, TreeScore and Documentation are
// 0–5 star-style metrics; Reproducibility and Reviewedness are 0–1 ratios.
const (
	maxStars = 5.0
	maxRatio = 1.0
)

// Score is the canonical rating representation. Every field is always present;
// a metric the registry has not computed is simply 0.
type Score struct {
	Overall       float64 `json:"overall"`       // 0–5
	Quality       float64 `json:"quality"`       // 0–5
	TreeScore     float64 `json:"treescore"`     // 0–5
	Documentation float64 `json:"documentation"` // 0–5

	Reproducibility float64 `json:"reproducibility"` // 0–1
	Reviewedness    float64 `json:"reviewedness"`    // 0–1
}

// conversion describes how one source field maps onto a canonical field.
type conversion int

const (
	// fractional is a 0–1 input scaled up to 0–5.
	fractional conversion = iota
	// percentToStars is a 0–100 input scaled down to 0–5.
	percentToStars
	// percentToRatio is a 0–100 input scaled down to 0–1.
	percentToRatio
	// ratio is a 0–1 input used as-is.
	ratio
	// stars is a pre-scaled 0–5 input used as-is.
	stars
)

// source names one accepted field key and the conversion rule for that key.
type source struct {
	key  string
	conv conversion
}

// fieldSources maps each canonical field to its accepted source keys, in
// priority order. The first key present in the raw record wins. Keys from
// different API generations may appear in the same record; each canonical
// field resolves independently.
var fieldSources = map[string][]source{
	"overall": {
		{"net_score", fractional},
		{"overall_score", percentToStars},
		{"overall", stars},
	},
	"quality": {
		{"code_quality", fractional},
		{"quality_score", percentToStars},
		{"quality", stars},
	},
	"treescore": {
		{"tree_score", fractional},
		{"treescore_pct", percentToStars},
		{"treescore", stars},
	},
	"documentation": {
		{"dataset_and_code_score", fractional},
		{"documentation_score", percentToStars},
		{"documentation", stars},
	},
	"reproducibility": {
		{"reproducibility", ratio},
		{"reproducibility_score", percentToRatio},
	},
	"reviewedness": {
		{"reviewedness", ratio},
		{"code_review_score", percentToRatio},
	},
}

// Normalize converts a raw rating record into the canonical Score.
//
// Normalize is a total function: nil input, missing fields, non-numeric values
// and out-of-range values all degrade to 0 for the affected field. It never
// panics.
func Normalize(raw map[string]any) Score {
	if len(raw) == 0 {
		return Score{}
	}
	return Score{
		Overall:         resolve(raw, "overall"),
		Quality:         resolve(raw, "quality"),
		TreeScore:       resolve(raw, "treescore"),
		Documentation:   resolve(raw, "documentation"),
		Reproducibility: resolve(raw, "reproducibility"),
		Reviewedness:    resolve(raw, "reviewedness"),
	}
}

// resolve finds the first present source key for field and applies its
// conversion, clamped to the canonical range.
func resolve(raw map[string]any, field string) float64 {
	for _, src := range fieldSources[field] {
		v, ok := raw[src.key]
		if !ok {
			continue
		}
		n, ok := toFloat(v)
		if !ok {
			continue
		}
		return convert(n, src.conv)
	}
	return 0
}

// convert applies a conversion rule and clamps the result.
func convert(v float64, conv conversion) float64 {
	switch conv {
	case fractional:
		return clamp(v*maxStars, maxStars)
	case percentToStars:
		return clamp(v/20, maxStars)
	case percentToRatio:
		return clamp(v/100, maxRatio)
	case ratio:
		return clamp(v, maxRatio)
	default: // stars
		return clamp(v, maxStars)
	}
}

// toFloat extracts a finite numeric value from a decoded JSON field.
// Numeric strings are accepted — some registry surfaces quote their numbers.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// clamp restricts v to the range [0, max].
func clamp(v, max float64) float64 {
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
