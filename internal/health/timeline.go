package health

import (
	"github.com/registrypulse/registrypulse/internal/registry"
)

// bucketLabel is the chart axis label format. Presentation detail only — the
// contract is the ordering, not the formatting.
const bucketLabel = "15:04"

// Point is one chart-ready timeline sample.
type Point struct {
	Time  string  `json:"time"`
	Value float64 `json:"value"`
}

// Bucketize reshapes a raw timeline into ordered chart points. Input order is
// preserved as-is — the decode layer already guarantees non-decreasing
// buckets, and Bucketize never re-sorts. A nil or empty timeline yields an
// empty, non-nil slice.
func Bucketize(timeline []registry.TimelinePoint) []Point {
	out := make([]Point, 0, len(timeline))
	for _, p := range timeline {
		out = append(out, Point{
			Time:  p.Bucket.UTC().Format(bucketLabel),
			Value: p.Value,
		})
	}
	return out
}
