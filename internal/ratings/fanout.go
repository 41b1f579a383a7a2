// Package ratings merges canonical scores onto artifact listings by fanning
// out one rating request per model artifact. Failure is structural, not
// conventional: every item produces a Rated outcome, and a bad item can only
// ever degrade itself.
package ratings

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/registrypulse/registrypulse/internal/registry"
	"github.com/registrypulse/registrypulse/internal/score"
)

// maxConcurrent caps the number of rating requests in flight for one batch.
// The registry accepts unbounded parallelism, but a 500-row listing should not
// open 500 sockets; 8 keeps batch latency close to the slowest single fetch
// for typical page sizes.
const maxConcurrent = 8

// RatingSource fetches one raw rating per artifact id. Satisfied by
// *registry.Client. A (nil, nil) return means the rating does not exist yet.
type RatingSource interface {
	Rating(ctx context.Context, id string) (registry.RawRating, error)
}

// Rated is one listing row with its per-item rating outcome attached.
type Rated struct {
	registry.Artifact

	// Score is the canonical score; the zero value when no rating applies.
	Score score.Score `json:"score"`

	// HasRating is true when the registry returned a rating for this row.
	// False for non-model artifacts and for models not yet rated.
	HasRating bool `json:"has_rating"`

	// Degraded is true when this row's rating fetch failed for a reason other
	// than absence. The row itself is always kept.
	Degraded bool `json:"degraded"`
}

// AttachRatings fans out rating fetches for every model artifact and merges
// the outcomes back onto the listing.
//
// Guarantees:
//   - the result has exactly len(artifacts) rows, in input order, regardless
//     of completion order — outcomes are joined over the whole batch, never
//     raced;
//   - non-model artifacts get the zero score without a network call;
//   - a 404 (rating not computed yet) resolves to "no rating", not an error;
//   - any other per-id failure degrades that row only — siblings proceed and
//     the batch itself never fails.
func AttachRatings(ctx context.Context, src RatingSource, artifacts []registry.Artifact) []Rated {
	out := make([]Rated, len(artifacts))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrent)

	for i, a := range artifacts {
		i, a := i, a
		out[i] = Rated{Artifact: a}
		if a.Type != registry.TypeModel {
			continue
		}

		g.Go(func() error {
			raw, err := src.Rating(ctx, a.ID)
			switch {
			case err != nil:
				out[i].Degraded = true
			case raw == nil:
				// Not rated yet — the zero score stands.
			default:
				out[i].Score = score.Normalize(raw)
				out[i].HasRating = true
			}
			return nil
		})
	}

	// Workers never return errors; Wait is purely the batch barrier.
	_ = g.Wait()
	return out
}
