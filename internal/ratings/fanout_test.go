package ratings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/registrypulse/registrypulse/internal/registry"
	"github.com/registrypulse/registrypulse/internal/score"
)

// sourceFunc adapts a function to the RatingSource interface.
type sourceFunc func(ctx context.Context, id string) (registry.RawRating, error)

func (f sourceFunc) Rating(ctx context.Context, id string) (registry.RawRating, error) {
	return f(ctx, id)
}

// models builds n model artifacts with ids m0..m(n-1).
func models(n int) []registry.Artifact {
	out := make([]registry.Artifact, n)
	for i := range out {
		out[i] = registry.Artifact{
			ID:   fmt.Sprintf("m%d", i),
			Name: fmt.Sprintf("model-%d", i),
			Type: registry.TypeModel,
		}
	}
	return out
}

// --- Order and completeness ---

func TestAttachRatings_OrderMatchesInputDespiteLatency(t *testing.T) {
	in := models(10)

	// Earlier rows finish last: the slowest fetch belongs to m0.
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		var i int
		fmt.Sscanf(id, "m%d", &i)
		time.Sleep(time.Duration(10-i) * 5 * time.Millisecond)
		return registry.RawRating{"net_score": float64(i) / 10}, nil
	})

	got := AttachRatings(context.Background(), src, in)
	if len(got) != len(in) {
		t.Fatalf("len = %d, want %d", len(got), len(in))
	}
	for i, r := range got {
		if r.ID != in[i].ID {
			t.Errorf("row %d = %s, want %s (assembly order must match input)", i, r.ID, in[i].ID)
		}
		wantOverall := float64(i) / 10 * 5
		if r.Score.Overall != wantOverall {
			t.Errorf("row %d Overall = %v, want %v", i, r.Score.Overall, wantOverall)
		}
	}
}

func TestAttachRatings_EmptyInput(t *testing.T) {
	got := AttachRatings(context.Background(), sourceFunc(nil), nil)
	if len(got) != 0 {
		t.Errorf("len = %d, want 0", len(got))
	}
}

// --- Per-item isolation ---

func TestAttachRatings_One404AmongFive(t *testing.T) {
	in := models(5)
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		if id == "m2" {
			return nil, nil // 404 → absence
		}
		return registry.RawRating{"net_score": 1.0}, nil
	})

	got := AttachRatings(context.Background(), src, in)
	for i, r := range got {
		if i == 2 {
			if r.HasRating || r.Degraded || r.Score != (score.Score{}) {
				t.Errorf("m2 = %+v, want zero score, not rated, not degraded", r)
			}
			continue
		}
		if !r.HasRating || r.Score.Overall != 5.0 {
			t.Errorf("row %d = %+v, want rated with Overall 5", i, r)
		}
	}
}

func TestAttachRatings_FailureIsolatedToOneRow(t *testing.T) {
	in := models(5)
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		if id == "m3" {
			return nil, errors.New("scorer timeout")
		}
		return registry.RawRating{"net_score": 0.5}, nil
	})

	got := AttachRatings(context.Background(), src, in)
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5 (batch must not fail)", len(got))
	}
	for i, r := range got {
		if i == 3 {
			if !r.Degraded || r.HasRating {
				t.Errorf("m3 = %+v, want degraded with zero score", r)
			}
			continue
		}
		if r.Degraded || !r.HasRating {
			t.Errorf("row %d = %+v, siblings must be unaffected", i, r)
		}
	}
}

// --- Non-model artifacts ---

func TestAttachRatings_OnlyModelsFetch(t *testing.T) {
	in := []registry.Artifact{
		{ID: "m1", Name: "model", Type: registry.TypeModel},
		{ID: "d1", Name: "dataset", Type: registry.TypeDataset},
		{ID: "c1", Name: "code", Type: registry.TypeCode},
	}

	var mu sync.Mutex
	called := map[string]bool{}
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		mu.Lock()
		called[id] = true
		mu.Unlock()
		return registry.RawRating{"net_score": 0.8}, nil
	})

	got := AttachRatings(context.Background(), src, in)
	if len(called) != 1 || !called["m1"] {
		t.Errorf("fetched ids = %v, want only m1", called)
	}
	if !got[0].HasRating {
		t.Errorf("model row = %+v, want rated", got[0])
	}
	for _, i := range []int{1, 2} {
		if got[i].HasRating || got[i].Degraded || got[i].Score != (score.Score{}) {
			t.Errorf("non-model row %d = %+v, want deterministic zero score", i, got[i])
		}
	}
}

// --- Concurrency shape ---

func TestAttachRatings_BoundedConcurrentFanOut(t *testing.T) {
	in := models(32)

	var inFlight, peak atomic.Int64
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		return registry.RawRating{"net_score": 0.5}, nil
	})

	AttachRatings(context.Background(), src, in)

	if p := peak.Load(); p < 2 {
		t.Errorf("peak in-flight = %d, want concurrent fan-out (>1)", p)
	}
	if p := peak.Load(); p > maxConcurrent {
		t.Errorf("peak in-flight = %d, want <= cap %d", p, maxConcurrent)
	}
}

// --- Idempotence ---

func TestAttachRatings_Idempotent(t *testing.T) {
	in := models(6)
	src := sourceFunc(func(ctx context.Context, id string) (registry.RawRating, error) {
		switch id {
		case "m1":
			return nil, nil
		case "m4":
			return nil, errors.New("boom")
		default:
			return registry.RawRating{"overall_score": 70.0}, nil
		}
	})

	first := AttachRatings(context.Background(), src, in)
	second := AttachRatings(context.Background(), src, in)
	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated call differs (-first +second):\n%s", diff)
	}
}
