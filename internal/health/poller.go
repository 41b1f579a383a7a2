package health

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/registrypulse/registrypulse/internal/config"
	"github.com/registrypulse/registrypulse/internal/registry"
)

// DefaultInterval is the poll cadence used when Options.Interval is zero.
const DefaultInterval = 30 * time.Second

// Fetcher is the health surface of the registry client.
type Fetcher interface {
	Health(ctx context.Context) (*registry.HealthSnapshot, error)
	HealthComponents(ctx context.Context, windowMinutes int, includeTimeline bool) (*registry.ComponentsReport, error)
}

// MetricsSource is optionally implemented by fetchers that can scrape the
// registry's Prometheus endpoint for per-route request counts.
type MetricsSource interface {
	ScrapeMetrics(ctx context.Context) (registry.RouteCounts, error)
}

// Pair is one atomic poll result: the summary and the components report from
// the same cycle, fetched with the same window parameters. Consumers must
// treat it as immutable.
type Pair struct {
	Summary       *registry.HealthSnapshot
	Components    []registry.ComponentHealth
	WindowMinutes int
	Timeline      bool
	PolledAt      time.Time
}

// Options configures a Poller.
type Options struct {
	// WindowMinutes is the trailing window requested each cycle (15, 30 or 60).
	WindowMinutes int

	// IncludeTimeline requests time-bucketed samples with the components.
	IncludeTimeline bool

	// Interval between polls. Defaults to DefaultInterval.
	Interval time.Duration

	// OnUpdate, if set, is called after every successful pair swap. Invoked
	// from the poll goroutine; keep it fast or hand off.
	OnUpdate func(*Pair)
}

// Poller drives the health fetch cadence. It is the sole writer of the current
// pair; readers get it through Current. Run must be called exactly once.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	onUpdate func(*Pair)

	mu       sync.Mutex
	window   int
	timeline bool
	gen      uint64 // bumped by SetWindow; stale cycles discard their result
	current  *Pair
	lastErr  error

	kick chan struct{}
	now  func() time.Time // injectable for deterministic tests
}

// NewPoller builds a Poller. It does not start polling — call Run.
func NewPoller(f Fetcher, opts Options) (*Poller, error) {
	if !config.ValidWindow(opts.WindowMinutes) {
		return nil, fmt.Errorf("health: unsupported window %d minutes", opts.WindowMinutes)
	}
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Poller{
		fetcher:  f,
		interval: interval,
		onUpdate: opts.OnUpdate,
		window:   opts.WindowMinutes,
		timeline: opts.IncludeTimeline,
		kick:     make(chan struct{}, 1),
		now:      time.Now,
	}, nil
}

// Run polls immediately, then on every interval tick, until ctx is cancelled.
// SetWindow kicks restart the cadence with a fresh poll instead of waiting out
// the running interval. Cancellation is deterministic: once ctx is done, no
// in-flight fetch can update state.
func (p *Poller) Run(ctx context.Context) {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-p.kick:
			t.Reset(p.interval)
			p.poll(ctx)
		case <-t.C:
			p.poll(ctx)
		}
	}
}

// SetWindow changes the poll parameters and restarts the cadence immediately.
// Unsupported windows are rejected. Safe to call from any goroutine; a cycle
// already in flight with the old parameters discards its result.
func (p *Poller) SetWindow(minutes int, includeTimeline bool) error {
	if !config.ValidWindow(minutes) {
		return fmt.Errorf("health: unsupported window %d minutes", minutes)
	}

	p.mu.Lock()
	if p.window == minutes && p.timeline == includeTimeline {
		p.mu.Unlock()
		return nil
	}
	p.window = minutes
	p.timeline = includeTimeline
	p.gen++
	p.mu.Unlock()

	select {
	case p.kick <- struct{}{}:
	default: // a restart is already pending
	}
	return nil
}

// Current returns the latest good pair and the error from the most recent
// cycle, if it failed. A nil pair with a nil error means no cycle has
// completed yet. A non-nil pair alongside a non-nil error is the
// stale-while-revalidate state: show the pair, flag it stale.
func (p *Poller) Current() (*Pair, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current, p.lastErr
}

// poll runs one cycle: both requests concurrently, then an all-or-nothing
// swap. A partial failure never replaces half the previous pair.
func (p *Poller) poll(ctx context.Context) {
	p.mu.Lock()
	window, timeline, gen := p.window, p.timeline, p.gen
	p.mu.Unlock()

	var (
		summary *registry.HealthSnapshot
		report  *registry.ComponentsReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = p.fetcher.Health(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		report, err = p.fetcher.HealthComponents(gctx, window, timeline)
		return err
	})
	err := g.Wait()

	// Results from a cancelled or superseded cycle are discarded, even if the
	// fetches themselves succeeded.
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		p.mu.Lock()
		if p.gen == gen {
			p.lastErr = err
		}
		p.mu.Unlock()
		slog.Warn("health: poll cycle failed — keeping previous snapshot", "err", err)
		return
	}

	pair := &Pair{
		Summary:       summary,
		Components:    report.Components,
		WindowMinutes: window,
		Timeline:      timeline,
		PolledAt:      p.now(),
	}
	p.enrichRoutes(ctx, pair)

	p.mu.Lock()
	if p.gen != gen {
		p.mu.Unlock()
		return
	}
	p.current = pair
	p.lastErr = nil
	onUpdate := p.onUpdate
	p.mu.Unlock()

	slog.Debug("health: snapshot updated",
		"status", summary.Status,
		"components", len(pair.Components),
		"window_minutes", window,
	)
	if onUpdate != nil {
		onUpdate(pair)
	}
}

// enrichRoutes backfills per-route request counts from the registry's
// Prometheus endpoint when the health summary omits them. Best effort — a
// scrape failure never fails the cycle.
func (p *Poller) enrichRoutes(ctx context.Context, pair *Pair) {
	if len(pair.Summary.RequestSummary.PerRoute) > 0 {
		return
	}
	ms, ok := p.fetcher.(MetricsSource)
	if !ok {
		return
	}
	counts, err := ms.ScrapeMetrics(ctx)
	if err != nil || len(counts) == 0 {
		return
	}
	pair.Summary.RequestSummary.PerRoute = counts
}
