package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/registrypulse/registrypulse/internal/alerts"
	"github.com/registrypulse/registrypulse/internal/health"
	"github.com/registrypulse/registrypulse/internal/ratings"
	"github.com/registrypulse/registrypulse/internal/registry"
	"github.com/registrypulse/registrypulse/internal/store"
)

// staleAfter is how old a health pair may be before responses mark it stale.
// Two missed poll cycles means the upstream has been failing for a while.
const staleAfter = 2 * health.DefaultInterval

// Registry is the slice of the registry client the handler needs.
type Registry interface {
	List(ctx context.Context, f registry.Filter) ([]registry.Artifact, error)
	Get(ctx context.Context, typ registry.ArtifactType, id string) (*registry.ArtifactDetail, error)
	Ingest(ctx context.Context, req registry.IngestRequest) (*registry.IngestReceipt, error)
}

// HealthState exposes the poller's last known pair.
type HealthState interface {
	Current() (*health.Pair, error)
}

// AlertSource exposes the alert engine's state for the alerts endpoint.
type AlertSource interface {
	Active() []alerts.Alert
	History() []alerts.Alert
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	reg    Registry
	src    ratings.RatingSource
	state  HealthState
	alerts AlertSource // may be nil
	cache  *store.Store
	router chi.Router
	now    func() time.Time
}

// New creates a Handler and registers all routes.
// al may be nil when alerting is not configured.
func New(reg Registry, src ratings.RatingSource, state HealthState, al AlertSource, cache *store.Store) http.Handler {
	h := &Handler{
		reg:    reg,
		src:    src,
		state:  state,
		alerts: al,
		cache:  cache,
		now:    time.Now,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/artifacts", h.listArtifacts)
		r.Get("/artifacts/{type}/{id}", h.getArtifact)
		r.Post("/ingest", h.ingest)
		r.Get("/health", h.healthSummary)
		r.Get("/health/components", h.healthComponents)
		r.Get("/alerts", h.listAlerts)
	})

	h.router = r
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

// --- artifacts --------------------------------------------------------------

// listArtifacts serves GET /api/v1/artifacts?q=...&regex=...&types=model,dataset.
// q and regex are mutually exclusive; neither means wildcard. Results come from
// the cache when fresh; a stale cache entry is served only if the upstream
// fetch fails.
func (h *Handler) listArtifacts(w http.ResponseWriter, r *http.Request) {
	f := registry.Filter{
		Name:  r.URL.Query().Get("q"),
		Regex: r.URL.Query().Get("regex"),
	}
	if f.Name != "" && f.Regex != "" {
		jsonErr(w, http.StatusBadRequest, "q and regex are mutually exclusive")
		return
	}
	if raw := r.URL.Query().Get("types"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			t := registry.ArtifactType(strings.TrimSpace(s))
			if !registry.ValidType(t) {
				jsonErr(w, http.StatusBadRequest, "unknown artifact type: "+string(t))
				return
			}
			f.Types = append(f.Types, t)
		}
	}

	key := store.Key(f)
	cached, fresh := h.cache.Get(key)
	if fresh {
		jsonResp(w, http.StatusOK, ListResponse{
			Artifacts: cached.Listing,
			Cached:    true,
			UpdatedAt: cached.UpdatedAt.UTC().Format(time.RFC3339),
		})
		return
	}

	arts, err := h.reg.List(r.Context(), f)
	if err != nil {
		// A stale listing beats an error page, but only for upstream faults.
		// Client mistakes (bad regex) surface as-is.
		if cached != nil && upstreamStatus(err) >= 500 {
			slog.Warn("api: serving stale listing", "key", key, "err", err)
			jsonResp(w, http.StatusOK, ListResponse{
				Artifacts: cached.Listing,
				Cached:    true,
				Stale:     true,
				UpdatedAt: cached.UpdatedAt.UTC().Format(time.RFC3339),
			})
			return
		}
		upstreamErr(w, err)
		return
	}

	rated := ratings.AttachRatings(r.Context(), h.src, arts)
	h.cache.Put(key, rated)
	jsonResp(w, http.StatusOK, ListResponse{Artifacts: rated})
}

// getArtifact serves GET /api/v1/artifacts/{type}/{id}. Model artifacts get a
// rating lookup; a failed lookup degrades the response instead of failing it.
func (h *Handler) getArtifact(w http.ResponseWriter, r *http.Request) {
	typ := registry.ArtifactType(chi.URLParam(r, "type"))
	id := chi.URLParam(r, "id")
	if !registry.ValidType(typ) {
		jsonErr(w, http.StatusBadRequest, "unknown artifact type: "+string(typ))
		return
	}

	detail, err := h.reg.Get(r.Context(), typ, id)
	if err != nil {
		upstreamErr(w, err)
		return
	}

	resp := DetailResponse{ArtifactDetail: *detail}
	if typ == registry.TypeModel {
		rated := ratings.AttachRatings(r.Context(), h.src, []registry.Artifact{detail.Artifact})
		if len(rated) == 1 {
			resp.HasRating = rated[0].HasRating
			resp.Degraded = rated[0].Degraded
			if rated[0].HasRating {
				s := rated[0].Score
				resp.Score = &s
			}
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// ingest serves POST /api/v1/ingest, passing the request through to the
// registry. Upstream rejections keep their status code and detail.
func (h *Handler) ingest(w http.ResponseWriter, r *http.Request) {
	var req registry.IngestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonErr(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.URL == "" {
		jsonErr(w, http.StatusBadRequest, "url is required")
		return
	}

	receipt, err := h.reg.Ingest(r.Context(), req)
	if err != nil {
		upstreamErr(w, err)
		return
	}
	jsonResp(w, http.StatusAccepted, receipt)
}

// --- health -----------------------------------------------------------------

// healthSummary serves GET /api/v1/health from the poller's last pair.
// Before the first successful cycle there is nothing to serve: 503.
func (h *Handler) healthSummary(w http.ResponseWriter, r *http.Request) {
	pair, cycleErr := h.state.Current()
	if pair == nil {
		msg := "health data not yet available"
		if cycleErr != nil {
			msg = "health data not yet available: " + cycleErr.Error()
		}
		jsonErr(w, http.StatusServiceUnavailable, msg)
		return
	}
	jsonResp(w, http.StatusOK, h.buildHealthView(pair, cycleErr))
}

// healthComponents serves GET /api/v1/health/components from the same pair.
func (h *Handler) healthComponents(w http.ResponseWriter, r *http.Request) {
	pair, cycleErr := h.state.Current()
	if pair == nil {
		jsonErr(w, http.StatusServiceUnavailable, "health data not yet available")
		return
	}

	out := make([]ComponentView, 0, len(pair.Components))
	for _, c := range pair.Components {
		cls := health.Classify(c.Status)
		view := ComponentView{
			ID:          c.ID,
			DisplayName: c.DisplayName,
			Status:      c.Status,
			Tier:        string(cls.Tier),
			Icon:        cls.Icon,
			ColorClass:  cls.ColorClass,
			Metrics:     c.Metrics,
			Issues:      c.Issues,
			Timeline:    health.Bucketize(c.Timeline),
		}
		if !c.ObservedAt.IsZero() {
			view.ObservedAt = c.ObservedAt.UTC().Format(time.RFC3339)
		}
		out = append(out, view)
	}

	jsonResp(w, http.StatusOK, ComponentsResponse{
		WindowMinutes: pair.WindowMinutes,
		Components:    out,
		PolledAt:      pair.PolledAt.UTC().Format(time.RFC3339),
		Stale:         h.isStale(pair) || cycleErr != nil,
	})
}

// listAlerts serves GET /api/v1/alerts — active alerts plus recent history.
func (h *Handler) listAlerts(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Active  []alerts.Alert `json:"active"`
		History []alerts.Alert `json:"history"`
	}{
		Active:  []alerts.Alert{},
		History: []alerts.Alert{},
	}
	if h.alerts != nil {
		if a := h.alerts.Active(); a != nil {
			resp.Active = a
		}
		if hist := h.alerts.History(); hist != nil {
			resp.History = hist
		}
	}
	jsonResp(w, http.StatusOK, resp)
}

// buildHealthView maps a pair to its summary JSON view.
func (h *Handler) buildHealthView(pair *health.Pair, cycleErr error) HealthView {
	return BuildHealthView(pair, cycleErr, h.now())
}

// BuildHealthView maps a pair to its summary JSON view. at decides staleness.
// Shared with the websocket broadcaster so both surfaces render identically.
func BuildHealthView(pair *health.Pair, cycleErr error, at time.Time) HealthView {
	cls := health.Classify(pair.Summary.Status)
	view := HealthView{
		Status:        pair.Summary.Status,
		Tier:          string(cls.Tier),
		Icon:          cls.Icon,
		ColorClass:    cls.ColorClass,
		UptimeSeconds: pair.Summary.UptimeSeconds,
		Requests:      pair.Summary.RequestSummary,
		WindowMinutes: pair.WindowMinutes,
		PolledAt:      pair.PolledAt.UTC().Format(time.RFC3339),
		Stale:         at.Sub(pair.PolledAt) > staleAfter || cycleErr != nil,
	}
	if !pair.Summary.CheckedAt.IsZero() {
		view.CheckedAt = pair.Summary.CheckedAt.UTC().Format(time.RFC3339)
	}
	if cycleErr != nil {
		view.CycleError = cycleErr.Error()
	}
	return view
}

func (h *Handler) isStale(pair *health.Pair) bool {
	return h.now().Sub(pair.PolledAt) > staleAfter
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}

// upstreamStatus maps a registry client error to the status code this API
// should answer with. Upstream 4xx codes pass through; everything else is a
// bad gateway.
func upstreamStatus(err error) int {
	switch {
	case errors.Is(err, registry.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, registry.ErrDuplicate):
		return http.StatusConflict
	}
	var apiErr *registry.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
		return apiErr.StatusCode
	}
	return http.StatusBadGateway
}

func upstreamErr(w http.ResponseWriter, err error) {
	code := upstreamStatus(err)
	if code == http.StatusBadGateway {
		slog.Error("api: upstream registry error", "err", err)
	}
	jsonErr(w, code, err.Error())
}
