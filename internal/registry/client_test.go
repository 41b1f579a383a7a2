package registry

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/registrypulse/registrypulse/internal/config"
)

// newTestClient spins up an httptest server around handler and returns a
// Client pointed at it. The server is torn down with the test.
func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(config.RegistryConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return c
}

// --- List ---

func TestList_WildcardAll(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/artifacts" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var queries []listQuery
		if err := json.NewDecoder(r.Body).Decode(&queries); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if len(queries) != 1 || queries[0].Name != "*" {
			t.Errorf("wildcard body = %+v, want one query with name *", queries)
		}
		json.NewEncoder(w).Encode([]Artifact{
			{ID: "m1", Name: "bert-tiny", Type: TypeModel, SourceURL: "https://hf.co/bert-tiny"},
			{ID: "d1", Name: "squad", Type: TypeDataset},
		})
	}))

	got, err := c.List(context.Background(), Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []Artifact{
		{ID: "m1", Name: "bert-tiny", Type: TypeModel, SourceURL: "https://hf.co/bert-tiny"},
		{ID: "d1", Name: "squad", Type: TypeDataset},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("listing mismatch (-want +got):\n%s", diff)
	}
}

func TestList_RegexSingleObjectResponse(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifact/byRegEx" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var q regexQuery
		json.NewDecoder(r.Body).Decode(&q)
		if q.Regex != "^bert" {
			t.Errorf("regex body = %q, want ^bert", q.Regex)
		}
		// The regex endpoint returns a bare object for a single match.
		json.NewEncoder(w).Encode(Artifact{ID: "m1", Name: "bert-tiny", Type: TypeModel})
	}))

	got, err := c.List(context.Background(), Filter{Regex: "^bert"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].ID != "m1" {
		t.Errorf("got %+v, want single entry m1", got)
	}
}

func TestList_InvalidRegexSurfaced(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "pattern rejected: catastrophic backtracking"})
	}))

	_, err := c.List(context.Background(), Filter{Regex: "(a+)+$"})
	if err == nil {
		t.Fatal("List with rejected regex succeeded, want error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadRequest {
		t.Errorf("StatusCode = %d, want 400", apiErr.StatusCode)
	}
	if !strings.Contains(apiErr.Detail, "catastrophic backtracking") {
		t.Errorf("Detail = %q, want server message passed through", apiErr.Detail)
	}
}

func TestList_NoMatchIs404NotEmpty(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no artifacts matched", http.StatusNotFound)
	}))

	_, err := c.List(context.Background(), Filter{Name: "nonexistent"})
	if err == nil {
		t.Fatal("List with no match succeeded, want surfaced 404")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want *APIError with 404", err)
	}
}

func TestList_EntryMissingIDRejected(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"name":"orphan","type":"model"}]`))
	}))

	_, err := c.List(context.Background(), Filter{})
	if err == nil || !strings.Contains(err.Error(), "missing id") {
		t.Errorf("err = %v, want structural rejection", err)
	}
}

// --- Get ---

func TestGet_NestedMetadataShape(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifacts/model/m1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{
			"metadata": {"id": "m1", "name": "bert-tiny", "type": "model"},
			"data": {"url": "https://hf.co/bert-tiny", "download_url": "https://hf.co/bert-tiny/resolve"},
			"lineage": [{"id": "d1", "relation": "trained-on"}]
		}`))
	}))

	got, err := c.Get(context.Background(), TypeModel, "m1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != "m1" || got.Name != "bert-tiny" || got.Type != TypeModel {
		t.Errorf("artifact = %+v", got.Artifact)
	}
	if got.DownloadURL != "https://hf.co/bert-tiny/resolve" {
		t.Errorf("DownloadURL = %q", got.DownloadURL)
	}
	if len(got.Lineage) != 1 || got.Lineage[0].ID != "d1" {
		t.Errorf("Lineage = %+v", got.Lineage)
	}
}

func TestGet_NotFound(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	_, err := c.Get(context.Background(), TypeModel, "ghost")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGet_RejectsUnknownType(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not reach the server")
	}))

	if _, err := c.Get(context.Background(), "weights", "m1"); err == nil {
		t.Error("Get with unknown type succeeded, want error")
	}
}

// --- Rating ---

func TestRating_NotFoundIsAbsence(t *testing.T) {
	c := newTestClient(t, http.NotFoundHandler())

	raw, err := c.Rating(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Rating 404: err = %v, want nil (absence, not failure)", err)
	}
	if raw != nil {
		t.Errorf("raw = %v, want nil", raw)
	}
}

func TestRating_ReturnsUntypedRecord(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifact/model/m1/rate" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"net_score": 0.8, "license": "mit"}`))
	}))

	raw, err := c.Rating(context.Background(), "m1")
	if err != nil {
		t.Fatalf("Rating: %v", err)
	}
	if raw["net_score"] != 0.8 {
		t.Errorf("net_score = %v, want 0.8", raw["net_score"])
	}
}

func TestRating_ServerErrorSurfaced(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "scorer offline", http.StatusServiceUnavailable)
	}))

	if _, err := c.Rating(context.Background(), "m1"); err == nil {
		t.Error("Rating on 503 succeeded, want error for the fan-out to isolate")
	}
}

// --- Ingest ---

func TestIngest_AcceptedWithEmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/artifact/model" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusAccepted)
	}))

	receipt, err := c.Ingest(context.Background(), IngestRequest{URL: "https://hf.co/bert-tiny"})
	if err != nil {
		t.Fatalf("Ingest: %v", err)
	}
	if receipt == nil {
		t.Fatal("receipt is nil")
	}
}

func TestIngest_DuplicateConflict(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{"error": "artifact already ingested"})
	}))

	_, err := c.Ingest(context.Background(), IngestRequest{URL: "https://hf.co/bert-tiny"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}
}

func TestIngest_ValidationDetailVerbatim(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "source host not on allowlist"})
	}))

	_, err := c.Ingest(context.Background(), IngestRequest{URL: "https://evil.example"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want *APIError", err)
	}
	if apiErr.Detail != "source host not on allowlist" {
		t.Errorf("Detail = %q, want server message verbatim", apiErr.Detail)
	}
}

// --- Auth transport ---

func TestClient_APIKeyHeaderInjected(t *testing.T) {
	t.Setenv("TEST_PULSE_KEY", "k-123")

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("X-Api-Key"); got != "k-123" {
			t.Errorf("X-Api-Key = %q, want k-123", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c, err := New(config.RegistryConfig{
		BaseURL: srv.URL,
		Timeout: 5 * time.Second,
		Auth:    config.AuthConfig{Mode: "apikey", Header: "X-Api-Key", KeyEnv: "TEST_PULSE_KEY"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, err := c.List(context.Background(), Filter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
}
