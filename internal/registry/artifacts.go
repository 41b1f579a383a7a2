package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

// Filter selects which artifacts a listing returns. Exactly one of three modes
// applies: a non-empty Regex runs a server-side regular-expression search; a
// non-empty Name matches exactly; otherwise the listing is a wildcard-all.
// Types optionally restricts the result to the given artifact kinds.
type Filter struct {
	Name  string
	Regex string
	Types []ArtifactType
}

// listQuery is the wire body for POST /artifacts.
type listQuery struct {
	Name  string         `json:"name"`
	Types []ArtifactType `json:"types,omitempty"`
}

// regexQuery is the wire body for POST /artifact/byRegEx.
type regexQuery struct {
	Regex string `json:"regex"`
}

// artifactWire tolerates both the flat summary shape and the nested
// metadata/data shape the registry uses for by-id lookups.
type artifactWire struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      ArtifactType `json:"type"`
	SourceURL string       `json:"source_url"`

	Metadata *struct {
		ID   string       `json:"id"`
		Name string       `json:"name"`
		Type ArtifactType `json:"type"`
	} `json:"metadata"`
	Data *struct {
		URL         string `json:"url"`
		DownloadURL string `json:"download_url"`
	} `json:"data"`
	Lineage []LineageEntry `json:"lineage"`
}

// artifact flattens the wire record into the canonical entity.
func (w *artifactWire) artifact() Artifact {
	a := Artifact{ID: w.ID, Name: w.Name, Type: w.Type, SourceURL: w.SourceURL}
	if w.Metadata != nil {
		a.ID = w.Metadata.ID
		a.Name = w.Metadata.Name
		a.Type = w.Metadata.Type
	}
	if a.SourceURL == "" && w.Data != nil {
		a.SourceURL = w.Data.URL
	}
	return a
}

// List returns artifact summaries matching f, in whatever order the server
// chose. Any non-2xx response is a hard error surfaced to the caller — a 404
// "no match" and a 400 "invalid pattern" both arrive as *APIError, never as an
// empty result. Invalid regular expressions are the server's to reject; the
// pattern is never evaluated client-side.
func (c *Client) List(ctx context.Context, f Filter) ([]Artifact, error) {
	var raw json.RawMessage
	if f.Regex != "" {
		if err := c.do(ctx, http.MethodPost, "/artifact/byRegEx", regexQuery{Regex: f.Regex}, &raw); err != nil {
			return nil, err
		}
	} else {
		name := f.Name
		if name == "" {
			name = "*"
		}
		body := []listQuery{{Name: name, Types: f.Types}}
		if err := c.do(ctx, http.MethodPost, "/artifacts", body, &raw); err != nil {
			return nil, err
		}
	}
	return decodeListing(raw)
}

// decodeListing accepts either an array of entries or a single object — the
// regex endpoint returns a bare object for a single match.
func decodeListing(raw json.RawMessage) ([]Artifact, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []Artifact{}, nil
	}

	var wires []artifactWire
	if trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &wires); err != nil {
			return nil, fmt.Errorf("registry: decode listing: %w", err)
		}
	} else {
		var one artifactWire
		if err := json.Unmarshal(trimmed, &one); err != nil {
			return nil, fmt.Errorf("registry: decode listing: %w", err)
		}
		wires = []artifactWire{one}
	}

	out := make([]Artifact, 0, len(wires))
	for i := range wires {
		a := wires[i].artifact()
		if a.ID == "" || a.Name == "" {
			return nil, fmt.Errorf("registry: listing entry %d is missing id or name", i)
		}
		out = append(out, a)
	}
	return out, nil
}

// Get fetches the full record for one artifact. A 404 maps to ErrNotFound —
// a missing primary resource is a failure, unlike a missing rating.
func (c *Client) Get(ctx context.Context, typ ArtifactType, id string) (*ArtifactDetail, error) {
	if !ValidType(typ) {
		return nil, fmt.Errorf("registry: unknown artifact type %q", typ)
	}

	var wire artifactWire
	path := fmt.Sprintf("/artifacts/%s/%s", typ, url.PathEscape(id))
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, typ, id)
		}
		return nil, err
	}

	a := wire.artifact()
	if a.ID == "" {
		return nil, fmt.Errorf("registry: artifact %s/%s response is missing metadata", typ, id)
	}
	detail := &ArtifactDetail{Artifact: a, Lineage: wire.Lineage}
	if wire.Data != nil {
		detail.URL = wire.Data.URL
		detail.DownloadURL = wire.Data.DownloadURL
	}
	return detail, nil
}

// Ingest submits a model for ingestion. A 409 maps to ErrDuplicate; any other
// 4xx surfaces the server's detail message verbatim. The registry may answer
// 200, 201 or 202 — ingestion is asynchronous and the receipt body is optional.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (*IngestReceipt, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("registry: ingest URL is required")
	}

	var receipt IngestReceipt
	err := c.do(ctx, http.MethodPost, "/artifact/model", req, &receipt)
	if err != nil {
		if statusOf(err) == http.StatusConflict {
			return nil, fmt.Errorf("%w: %s", ErrDuplicate, req.URL)
		}
		return nil, err
	}
	return &receipt, nil
}
