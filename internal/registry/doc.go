// Package registry is the typed HTTP client for the artifact registry API.
//
// Every response is decoded at this boundary into the canonical entities used
// by the rest of the dashboard. Primary resources (listings, artifact detail,
// health reports) reject structurally invalid payloads; secondary fields
// (ratings, component metrics) default gracefully instead.
//
// Error taxonomy: ErrNotFound and ErrDuplicate are sentinels for the two
// status codes callers branch on; every other non-2xx response surfaces as an
// *APIError carrying the status code and the server-provided detail message.
// The one deliberate exception is Rating, where a 404 means "not computed yet"
// and resolves to (nil, nil) rather than an error.
package registry
