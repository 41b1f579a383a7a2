// Package ws implements the WebSocket hub for the dashboard's live health
// stream.
//
// Hub manages a set of connected clients and pushes the current health view to
// all of them: once on connect, on every poll cycle (via Notify), and on a
// fallback ticker so a stalled poller still produces staleness updates.
//
// Message format sent to clients:
//
//	{
//	  "event": "health",
//	  "data":  { /* same schema as GET /api/v1/health */ }
//	}
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level. The WebSocket endpoint is mounted at /ws/stream by the server.
package ws
