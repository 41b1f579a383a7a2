package ws_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/registrypulse/registrypulse/internal/health"
	"github.com/registrypulse/registrypulse/internal/registry"
	wsHub "github.com/registrypulse/registrypulse/internal/ws"
)

const testInterval = 20 * time.Millisecond

// --- helpers ----------------------------------------------------------------

// fakeState is a swappable HealthState for driving the hub in tests.
type fakeState struct {
	mu   sync.Mutex
	pair *health.Pair
}

func (s *fakeState) Current() (*health.Pair, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pair, nil
}

func (s *fakeState) set(pair *health.Pair) {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
}

func pairWithStatus(status string) *health.Pair {
	return &health.Pair{
		Summary:       &registry.HealthSnapshot{Status: status},
		WindowMinutes: 30,
		PolledAt:      time.Now(),
	}
}

// startHub starts a test HTTP server with the hub as its handler.
// The hub's Run loop is started with a cancellable context.
func startHub(t *testing.T, state *fakeState) (wsURL string, hub *wsHub.Hub, cancel func()) {
	t.Helper()

	hub = wsHub.New(state, testInterval)
	ctx, cancelFn := context.WithCancel(context.Background())

	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	go hub.Run(ctx)

	t.Cleanup(func() {
		cancelFn()
		srv.Close()
	})

	wsURL = "ws" + strings.TrimPrefix(srv.URL, "http")
	return wsURL, hub, cancelFn
}

func dial(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", wsURL, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readMessage reads one text message from conn with a short deadline.
func readMessage(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}
	return msg
}

// --- tests ------------------------------------------------------------------

func TestHub_Connect_ReceivesImmediateView(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, _, _ := startHub(t, state)

	conn := dial(t, wsURL)
	msg := readMessage(t, conn)

	var m map[string]interface{}
	if err := json.Unmarshal(msg, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m["event"] != "health" {
		t.Errorf("event: got %v, want health", m["event"])
	}
	data, ok := m["data"].(map[string]interface{})
	if !ok {
		t.Fatal("data: missing or wrong type")
	}
	if data["tier"] != "ok" {
		t.Errorf("tier: got %v, want ok", data["tier"])
	}
}

func TestHub_NotifyBroadcastsNewPair(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, hub, _ := startHub(t, state)

	conn := dial(t, wsURL)
	readMessage(t, conn) // consume the connect push

	state.set(pairWithStatus("down"))
	hub.Notify()

	deadline := time.Now().Add(2 * time.Second)
	for {
		msg := readMessage(t, conn)
		var m map[string]interface{}
		json.Unmarshal(msg, &m) //nolint:errcheck
		data := m["data"].(map[string]interface{})
		if data["tier"] == "critical" {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("never saw the new pair; last message: %s", msg)
		}
	}
}

func TestHub_NoDataYet_NoMessageOnConnect(t *testing.T) {
	state := &fakeState{} // poller has not completed a cycle
	wsURL, _, _ := startHub(t, state)

	conn := dial(t, wsURL)
	conn.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected no message before the first successful poll")
	}
}

func TestHub_CountClients(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, hub, _ := startHub(t, state)

	for i := 0; i < 3; i++ {
		conn := dial(t, wsURL)
		readMessage(t, conn)
	}

	time.Sleep(10 * time.Millisecond)
	if n := hub.Count(); n != 3 {
		t.Errorf("Count: got %d, want 3", n)
	}
}

func TestHub_CountDecreasesOnDisconnect(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, hub, _ := startHub(t, state)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	if n := hub.Count(); n != 1 {
		t.Errorf("Count before disconnect: got %d, want 1", n)
	}

	conn.Close()
	time.Sleep(50 * time.Millisecond) // let readPump detect the close

	if n := hub.Count(); n != 0 {
		t.Errorf("Count after disconnect: got %d, want 0", n)
	}
}

func TestHub_CancelContextClosesConnections(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, hub, cancel := startHub(t, state)

	conn := dial(t, wsURL)
	readMessage(t, conn)
	time.Sleep(10 * time.Millisecond)

	cancel()

	time.Sleep(50 * time.Millisecond)
	if n := hub.Count(); n != 0 {
		t.Errorf("Count after cancel: got %d, want 0", n)
	}
}

// Connections churn while broadcasts fire back to back. A broadcast must
// never send on a channel that a concurrent disconnect has already closed.
func TestHub_BroadcastDuringConnectionChurn(t *testing.T) {
	state := &fakeState{pair: pairWithStatus("healthy")}
	wsURL, hub, _ := startHub(t, state)

	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				hub.Notify()
			}
		}
	}()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
				if err != nil {
					continue
				}
				conn.SetReadDeadline(time.Now().Add(time.Second))
				conn.ReadMessage() //nolint:errcheck
				conn.Close()
			}
		}()
	}

	wg.Wait()
	close(stop)
}

func TestHub_NonWebSocketRequest_Returns400(t *testing.T) {
	hub := wsHub.New(&fakeState{}, testInterval)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeHTTP))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", resp.StatusCode)
	}
}
