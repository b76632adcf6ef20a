package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"chatrelay/internal/app/relay"
	"chatrelay/internal/pkg/session"
)

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dialAs(t *testing.T, srv *httptest.Server, userKey string) *websocket.Conn {
	t.Helper()

	token, err := session.Mint(userKey, testSessionSecret, session.Lifetime)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	header := http.Header{}
	header.Add("Cookie", session.CookieName+"="+token)

	conn, response, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err != nil {
		t.Fatalf("dial as %s failed: %v (response: %+v)", userKey, err, response)
	}
	t.Cleanup(func() { conn.Close() })

	return conn
}

// waitAttached polls until the key's registry entry is connected.
func waitAttached(t *testing.T, deps *AppDeps, key string) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := deps.Registry.Get(key); ok && entry.Connected() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("key %q never attached", key)
}

func TestWebSocketRejectsWithoutSession(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	response, err := http.Get(srv.URL + "/ws")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusUnauthorized)
	}
	if deps.Registry.Len() != 0 {
		t.Error("rejected connect created registry state")
	}
}

func TestWebSocketRejectsUnknownIdentity(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	// Valid cookie, but the identity does not resolve in the directory.
	token, err := session.Mint("ghost@example.com", testSessionSecret, session.Lifetime)
	if err != nil {
		t.Fatalf("Mint failed: %v", err)
	}

	header := http.Header{}
	header.Add("Cookie", session.CookieName+"="+token)

	_, response, err := websocket.DefaultDialer.Dial(wsURL(srv), header)
	if err == nil {
		t.Fatal("dial succeeded for an unresolvable identity")
	}
	if response == nil || response.StatusCode != http.StatusNotFound {
		t.Errorf("handshake response = %+v, want HTTP 404", response)
	}
}

func TestWebSocketRelayEndToEnd(t *testing.T) {
	deps := newTestDeps()
	registerUser(t, deps, "Alice", "a@example.com", "longenoughpassword")
	registerUser(t, deps, "Bob", "b@example.com", "longenoughpassword")

	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	connA := dialAs(t, srv, "a@example.com")
	connB := dialAs(t, srv, "b@example.com")

	waitAttached(t, deps, "a@example.com")
	waitAttached(t, deps, "b@example.com")

	if err := connA.WriteMessage(websocket.TextMessage, []byte(`{"message":"hello"}`)); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	// Bob receives exactly one envelope carrying Alice's display name.
	connB.SetReadDeadline(time.Now().Add(2 * time.Second))
	kind, payload, err := connB.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if kind != websocket.TextMessage {
		t.Fatalf("frame kind = %d, want text", kind)
	}

	var envelope relay.Envelope
	if err := json.Unmarshal(payload, &envelope); err != nil {
		t.Fatalf("failed to decode envelope %q: %v", payload, err)
	}
	if envelope.Sender != "Alice" || envelope.Text != "hello" {
		t.Errorf("envelope = %+v, want sender=Alice text=hello", envelope)
	}

	// Default policy: the sender gets no echo.
	connA.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	if _, _, err := connA.ReadMessage(); err == nil {
		t.Error("sender received an echo with echo-self disabled")
	}
}

func TestWebSocketDisconnectDetaches(t *testing.T) {
	deps := newTestDeps()
	registerUser(t, deps, "Alice", "a@example.com", "longenoughpassword")
	registerUser(t, deps, "Bob", "b@example.com", "longenoughpassword")

	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	connA := dialAs(t, srv, "a@example.com")
	connB := dialAs(t, srv, "b@example.com")

	waitAttached(t, deps, "a@example.com")
	waitAttached(t, deps, "b@example.com")

	connB.Close()

	// Bob's entry flips to disconnected once the session unwinds.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if entry, ok := deps.Registry.Get("b@example.com"); ok && !entry.Connected() {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	entry, ok := deps.Registry.Get("b@example.com")
	if !ok || entry.Connected() {
		t.Fatalf("entry after disconnect = %+v, want kept but disconnected", entry)
	}

	// Broadcasting afterwards neither errors nor revives Bob.
	if err := connA.WriteMessage(websocket.TextMessage, []byte(`{"message":"bye"}`)); err != nil {
		t.Fatalf("write after peer disconnect failed: %v", err)
	}

	waitAttached(t, deps, "a@example.com")
	if entry, _ := deps.Registry.Get("b@example.com"); entry.Connected() {
		t.Error("stale broadcast reattached a disconnected peer")
	}
}

func TestHealthEndpoint(t *testing.T) {
	deps := newTestDeps()
	srv := httptest.NewServer(Router(deps))
	defer srv.Close()

	response, err := http.Get(srv.URL + "/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want %d", response.StatusCode, http.StatusOK)
	}
}
