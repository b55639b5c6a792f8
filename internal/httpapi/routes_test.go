package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"

	"rpsarena/internal/config"
	"rpsarena/internal/hub"
	"rpsarena/internal/protocol"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	h := hub.New(config.Default(), zap.NewNop())
	srv := httptest.NewServer(SetupRoutes(h, zap.NewNop()))
	t.Cleanup(func() {
		srv.Close()
		h.Shutdown()
	})
	return srv, h
}

func TestHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}

func TestListRooms(t *testing.T) {
	srv, h := newTestServer(t)
	if err := h.CreateRoom("arena"); err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/rooms")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var body struct {
		Rooms []string `json:"rooms"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Rooms) != 2 {
		t.Fatalf("want lobby and arena, got %v", body.Rooms)
	}

	resp, err = http.Get(srv.URL + "/rooms?filter=are")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if len(body.Rooms) != 1 || body.Rooms[0] != "arena" {
		t.Fatalf("filter should match only arena, got %v", body.Rooms)
	}
}

func TestWebsocketHandshake(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + srv.URL[len("http"):] + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	hello, _ := json.Marshal(protocol.Payload{
		Type:       protocol.TypeClientConnect,
		ClientName: "alice",
	})
	if err := conn.Write(ctx, websocket.MessageText, hello); err != nil {
		t.Fatal(err)
	}

	// The first server frame assigns identity.
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var p protocol.Payload
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Type != protocol.TypeClientID {
		t.Fatalf("first frame type = %s, want %s", p.Type, protocol.TypeClientID)
	}
	if p.ClientID <= 0 || p.ClientName != "alice" {
		t.Fatalf("bad identity frame: %+v", p)
	}

	// Joining the lobby announces the join back to the joiner.
	_, data, err = conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := json.Unmarshal(data, &p); err != nil {
		t.Fatal(err)
	}
	if p.Type != protocol.TypeRoomJoin || p.Message != "lobby" {
		t.Fatalf("expected lobby join announcement, got %+v", p)
	}
}

func TestWebsocketRejectsBadHandshake(t *testing.T) {
	srv, _ := newTestServer(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	url := "ws" + srv.URL[len("http"):] + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	// First frame is not CLIENT_CONNECT: the server must close the socket.
	bad, _ := json.Marshal(protocol.Payload{Type: protocol.TypeMessage, Message: "hi"})
	if err := conn.Write(ctx, websocket.MessageText, bad); err != nil {
		t.Fatal(err)
	}

	_, _, err = conn.Read(ctx)
	if err == nil {
		t.Fatal("expected the connection to be closed after a bad handshake")
	}
	if websocket.CloseStatus(err) != websocket.StatusPolicyViolation {
		t.Fatalf("close status = %v, want policy violation", websocket.CloseStatus(err))
	}
}
