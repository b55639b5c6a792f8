package room

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"rpsarena/internal/config"
	"rpsarena/internal/protocol"
	"rpsarena/internal/session"
)

// fakeConn records every payload pushed to one client. Sends happen on the
// room goroutine, so reads take the mutex.
type fakeConn struct {
	mu   sync.Mutex
	sent []protocol.Payload
}

func (f *fakeConn) Send(p protocol.Payload) error {
	f.mu.Lock()
	f.sent = append(f.sent, p)
	f.mu.Unlock()
	return nil
}

func (f *fakeConn) payloads() []protocol.Payload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]protocol.Payload, len(f.sent))
	copy(out, f.sent)
	return out
}

func (f *fakeConn) ofType(t protocol.Type) []protocol.Payload {
	var out []protocol.Payload
	for _, p := range f.payloads() {
		if p.Type == t {
			out = append(out, p)
		}
	}
	return out
}

// countMessage counts MESSAGE payloads whose text contains substr.
func (f *fakeConn) countMessage(substr string) int {
	n := 0
	for _, p := range f.ofType(protocol.TypeMessage) {
		if strings.Contains(p.Message, substr) {
			n++
		}
	}
	return n
}

func (f *fakeConn) hasMessage(substr string) bool {
	return f.countMessage(substr) > 0
}

func (f *fakeConn) reset() {
	f.mu.Lock()
	f.sent = nil
	f.mu.Unlock()
}

// stubDir is a recording Directory. It never forwards joins anywhere; tests
// drive room membership directly.
type stubDir struct {
	mu        sync.Mutex
	exists    map[string]bool
	created   []string
	removed   []string
	joins     []string // "clientName->roomName"
	createErr error
}

func newStubDir() *stubDir {
	return &stubDir{exists: map[string]bool{Lobby: true}}
}

func (d *stubDir) CreateRoom(name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.createErr != nil {
		return d.createErr
	}
	d.created = append(d.created, name)
	d.exists[name] = true
	return nil
}

func (d *stubDir) RoomExists(name string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.exists[name]
}

func (d *stubDir) ListRooms(filter string) []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []string
	for name := range d.exists {
		if strings.Contains(name, filter) {
			out = append(out, name)
		}
	}
	return out
}

func (d *stubDir) RemoveRoom(name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.exists, name)
	d.removed = append(d.removed, name)
}

func (d *stubDir) JoinRoom(c *session.Client, name string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.joins = append(d.joins, c.Name()+"->"+name)
}

func (d *stubDir) removedRooms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.removed))
	copy(out, d.removed)
	return out
}

func (d *stubDir) joinLog() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.joins))
	copy(out, d.joins)
	return out
}

func testConfig() config.Config {
	cfg := config.Default()
	// Long enough that no real countdown fires under a test; expiries are
	// injected as TimerDone messages instead.
	cfg.RoundSeconds = 600
	cfg.ReadySeconds = 600
	return cfg
}

var nextTestID int64

func newMember(name string) (*session.Client, *fakeConn) {
	conn := &fakeConn{}
	nextTestID++
	return session.New(nextTestID, name, conn, zap.NewNop()), conn
}

// getView is both a state probe and a synchronization barrier: it comes back
// only after the room goroutine has drained everything sent before it.
func getView(t *testing.T, inbox chan<- Msg, within time.Duration) View {
	t.Helper()
	reply := make(chan View, 1)
	inbox <- GetState{Reply: reply}
	select {
	case v := <-reply:
		return v
	case <-time.After(within):
		t.Fatalf("timed out waiting for room state")
		return View{} // unreachable
	}
}

func (v View) member(t *testing.T, id int64) MemberView {
	t.Helper()
	for _, m := range v.Members {
		if m.ID == id {
			return m
		}
	}
	t.Fatalf("member %d not in view: %+v", id, v.Members)
	return MemberView{} // unreachable
}

// startGameRoom spins up a game room actor and returns it with its stub
// directory.
func startGameRoom(t *testing.T, name string) (*GameRoom, *stubDir) {
	t.Helper()
	dir := newStubDir()
	dir.exists[name] = true
	g := NewGameRoom(name, dir, testConfig(), zap.NewNop())
	go g.Run()
	t.Cleanup(func() { g.Inbox() <- Shutdown{} })
	return g, dir
}

func startLobby(t *testing.T) (*Room, *stubDir) {
	t.Helper()
	dir := newStubDir()
	r := NewLobby(dir, testConfig(), zap.NewNop())
	go r.Run()
	t.Cleanup(func() { r.Inbox() <- Shutdown{} })
	return r, dir
}

// joinN adds n named members and waits until the room has them all.
func joinN(t *testing.T, inbox chan<- Msg, names ...string) ([]*session.Client, []*fakeConn) {
	t.Helper()
	clients := make([]*session.Client, len(names))
	conns := make([]*fakeConn, len(names))
	for i, name := range names {
		clients[i], conns[i] = newMember(name)
		inbox <- Join{C: clients[i]}
	}
	v := getView(t, inbox, 2*time.Second)
	if len(v.Members) != len(names) {
		t.Fatalf("expected %d members after joins, got %d", len(names), len(v.Members))
	}
	return clients, conns
}

func sendPayload(inbox chan<- Msg, from *session.Client, p protocol.Payload) {
	inbox <- Inbound{From: from, P: p}
}

func sendChat(inbox chan<- Msg, from *session.Client, text string) {
	sendPayload(inbox, from, protocol.Payload{Type: protocol.TypeMessage, Message: text})
}

func sendReady(inbox chan<- Msg, from *session.Client) {
	sendPayload(inbox, from, protocol.Payload{Type: protocol.TypeReady})
}

func sendTurn(inbox chan<- Msg, from *session.Client, token string) {
	sendPayload(inbox, from, protocol.Payload{Type: protocol.TypeTurn, Message: token})
}

func sendSettings(inbox chan<- Msg, from *session.Client, command string) {
	sendPayload(inbox, from, protocol.Payload{Type: protocol.TypeSettings, Message: command})
}

// readyAll opts every listed client in and waits for the transition to settle.
func readyAll(t *testing.T, inbox chan<- Msg, clients ...*session.Client) View {
	t.Helper()
	for _, c := range clients {
		sendReady(inbox, c)
	}
	return getView(t, inbox, 2*time.Second)
}

func requirePhase(t *testing.T, v View, want Phase) {
	t.Helper()
	if v.Phase != want {
		t.Fatalf("phase = %s, want %s (view %+v)", v.Phase, want, v)
	}
}

func requireMessage(t *testing.T, conn *fakeConn, substr string) {
	t.Helper()
	if !conn.hasMessage(substr) {
		var got []string
		for _, p := range conn.ofType(protocol.TypeMessage) {
			got = append(got, fmt.Sprintf("%q", p.Message))
		}
		t.Fatalf("expected a message containing %q, got: %s", substr, strings.Join(got, ", "))
	}
}

func requireNoMessage(t *testing.T, conn *fakeConn, substr string) {
	t.Helper()
	if conn.hasMessage(substr) {
		t.Fatalf("expected no message containing %q", substr)
	}
}
