// Package session holds the server-side representation of one connected
// client: its identity, its per-game player record, and the send/receive
// boundary between the transport and the room logic.
package session

import (
	"sync"

	"go.uber.org/zap"

	"rpsarena/internal/game"
	"rpsarena/internal/protocol"
)

// Conn is the transport's side of a connection. Implementations are expected
// to be safe for use from the room goroutine.
type Conn interface {
	Send(p protocol.Payload) error
}

// Participation is the explicit three-state tag for a player's involvement in
// the current session. A player who has not opted in is a spectator: never
// battles, never eliminated for not picking.
type Participation int

const (
	Spectating Participation = iota // not opted in
	Ready                          // opted into the next session
	Playing                        // active in the running session
)

// Player is the per-game transient state. It is mutated only by the goroutine
// of the room that currently owns this client.
type Player struct {
	Participation Participation
	Away          bool
	Points        int
	Choice        game.Choice
	LastChoice    game.Choice
	Eliminated    bool
	TookTurn      bool
}

// IsSpectator reports whether the player is excluded from game-affecting
// logic.
func (p *Player) IsSpectator() bool { return p.Participation == Spectating }

// IsReady reports whether the player has opted in.
func (p *Player) IsReady() bool { return p.Participation != Spectating }

// Client is one connected socket. The Player field belongs to the room's
// goroutine; route/disconnect are swapped when the client changes rooms and
// are guarded because the transport reader calls in from its own goroutine.
type Client struct {
	id   int64
	name string
	conn Conn
	log  *zap.Logger

	Player Player

	mu           sync.Mutex
	room         string
	route        func(protocol.Payload)
	onDisconnect func()
	closed       bool
}

func New(id int64, name string, conn Conn, log *zap.Logger) *Client {
	return &Client{
		id:   id,
		name: name,
		conn: conn,
		log:  log.With(zap.Int64("client_id", id), zap.String("client_name", name)),
	}
}

func (c *Client) ID() int64 { return c.id }
func (c *Client) Name() string { return c.name }

// RoomName returns the name of the room currently routing this client.
func (c *Client) RoomName() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.room
}

// AttachRoom points inbound dispatch at a new room. Called by the room
// goroutine when the client is added as a member. If the transport already
// disconnected, the new room's disconnect callback fires instead of the
// attach, so a disconnect that raced the room change is never lost.
func (c *Client) AttachRoom(name string, route func(protocol.Payload), onDisconnect func()) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		onDisconnect()
		return
	}
	c.room = name
	c.route = route
	c.onDisconnect = onDisconnect
	c.mu.Unlock()
}

// OnMessageReceived dispatches one parsed message from the remote client into
// the current room. Messages arriving before the client has a room are
// dropped.
func (c *Client) OnMessageReceived(p protocol.Payload) {
	c.mu.Lock()
	route := c.route
	c.mu.Unlock()
	if route == nil {
		c.log.Debug("message before room attach, dropping", zap.String("type", string(p.Type)))
		return
	}
	route(p)
}

// OnDisconnected tells the current room the transport is gone and marks the
// client closed so a still-queued room join cannot resurrect it.
func (c *Client) OnDisconnected() {
	c.mu.Lock()
	fn := c.onDisconnect
	c.route = nil
	c.onDisconnect = nil
	c.closed = true
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Closed reports whether the transport has disconnected.
func (c *Client) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Send delivers a payload to the remote client, best-effort. Failures are
// logged and reported as false; they never propagate into game logic.
func (c *Client) Send(p protocol.Payload) bool {
	if err := c.conn.Send(p); err != nil {
		c.log.Warn("send failed", zap.String("type", string(p.Type)), zap.Error(err))
		return false
	}
	return true
}
