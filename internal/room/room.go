// Package room implements the membership and game state machine at the heart
// of the server. Each room runs as a single-goroutine actor: client messages,
// disconnects, and timer firings are all serialized through one mailbox, so no
// handler ever observes a half-applied transition.
package room

import (
	"strings"

	"go.uber.org/zap"

	"rpsarena/internal/config"
	"rpsarena/internal/protocol"
	"rpsarena/internal/session"
)

// Lobby is the reserved room every client lands in. It always exists and is
// never destroyed when empty.
const Lobby = "lobby"

// Handle is the part of a room the hub and other rooms may touch.
type Handle interface {
	Name() string
	Inbox() chan<- Msg
}

// Directory is the hub surface rooms use for cross-room operations. All
// methods are safe to call from a room goroutine: the hub drains its mailbox
// without ever blocking on a room, so request/reply cannot deadlock.
type Directory interface {
	// CreateRoom registers a new, empty game room.
	CreateRoom(name string) error
	// RoomExists reports whether a room is currently in the directory.
	RoomExists(name string) bool
	// ListRooms returns room names containing the filter substring; empty
	// filter lists everything.
	ListRooms(filter string) []string
	// RemoveRoom deletes a room from the directory; returns once no further
	// joins can be forwarded to it.
	RemoveRoom(name string)
	// JoinRoom forwards the client into the named room, or into the lobby if
	// the room vanished in the meantime.
	JoinRoom(c *session.Client, name string)
}

// Room is a named broadcast domain: insertion-ordered members, a host, and the
// generic membership operations. The lobby is a plain Room; game rooms embed
// it.
type Room struct {
	name string
	dir  Directory
	cfg  config.Config
	log  *zap.Logger

	inbox   chan Msg
	members []*session.Client // insertion order is the battle pairing order

	hostID int64

	// Optional hooks for the embedding game room, called on the room
	// goroutine after membership changes.
	onMemberAdded   func(c *session.Client)
	onMemberRemoved func(c *session.Client)
}

// NewLobby creates the reserved lobby room. The caller starts its loop with
// Run.
func NewLobby(dir Directory, cfg config.Config, log *zap.Logger) *Room {
	return newRoom(Lobby, dir, cfg, log)
}

func newRoom(name string, dir Directory, cfg config.Config, log *zap.Logger) *Room {
	return &Room{
		name:   name,
		dir:    dir,
		cfg:    cfg,
		log:    log.With(zap.String("room", name)),
		inbox:  make(chan Msg, 256),
		hostID: protocol.DefaultClientID,
	}
}

func (r *Room) Name() string { return r.name }
func (r *Room) Inbox() chan<- Msg { return r.inbox }

// Run drains the mailbox until Shutdown. Used for the lobby; GameRoom has its
// own loop.
func (r *Room) Run() {
	for m := range r.inbox {
		if stop := r.handleBase(m); stop {
			return
		}
	}
}

// handleBase covers the membership, chat, and room-management surface shared
// by every room. Returns true when the loop should stop.
func (r *Room) handleBase(m Msg) bool {
	switch msg := m.(type) {
	case Join:
		r.addMember(msg.C)
	case Disconnected:
		r.removeMember(msg.C, true)
	case Inbound:
		r.handleInbound(msg.From, msg.P)
	case GetState:
		msg.Reply <- r.view()
	case Shutdown:
		r.log.Info("room shutting down")
		return true
	case TimerDone, TimerTick:
		// Base rooms run no timers; a stale firing can only arrive after a
		// game room reverted. Ignore.
	}
	return false
}

func (r *Room) handleInbound(from *session.Client, p protocol.Payload) {
	if r.indexOf(from.ID()) < 0 {
		// The sender was removed while this message sat in the mailbox.
		from.SendMessage(protocol.DefaultClientID, "You are not in this room")
		return
	}

	switch p.Type {
	case protocol.TypeMessage:
		r.broadcastMessage(from.ID(), p.Message)
	case protocol.TypeRoomCreate:
		r.handleCreateRoom(from, p.Message)
	case protocol.TypeRoomJoin:
		r.handleJoinRoom(from, p.Message)
	case protocol.TypeRoomLeave:
		r.handleJoinRoom(from, Lobby)
	case protocol.TypeRoomList:
		from.SendRooms(r.dir.ListRooms(strings.TrimSpace(p.Message)))
	case protocol.TypeDisconnect:
		r.removeMember(from, true)
	case protocol.TypeReady, protocol.TypeTurn, protocol.TypeSettings, protocol.TypeAway:
		from.SendMessage(protocol.DefaultClientID, "You must be in a game room to do that")
	default:
		r.log.Warn("unknown payload type", zap.String("type", string(p.Type)), zap.Int64("from", from.ID()))
		from.SendMessage(protocol.DefaultClientID, "Unknown request: "+string(p.Type))
	}
}

// addMember appends the client, wires its dispatch to this room's mailbox,
// assigns the host if there is none, and syncs membership both ways.
func (r *Room) addMember(c *session.Client) {
	if r.indexOf(c.ID()) >= 0 {
		return
	}
	if c.Closed() {
		// The transport died while this join sat in the mailbox.
		r.log.Info("dropping join from disconnected client", zap.Int64("client_id", c.ID()))
		return
	}
	r.members = append(r.members, c)

	inbox := r.inbox
	c.AttachRoom(r.name,
		func(p protocol.Payload) { inbox <- Inbound{From: c, P: p} },
		func() { inbox <- Disconnected{C: c} },
	)

	// Announce the join to everyone (including the joiner), then quietly sync
	// the existing roster to the joiner.
	for _, m := range r.members {
		m.SendClientInfo(c.ID(), c.Name(), r.name, protocol.ActionJoin, false, c.Player.Away)
	}
	for _, m := range r.members {
		if m.ID() != c.ID() {
			c.SendClientInfo(m.ID(), m.Name(), r.name, protocol.ActionJoin, true, m.Player.Away)
		}
	}

	if r.hostID == protocol.DefaultClientID {
		r.setHost(c.ID())
	} else {
		c.SendClientInfo(r.hostID, r.displayName(r.hostID), r.name, protocol.ActionHost, false, false)
	}

	r.log.Info("client joined", zap.Int64("client_id", c.ID()), zap.Int("members", len(r.members)))
	if r.onMemberAdded != nil {
		r.onMemberAdded(c)
	}
}

// removeMember splices the client out, reassigns the host if needed, and
// notifies the remaining members. disconnected selects the DISCONNECT notice
// over the leave notice.
func (r *Room) removeMember(c *session.Client, disconnected bool) {
	i := r.indexOf(c.ID())
	if i < 0 {
		return
	}
	r.members = append(r.members[:i], r.members[i+1:]...)

	for _, m := range r.members {
		if disconnected {
			m.SendDisconnect(c.ID())
		}
		m.SendClientInfo(c.ID(), c.Name(), r.name, protocol.ActionLeave, false, false)
	}

	if r.hostID == c.ID() {
		if len(r.members) > 0 {
			r.setHost(r.members[0].ID())
		} else {
			r.hostID = protocol.DefaultClientID
		}
	}

	r.log.Info("client removed", zap.Int64("client_id", c.ID()), zap.Int("remaining", len(r.members)))
	if r.onMemberRemoved != nil {
		r.onMemberRemoved(c)
	}
}

func (r *Room) setHost(id int64) {
	r.hostID = id
	for _, m := range r.members {
		m.SendClientInfo(id, r.displayName(id), r.name, protocol.ActionHost, false, false)
	}
}

func (r *Room) handleCreateRoom(from *session.Client, rawName string) {
	name, ok := normalizeRoomName(rawName)
	if !ok {
		from.SendMessage(protocol.DefaultClientID, "Invalid room name")
		return
	}
	if err := r.dir.CreateRoom(name); err != nil {
		from.SendMessage(protocol.DefaultClientID, "Could not create room: "+err.Error())
		return
	}
	r.removeMember(from, false)
	r.dir.JoinRoom(from, name)
}

func (r *Room) handleJoinRoom(from *session.Client, rawName string) {
	name, ok := normalizeRoomName(rawName)
	if !ok {
		from.SendMessage(protocol.DefaultClientID, "Invalid room name")
		return
	}
	if name == r.name {
		from.SendMessage(protocol.DefaultClientID, "You are already in "+name)
		return
	}
	if !r.dir.RoomExists(name) {
		from.SendMessage(protocol.DefaultClientID, "Room not found: "+name)
		return
	}
	r.removeMember(from, false)
	r.dir.JoinRoom(from, name)
}

func (r *Room) broadcastMessage(fromID int64, text string) {
	for _, m := range r.members {
		m.SendMessage(fromID, text)
	}
}

// broadcastGameEvent sends a server-originated announcement to every member.
func (r *Room) broadcastGameEvent(text string) {
	for _, m := range r.members {
		m.SendGameEvent(text)
	}
}

func (r *Room) indexOf(id int64) int {
	for i, m := range r.members {
		if m.ID() == id {
			return i
		}
	}
	return -1
}

func (r *Room) byID(id int64) *session.Client {
	if i := r.indexOf(id); i >= 0 {
		return r.members[i]
	}
	return nil
}

// displayName resolves a client id to its display name, empty if absent.
func (r *Room) displayName(id int64) string {
	if c := r.byID(id); c != nil {
		return c.Name()
	}
	return ""
}

func (r *Room) view() View {
	v := View{
		Name:   r.name,
		HostID: r.hostID,
	}
	for _, m := range r.members {
		v.Members = append(v.Members, MemberView{
			ID:         m.ID(),
			Name:       m.Name(),
			Ready:      m.Player.IsReady(),
			Playing:    m.Player.Participation == session.Playing,
			Away:       m.Player.Away,
			Eliminated: m.Player.Eliminated,
			TookTurn:   m.Player.TookTurn,
			Points:     m.Player.Points,
			Choice:     string(m.Player.Choice),
			LastChoice: string(m.Player.LastChoice),
		})
	}
	return v
}

func normalizeRoomName(raw string) (string, bool) {
	name := strings.ToLower(strings.TrimSpace(raw))
	if name == "" || len(name) > 32 {
		return "", false
	}
	return name, true
}
