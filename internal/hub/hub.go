// Package hub owns the directory of rooms. It runs as its own actor so that
// creating, removing, and listing rooms is serialized, while individual rooms
// stay fully independent of each other.
package hub

import (
	"errors"
	"sort"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"rpsarena/internal/config"
	"rpsarena/internal/room"
	"rpsarena/internal/session"
)

var ErrRoomExists = errors.New("room already exists")

type hubMsg interface{ isHubMsg() }

type createRoom struct {
	name  string
	reply chan error
}

type roomExists struct {
	name  string
	reply chan bool
}

type listRooms struct {
	filter string
	reply  chan []string
}

type removeRoom struct {
	name  string
	reply chan struct{}
}

type joinRoom struct {
	c    *session.Client
	name string
}

type shutdown struct {
	done chan struct{}
}

func (createRoom) isHubMsg() {}
func (roomExists) isHubMsg() {}
func (listRooms) isHubMsg()  {}
func (removeRoom) isHubMsg() {}
func (joinRoom) isHubMsg()   {}
func (shutdown) isHubMsg()   {}

// Hub is the room directory. Its loop never blocks on a room mailbox, which is
// what makes the rooms' synchronous request/reply calls into the hub safe.
type Hub struct {
	cfg config.Config
	log *zap.Logger

	inbox chan hubMsg
	rooms map[string]room.Handle

	nextClientID atomic.Int64
}

func New(cfg config.Config, log *zap.Logger) *Hub {
	h := &Hub{
		cfg:   cfg,
		log:   log.Named("hub"),
		inbox: make(chan hubMsg, 64),
		rooms: make(map[string]room.Handle),
	}

	lobby := room.NewLobby(h, cfg, log)
	h.rooms[room.Lobby] = lobby
	go lobby.Run()

	go h.loop()
	return h
}

// NextClientID hands out process-unique client ids, never reused.
func (h *Hub) NextClientID() int64 {
	return h.nextClientID.Add(1)
}

// CreateRoom registers a new game room and starts its loop.
func (h *Hub) CreateRoom(name string) error {
	reply := make(chan error, 1)
	h.inbox <- createRoom{name: name, reply: reply}
	return <-reply
}

func (h *Hub) RoomExists(name string) bool {
	reply := make(chan bool, 1)
	h.inbox <- roomExists{name: name, reply: reply}
	return <-reply
}

func (h *Hub) ListRooms(filter string) []string {
	reply := make(chan []string, 1)
	h.inbox <- listRooms{filter: filter, reply: reply}
	return <-reply
}

// RemoveRoom deletes the room from the directory. When it returns, no further
// joins will be forwarded to that room.
func (h *Hub) RemoveRoom(name string) {
	reply := make(chan struct{}, 1)
	h.inbox <- removeRoom{name: name, reply: reply}
	<-reply
}

// JoinRoom forwards the client into the named room, falling back to the lobby
// if the room disappeared in the meantime.
func (h *Hub) JoinRoom(c *session.Client, name string) {
	h.inbox <- joinRoom{c: c, name: name}
}

// JoinLobby puts a freshly connected client into the lobby.
func (h *Hub) JoinLobby(c *session.Client) {
	h.JoinRoom(c, room.Lobby)
}

// Shutdown asks every room to stop and returns once the requests have been
// dispatched.
func (h *Hub) Shutdown() {
	done := make(chan struct{}, 1)
	h.inbox <- shutdown{done: done}
	<-done
}

func (h *Hub) loop() {
	for m := range h.inbox {
		switch msg := m.(type) {
		case createRoom:
			if _, exists := h.rooms[msg.name]; exists {
				msg.reply <- ErrRoomExists
				break
			}
			gr := room.NewGameRoom(msg.name, h, h.cfg, h.log)
			h.rooms[msg.name] = gr
			go gr.Run()
			h.log.Info("room created", zap.String("room", msg.name))
			msg.reply <- nil

		case roomExists:
			_, ok := h.rooms[msg.name]
			msg.reply <- ok

		case listRooms:
			var names []string
			for name := range h.rooms {
				if msg.filter == "" || strings.Contains(name, msg.filter) {
					names = append(names, name)
				}
			}
			sort.Strings(names)
			msg.reply <- names

		case removeRoom:
			if msg.name != room.Lobby {
				delete(h.rooms, msg.name)
				h.log.Info("room removed", zap.String("room", msg.name))
			}
			msg.reply <- struct{}{}

		case joinRoom:
			target, ok := h.rooms[msg.name]
			if !ok {
				target = h.rooms[room.Lobby]
			}
			if !h.forward(target, room.Join{C: msg.c}) && target.Name() != room.Lobby {
				if !h.forward(h.rooms[room.Lobby], room.Join{C: msg.c}) {
					h.log.Error("dropping join, lobby mailbox full", zap.Int64("client_id", msg.c.ID()))
				}
			}

		case shutdown:
			for _, rm := range h.rooms {
				h.forward(rm, room.Shutdown{})
			}
			msg.done <- struct{}{}
			return
		}
	}
}

// forward never blocks: the hub must stay responsive to the rooms' synchronous
// calls even when a room mailbox is saturated.
func (h *Hub) forward(target room.Handle, m room.Msg) bool {
	select {
	case target.Inbox() <- m:
		return true
	default:
		h.log.Warn("room mailbox full", zap.String("room", target.Name()))
		return false
	}
}
