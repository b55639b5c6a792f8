package room

import (
	"rpsarena/internal/protocol"
	"rpsarena/internal/session"
)

// Msg is a room mailbox message. Every mutation of room state happens on the
// room's own goroutine, driven by these messages; client reader goroutines and
// timer goroutines only enqueue.
type Msg interface{ isRoomMsg() }

// Join adds a client as a member. Enqueued by the hub when a client connects
// or moves between rooms.
type Join struct {
	C *session.Client
}

// Inbound is one parsed payload from a connected client.
type Inbound struct {
	From *session.Client
	P    protocol.Payload
}

// Disconnected reports that a member's transport is gone.
type Disconnected struct {
	C *session.Client
}

// TimerDone is a countdown completion, enqueued from the timer goroutine. Gen
// identifies the arming; stale generations are dropped.
type TimerDone struct {
	Kind protocol.TimerType
	Gen  uint64
}

// TimerTick carries the remaining seconds of a running countdown.
type TimerTick struct {
	Kind      protocol.TimerType
	Remaining int
	Gen       uint64
}

// GetState requests a consistent snapshot of room state, for tests and the
// room listing. The reply channel must have capacity 1.
type GetState struct {
	Reply chan View
}

// Shutdown stops the room's goroutine.
type Shutdown struct{}

func (Join) isRoomMsg()         {}
func (Inbound) isRoomMsg()      {}
func (Disconnected) isRoomMsg() {}
func (TimerDone) isRoomMsg()    {}
func (TimerTick) isRoomMsg()    {}
func (GetState) isRoomMsg()     {}
func (Shutdown) isRoomMsg()     {}

// View is a read-only copy of room state, safe to inspect off the room
// goroutine.
type View struct {
	Name    string
	Phase   Phase
	Round   int
	HostID  int64
	Members []MemberView

	RPS5       bool
	RPS5Final3 bool
	Cooldown   bool

	ReadyTimerArmed bool
	RoundTimerArmed bool
	ReadyGen        uint64
	RoundGen        uint64
}

type MemberView struct {
	ID         int64
	Name       string
	Ready      bool
	Playing    bool
	Away       bool
	Eliminated bool
	TookTurn   bool
	Points     int
	Choice     string
	LastChoice string
}
