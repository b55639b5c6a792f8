package protocol

// Payload is the single tagged wire record exchanged with clients. It carries
// the union of every message's fields; the Type tag decides which ones matter.
// JSON over the websocket, one object per frame.
type Payload struct {
	Type       Type      `json:"type"`
	ClientID   int64     `json:"client_id,omitempty"`
	ClientName string    `json:"client_name,omitempty"`
	Message    string    `json:"message,omitempty"`
	Ready      bool      `json:"ready,omitempty"`
	Away       bool      `json:"away,omitempty"`
	TimerType  TimerType `json:"timer_type,omitempty"`
	Time       int       `json:"time"`
	Points     int       `json:"points"`
	Rooms      []string  `json:"rooms,omitempty"`
}

type Type string

const (
	TypeClientConnect Type = "CLIENT_CONNECT" // client -> server handshake, carries client_name
	TypeClientID      Type = "CLIENT_ID"      // server assigns identity
	TypeSyncClient    Type = "SYNC_CLIENT"    // silent membership sync (no user-facing notice)
	TypeDisconnect    Type = "DISCONNECT"     // distinct disconnect notice
	TypeRoomCreate    Type = "ROOM_CREATE"
	TypeRoomJoin      Type = "ROOM_JOIN"
	TypeRoomLeave     Type = "ROOM_LEAVE"
	TypeRoomList      Type = "ROOM_LIST"
	TypeMessage       Type = "MESSAGE" // chat or server announcement
	TypeReady         Type = "READY"
	TypeSyncReady     Type = "SYNC_READY"  // quiet version of READY
	TypeResetReady    Type = "RESET_READY" // client resets its whole local ready list
	TypePhase         Type = "PHASE"
	TypeTurn          Type = "TURN"
	TypeSyncTurn      Type = "SYNC_TURN"  // quiet version of TURN
	TypeResetTurn     Type = "RESET_TURN" // client resets its local turn-status list
	TypeTime          Type = "TIME"       // countdown sync, -1 clears
	TypePoints        Type = "POINTS"
	TypeHost          Type = "HOST"
	TypeSettings      Type = "SETTINGS" // "key value" text
	TypeAway          Type = "AWAY"
	TypeSyncAway      Type = "SYNC_AWAY"
)

// TimerType distinguishes which countdown a TIME payload refers to.
type TimerType string

const (
	TimerReady TimerType = "READY"
	TimerRound TimerType = "ROUND"
)

// RoomAction selects the payload type used when syncing client info.
type RoomAction int

const (
	ActionJoin RoomAction = iota
	ActionLeave
	ActionHost
)

const (
	// DefaultClientID is the reset/none sentinel.
	DefaultClientID int64 = -1
	// GameEventID marks server-originated game announcements in MESSAGE payloads.
	GameEventID int64 = -2
)
