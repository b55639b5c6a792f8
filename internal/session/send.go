package session

import "rpsarena/internal/protocol"

// Typed send helpers covering every server -> client payload. Each wraps Send,
// so all of them are best-effort.

// SendClientID completes the connection handshake by assigning identity.
func (c *Client) SendClientID() bool {
	return c.Send(protocol.Payload{
		Type:       protocol.TypeClientID,
		ClientID:   c.id,
		ClientName: c.name,
	})
}

// SendMessage delivers chat or a server notice; from identifies the sender,
// with protocol.DefaultClientID / protocol.GameEventID as server sentinels.
func (c *Client) SendMessage(from int64, text string) bool {
	return c.Send(protocol.Payload{
		Type:     protocol.TypeMessage,
		ClientID: from,
		Message:  text,
	})
}

// SendGameEvent delivers a server-originated game announcement.
func (c *Client) SendGameEvent(text string) bool {
	return c.SendMessage(protocol.GameEventID, text)
}

func (c *Client) SendPlayerPoints(clientID int64, points int) bool {
	return c.Send(protocol.Payload{
		Type:     protocol.TypePoints,
		ClientID: clientID,
		Points:   points,
	})
}

// SendCurrentTime syncs a countdown; -1 clears it client-side.
func (c *Client) SendCurrentTime(tt protocol.TimerType, seconds int) bool {
	return c.Send(protocol.Payload{
		Type:      protocol.TypeTime,
		TimerType: tt,
		Time:      seconds,
	})
}

func (c *Client) SendPhase(phase string) bool {
	return c.Send(protocol.Payload{
		Type:    protocol.TypePhase,
		Message: phase,
	})
}

func (c *Client) SendResetTurnStatus() bool {
	return c.Send(protocol.Payload{Type: protocol.TypeResetTurn})
}

func (c *Client) SendTurnStatus(clientID int64, tookTurn, quiet bool) bool {
	t := protocol.TypeTurn
	if quiet {
		t = protocol.TypeSyncTurn
	}
	return c.Send(protocol.Payload{
		Type:     t,
		ClientID: clientID,
		Ready:    tookTurn,
	})
}

func (c *Client) SendResetReady() bool {
	return c.Send(protocol.Payload{Type: protocol.TypeResetReady})
}

func (c *Client) SendReadyStatus(clientID int64, ready, quiet bool) bool {
	t := protocol.TypeReady
	if quiet {
		t = protocol.TypeSyncReady
	}
	return c.Send(protocol.Payload{
		Type:     t,
		ClientID: clientID,
		Ready:    ready,
	})
}

func (c *Client) SendAwayStatus(clientID int64, away, quiet bool) bool {
	t := protocol.TypeAway
	if quiet {
		t = protocol.TypeSyncAway
	}
	return c.Send(protocol.Payload{
		Type:     t,
		ClientID: clientID,
		Away:     away,
	})
}

func (c *Client) SendSettings(key, value string) bool {
	return c.Send(protocol.Payload{
		Type:    protocol.TypeSettings,
		Message: key + " " + value,
	})
}

func (c *Client) SendRooms(rooms []string) bool {
	return c.Send(protocol.Payload{
		Type:  protocol.TypeRoomList,
		Rooms: rooms,
	})
}

func (c *Client) SendDisconnect(clientID int64) bool {
	return c.Send(protocol.Payload{
		Type:     protocol.TypeDisconnect,
		ClientID: clientID,
	})
}

// SendClientInfo syncs one member's identity and room membership. With sync
// set, the client shows no user-facing notice.
func (c *Client) SendClientInfo(clientID int64, clientName, roomName string, action protocol.RoomAction, sync, away bool) bool {
	var t protocol.Type
	switch action {
	case protocol.ActionJoin:
		t = protocol.TypeRoomJoin
	case protocol.ActionLeave:
		t = protocol.TypeRoomLeave
	case protocol.ActionHost:
		t = protocol.TypeHost
	}
	if sync {
		t = protocol.TypeSyncClient
	}
	return c.Send(protocol.Payload{
		Type:       t,
		ClientID:   clientID,
		ClientName: clientName,
		Message:    roomName,
		Away:       away,
	})
}
