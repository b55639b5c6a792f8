// Package ws is the websocket transport collaborator: it frames JSON payloads
// in and out of a connection and hands parsed messages to the client session.
// Game logic never touches a socket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"rpsarena/internal/hub"
	"rpsarena/internal/protocol"
	"rpsarena/internal/session"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 3 * time.Second
	outboxSize       = 64

	// Inbound message budget per connection; the game needs at most a couple
	// of messages per second from a human.
	inboundRate  = 10
	inboundBurst = 20
)

func Handler(h *hub.Hub, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		logger := log.Named("ws").With(zap.String("conn_id", uuid.NewString()))
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		name, ok := readHandshake(r.Context(), conn)
		if !ok {
			logger.Debug("handshake failed")
			conn.Close(websocket.StatusPolicyViolation, "expected CLIENT_CONNECT with client_name")
			return
		}

		out := make(chan protocol.Payload, outboxSize)
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go writePump(writeCtx, conn, out, logger)

		client := session.New(h.NextClientID(), name, &wsConn{out: out}, logger)
		logger.Info("client connected", zap.Int64("client_id", client.ID()), zap.String("client_name", name))

		client.SendClientID()
		h.JoinLobby(client)
		defer client.OnDisconnected()

		limiter := rate.NewLimiter(rate.Limit(inboundRate), inboundBurst)
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					logger.Debug("read ended", zap.Error(err))
				}
				return
			}

			if !limiter.Allow() {
				client.SendMessage(protocol.DefaultClientID, "Too many messages, slow down")
				continue
			}

			var p protocol.Payload
			if err := json.Unmarshal(data, &p); err != nil {
				client.SendMessage(protocol.DefaultClientID, "Malformed message")
				continue
			}
			client.OnMessageReceived(p)
		}
	}
}

// readHandshake expects the first frame to be CLIENT_CONNECT carrying a
// display name.
func readHandshake(ctx context.Context, conn *websocket.Conn) (string, bool) {
	ctx, cancel := context.WithTimeout(ctx, handshakeTimeout)
	defer cancel()

	_, data, err := conn.Read(ctx)
	if err != nil {
		return "", false
	}
	var hello protocol.Payload
	if err := json.Unmarshal(data, &hello); err != nil {
		return "", false
	}
	name := strings.TrimSpace(hello.ClientName)
	if hello.Type != protocol.TypeClientConnect || name == "" {
		return "", false
	}
	return name, true
}

func writePump(ctx context.Context, conn *websocket.Conn, out <-chan protocol.Payload, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return
		case p := <-out:
			data, err := json.Marshal(p)
			if err != nil {
				log.Error("marshal payload", zap.Error(err))
				continue
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = conn.Write(wctx, websocket.MessageText, data)
			cancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				return
			}
		}
	}
}

var errOutboxFull = errors.New("outbox full")

// wsConn adapts the per-connection outbox to session.Conn. Send never blocks
// the room goroutine; a saturated outbox means the remote is too slow and the
// payload is dropped.
type wsConn struct {
	out chan protocol.Payload
}

func (c *wsConn) Send(p protocol.Payload) error {
	select {
	case c.out <- p:
		return nil
	default:
		return errOutboxFull
	}
}
