package http

import (
	"context"
	"encoding/json"
	"errors"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/Beds-2-Bytes/backend/internal/relay"
)

// connHandle adapts one websocket connection to relay.Handle. Broadcasts from
// several sender goroutines may call Send concurrently; the websocket library
// serializes writers.
type connHandle struct {
	conn    *websocket.Conn
	timeout time.Duration
}

func (h *connHandle) Send(ctx context.Context, env relay.Envelope) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return wsjson.Write(ctx, h.conn, env)
}

// WSHandler upgrades HTTP connections and runs the per-connection session
// loop: handshake, authentication, registration, then relay inbound messages
// until the transport disconnects.
type WSHandler struct {
	engine      *relay.Engine
	verifier    relay.TokenVerifier
	sendTimeout time.Duration
	log         *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler.
func NewWSHandler(engine *relay.Engine, verifier relay.TokenVerifier, sendTimeout time.Duration, logger *zerolog.Logger) stdhttp.Handler {
	return &WSHandler{
		engine:      engine,
		verifier:    verifier,
		sendTimeout: sendTimeout,
		log:         logger,
	}
}

func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	ctx := r.Context()

	token := r.URL.Query().Get("token")
	room := r.URL.Query().Get("room")

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	// Both handshake parameters are required before any message exchange.
	if token == "" || room == "" {
		h.log.Warn().Bool("has_token", token != "").Str("room", room).Msg("ws handshake missing token or room")
		conn.Close(websocket.StatusPolicyViolation, "missing token or room")
		return
	}

	ident, err := h.verifier.Verify(token)
	if err != nil {
		if errors.Is(err, relay.ErrUnauthorized) {
			h.log.Warn().Err(err).Str("room", room).Msg("ws auth failed")
			conn.Close(websocket.StatusPolicyViolation, "authentication failed")
		} else {
			h.log.Error().Err(err).Str("room", room).Msg("ws auth unexpected error")
			conn.Close(websocket.StatusInternalError, "internal error")
		}
		return
	}

	handle := &connHandle{conn: conn, timeout: h.sendTimeout}
	h.engine.Join(room, ident.UserID, handle)
	// Identity-checked: if this connection was superseded by a rejoin, the
	// newer handle stays registered.
	defer h.engine.Leave(room, ident.UserID, handle)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			// Transport disconnect, graceful or not. Terminal either way.
			h.log.Debug().Err(err).Str("user", ident.UserID).Str("room", room).Msg("ws read ended")
			break
		}

		var msg map[string]any
		if err := json.Unmarshal(data, &msg); err != nil {
			// A single bad frame does not kill the session.
			h.log.Warn().Err(err).Str("user", ident.UserID).Str("room", room).Msg("dropping malformed frame")
			continue
		}

		h.engine.Broadcast(ctx, room, ident.UserID, msg)
	}

	conn.Close(websocket.StatusNormalClosure, "")
}
