package wsrouter

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/gorilla/websocket"
)

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type HandlerFunc func(ctx context.Context, conn *websocket.Conn, payload json.RawMessage) error

type WSRouter struct {
	routes    map[string]HandlerFunc
	onMessage func(messageType string)
}

func New() *WSRouter {
	return &WSRouter{routes: make(map[string]HandlerFunc)}
}

func (r *WSRouter) Handle(messageType string, handler HandlerFunc) {
	r.routes[messageType] = handler
}

// OnMessage registers a hook invoked for every inbound message before
// dispatch, known type or not.
func (r *WSRouter) OnMessage(fn func(messageType string)) {
	r.onMessage = fn
}

// ServeConn reads messages from the connection until it closes and routes
// each one to its handler. Handler errors are logged, never fatal to the
// connection.
func (r *WSRouter) ServeConn(ctx context.Context, conn *websocket.Conn) error {
	defer conn.Close()

	for {
		var msg message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}

		if r.onMessage != nil {
			r.onMessage(msg.Type)
		}

		handler, exists := r.routes[msg.Type]
		if !exists {
			slog.WarnContext(ctx, "unknown message type", "type", msg.Type)
			continue
		}

		msgCtx := context.WithValue(ctx, messageTypeKey, msg.Type)
		if err := handler(msgCtx, conn, msg.Payload); err != nil {
			slog.WarnContext(msgCtx, "handler error", "type", msg.Type, "error", err)
		}
	}
}
