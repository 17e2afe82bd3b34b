// Package wssender is the fan-out layer: it groups live connections by
// room and writes JSON frames to them. It stands in for the transport's
// native room primitive so the room service never touches a socket list
// directly and can be tested with a fake. Writes to one connection are
// serialized with a per-connection lock.
package wssender

import (
	"errors"
	"log/slog"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/synctune/server/internal/metrics"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

type client struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *client) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.conn.WriteJSON(v)
}

type Repo struct {
	mu      sync.RWMutex
	clients map[string]*client
	groupOf map[string]string
	groups  map[string]map[string]struct{}
}

func NewRepo() *Repo {
	return &Repo{
		clients: make(map[string]*client),
		groupOf: make(map[string]string),
		groups:  make(map[string]map[string]struct{}),
	}
}

func (r *Repo) Register(connId string, conn *websocket.Conn) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[connId]; ok {
		return ErrAlreadyExists
	}

	r.clients[connId] = &client{conn: conn}
	metrics.Connections.Inc()
	return nil
}

// Unregister drops the connection and its group membership. Returns
// ErrNotFound on repeat, which callers treat as the idempotent no-op.
func (r *Repo) Unregister(connId string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.clients[connId]; !ok {
		return ErrNotFound
	}

	delete(r.clients, connId)
	r.leaveLocked(connId)
	metrics.Connections.Dec()
	return nil
}

// Join moves the connection into the room's group, leaving any previous
// group first.
func (r *Repo) Join(connId string, code string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connId)

	group, ok := r.groups[code]
	if !ok {
		group = make(map[string]struct{})
		r.groups[code] = group
	}
	group[connId] = struct{}{}
	r.groupOf[connId] = code
}

func (r *Repo) Leave(connId string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.leaveLocked(connId)
}

func (r *Repo) leaveLocked(connId string) {
	code, ok := r.groupOf[connId]
	if !ok {
		return
	}

	delete(r.groupOf, connId)
	if group, ok := r.groups[code]; ok {
		delete(group, connId)
		if len(group) == 0 {
			delete(r.groups, code)
		}
	}
}

func (r *Repo) ToConn(connId string, v any) error {
	r.mu.RLock()
	cl, ok := r.clients[connId]
	r.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}

	return cl.writeJSON(v)
}

// ToRoom writes v to every connection in the room's group. Individual
// write failures are logged and skipped; the dead connection will surface
// its own disconnect event.
func (r *Repo) ToRoom(code string, v any) {
	r.toGroup(code, "", v)
}

// ToRoomExcept is ToRoom minus one connection, for mutations the sender
// already applied locally.
func (r *Repo) ToRoomExcept(code string, exceptId string, v any) {
	r.toGroup(code, exceptId, v)
}

func (r *Repo) toGroup(code string, exceptId string, v any) {
	r.mu.RLock()
	clients := make(map[string]*client, len(r.groups[code]))
	for connId := range r.groups[code] {
		if connId == exceptId {
			continue
		}
		if cl, ok := r.clients[connId]; ok {
			clients[connId] = cl
		}
	}
	r.mu.RUnlock()

	for connId, cl := range clients {
		if err := cl.writeJSON(v); err != nil {
			slog.Info("failed to write to conn", "conn_id", connId, "room_id", code, "error", err)
			continue
		}
		metrics.BroadcastMessages.Inc()
	}
}
