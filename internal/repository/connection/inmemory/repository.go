// Package inmemory tracks which room a connection is routed to and which
// room, if any, it owns. Both mappings are process-scoped and vanish with
// the connection; the room itself lives in the room store.
package inmemory

import (
	"log/slog"
	"sync"

	"github.com/synctune/server/internal/repository/connection"
)

type repo struct {
	mu          sync.RWMutex
	memberRooms map[string]string
	ownerRooms  map[string]string
}

func NewRepo() *repo {
	return &repo{
		memberRooms: make(map[string]string),
		ownerRooms:  make(map[string]string),
	}
}

// Bind routes the connection to a room. A previous binding is silently
// overwritten: a connection is only ever routed to its most recent room.
func (r *repo) Bind(connId string, code string) {
	funcName := "connection.inmemory.Bind"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn_id", connId, "room_id", code)
	r.memberRooms[connId] = code
}

// BindOwner records the connection as the owner of a room, overwriting a
// previous owner-binding.
func (r *repo) BindOwner(connId string, code string) {
	funcName := "connection.inmemory.BindOwner"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn_id", connId, "room_id", code)
	r.ownerRooms[connId] = code
}

func (r *repo) RoomOf(connId string) (string, error) {
	funcName := "connection.inmemory.RoomOf"
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.memberRooms[connId]
	if !ok {
		slog.Debug(funcName, "conn_id", connId, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	return code, nil
}

func (r *repo) OwnedRoomOf(connId string) (string, error) {
	funcName := "connection.inmemory.OwnedRoomOf"
	r.mu.RLock()
	defer r.mu.RUnlock()

	code, ok := r.ownerRooms[connId]
	if !ok {
		slog.Debug(funcName, "conn_id", connId, "error", connection.ErrNotFound)
		return "", connection.ErrNotFound
	}

	return code, nil
}

// Unbind drops both mappings for the connection. Safe to call for a
// connection with no remaining bindings.
func (r *repo) Unbind(connId string) {
	funcName := "connection.inmemory.Unbind"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn_id", connId)
	delete(r.memberRooms, connId)
	delete(r.ownerRooms, connId)
}
