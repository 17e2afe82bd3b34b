// Package room is the synchronization engine: room lifecycle, playback
// state mutation and fan-out, and the host-authoritative resync relay.
// Every mutation runs under one mutex, so the whole process is a single
// serialized stream of events and the room map needs no further locking.
package room

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/synctune/server/internal/domain"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrHostInactive = errors.New("host not active for this room")
)

type iRoomStore interface {
	Get(code string) (*domain.Room, bool)
	Put(code string, room *domain.Room)
}

type iRegistry interface {
	Bind(connId string, code string)
	BindOwner(connId string, code string)
	RoomOf(connId string) (string, error)
	OwnedRoomOf(connId string) (string, error)
	Unbind(connId string)
}

type iSender interface {
	Register(connId string, conn *websocket.Conn) error
	Unregister(connId string) error
	Join(connId string, code string)
	Leave(connId string)
	ToConn(connId string, v any) error
	ToRoom(code string, v any)
	ToRoomExcept(code string, exceptId string, v any)
}

// iTrackResolver resolves a source URL to a playable media id and a title.
// Metadata lookup is an external collaborator; a nil resolver disables it.
type iTrackResolver interface {
	Resolve(ctx context.Context, url string) (string, string, error)
}

type service struct {
	mu       sync.Mutex
	store    iRoomStore
	registry iRegistry
	sender   iSender
	resolver iTrackResolver
}

func NewService(store iRoomStore, registry iRegistry, sender iSender, resolver iTrackResolver) *service {
	return &service{
		store:    store,
		registry: registry,
		sender:   sender,
		resolver: resolver,
	}
}

// Room codes are case-normalized uppercase by convention.
func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// roomByConn resolves the acting room for an ordinary mutation. A noisy
// client with no binding gets its events logged and dropped, never an
// error envelope.
func (s *service) roomByConn(ctx context.Context, connId string) (string, *domain.Room, bool) {
	code, err := s.registry.RoomOf(connId)
	if err != nil {
		slog.InfoContext(ctx, "no room binding for connection", "conn_id", connId)
		return "", nil, false
	}

	r, ok := s.store.Get(code)
	if !ok {
		slog.InfoContext(ctx, "room not found", "room_id", code)
		return "", nil, false
	}

	return code, r, true
}
