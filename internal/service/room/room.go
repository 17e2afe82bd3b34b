package room

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gorilla/websocket"

	"github.com/synctune/server/internal/domain"
)

// Connect registers a fresh connection with the fan-out layer. It happens
// before any room binding exists.
func (s *service) Connect(connId string, conn *websocket.Conn) error {
	if err := s.sender.Register(connId, conn); err != nil {
		return fmt.Errorf("failed to register connection: %w", err)
	}

	return nil
}

// ConfirmConnection answers the client's connect-server probe.
func (s *service) ConfirmConnection(connId string) error {
	return s.sender.ToConn(connId, &Output{Type: EventConnectedServer})
}

// CreateRoom creates the room, or reclaims it when the code already
// exists: tracks and creation time survive, the transient fields reset and
// the requester becomes owner. Only the requester hears back; the track
// list and the room envelope arrive as two separate messages.
func (s *service) CreateRoom(ctx context.Context, params *CreateRoomParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := normalizeCode(params.Code)

	r, ok := s.store.Get(code)
	if !ok {
		r = domain.NewRoom(code, params.ConnId, params.Permissions)
		slog.InfoContext(ctx, "created room", "room_id", code)
	} else {
		r.Reclaim(params.ConnId, params.Permissions)
		slog.InfoContext(ctx, "reclaimed room", "room_id", code)
	}

	s.registry.Bind(params.ConnId, code)
	s.registry.BindOwner(params.ConnId, code)
	s.sender.Join(params.ConnId, code)
	s.store.Put(code, r)

	if err := s.sender.ToConn(params.ConnId, &Output{Type: EventRoomTracks, Payload: r.Tracks}); err != nil {
		return fmt.Errorf("failed to send track list: %w", err)
	}
	if err := s.sender.ToConn(params.ConnId, &Output{
		Type:    EventJoinRoom,
		Payload: successPayload{Type: resultSuccess, RoomInfo: r.RoomInfo},
	}); err != nil {
		return fmt.Errorf("failed to send join envelope: %w", err)
	}

	return nil
}

// JoinRoom adds the connection as a member. Unknown codes and orphaned
// rooms are rejected with a typed error envelope; on success the requester
// gets the track list plus the room envelope, and the room's current
// play-state is re-broadcast to everyone in case the newcomer's client
// assumed a stale default.
func (s *service) JoinRoom(ctx context.Context, params *JoinRoomParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code := normalizeCode(params.Code)

	r, ok := s.store.Get(code)
	if !ok {
		slog.InfoContext(ctx, "join rejected", "room_id", code, "error", ErrRoomNotFound)
		s.sendJoinError(params.ConnId, "Room not found")
		return fmt.Errorf("%w: %s", ErrRoomNotFound, code)
	}
	if r.OwnerId == "" {
		slog.InfoContext(ctx, "join rejected", "room_id", code, "error", ErrHostInactive)
		s.sendJoinError(params.ConnId, "Host not active for this room")
		return fmt.Errorf("%w: %s", ErrHostInactive, code)
	}

	s.registry.Bind(params.ConnId, code)
	s.sender.Join(params.ConnId, code)
	r.AddMember(params.ConnId)
	r.NormalizeCurrentIndex()
	s.store.Put(code, r)

	if err := s.sender.ToConn(params.ConnId, &Output{Type: EventRoomTracks, Payload: r.Tracks}); err != nil {
		return fmt.Errorf("failed to send track list: %w", err)
	}
	if err := s.sender.ToConn(params.ConnId, &Output{
		Type:    EventJoinRoom,
		Payload: successPayload{Type: resultSuccess, Message: "User joined successfully", RoomInfo: r.RoomInfo},
	}); err != nil {
		return fmt.Errorf("failed to send join envelope: %w", err)
	}

	s.sender.ToRoom(code, &Output{Type: EventPlayingStatus, Payload: r.IsPlaying})

	return nil
}

func (s *service) sendJoinError(connId string, message string) {
	if err := s.sender.ToConn(connId, &Output{
		Type:    EventJoinRoom,
		Payload: errorPayload{Type: resultError, Message: message},
	}); err != nil {
		slog.Info("failed to send join error", "conn_id", connId, "error", err)
	}
}

// Disconnect handles a transport-level connection loss. If the connection
// still owned a room the room is orphaned and the members are told to
// clear their state; the bindings go away either way. Safe to process more
// than once for the same connection.
func (s *service) Disconnect(ctx context.Context, connId string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if code, err := s.registry.OwnedRoomOf(connId); err == nil {
		if r, ok := s.store.Get(code); ok && r.OwnerId == connId {
			r.Orphan()
			s.store.Put(code, r)
			s.sender.ToRoom(code, &Output{Type: EventClearState})
			slog.InfoContext(ctx, "room orphaned", "room_id", code)
		}
	}

	s.registry.Unbind(connId)
	if err := s.sender.Unregister(connId); err != nil {
		// expected on a repeated disconnect event
		slog.DebugContext(ctx, "connection already unregistered", "conn_id", connId)
	}
}
