package room

import (
	"context"
	"log/slog"

	"github.com/synctune/server/pkg/playersync"
)

// RequestSync forwards a member's resync request to the room's owner, and
// only the owner. There is no server-side wait; the owner's answer arrives
// later as an independent sync-response event. An orphaned room has nobody
// to ask, so the request is dropped with a log.
func (s *service) RequestSync(ctx context.Context, connId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, connId)
	if !ok {
		return nil
	}

	if r.OwnerId == "" {
		slog.InfoContext(ctx, "sync request against orphaned room", "room_id", code)
		return nil
	}

	if err := s.sender.ToConn(r.OwnerId, &Output{Type: EventSyncRequest}); err != nil {
		slog.InfoContext(ctx, "failed to forward sync request", "room_id", code, "error", err)
	}

	return nil
}

// RelaySyncReport broadcasts the owner's timestamped player sample to the
// entire room, requester included, so every member resynchronizes off the
// same report rather than only the one who asked.
func (s *service) RelaySyncReport(ctx context.Context, connId string, report playersync.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, _, ok := s.roomByConn(ctx, connId)
	if !ok {
		return nil
	}

	s.sender.ToRoom(code, &Output{Type: EventSyncResponse, Payload: report})

	return nil
}
