package controller

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/synctune/server/internal/domain"
	"github.com/synctune/server/internal/metrics"
	roomService "github.com/synctune/server/internal/service/room"
	"github.com/synctune/server/pkg/ctxlogger"
	"github.com/synctune/server/pkg/playersync"
	"github.com/synctune/server/pkg/wsrouter"
)

type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

func (c controller) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.InfoContext(r.Context(), "failed to upgrade connection", "error", err)
		return
	}

	connId := uuid.NewString()
	ctx := ctxlogger.AppendCtx(r.Context(), slog.String("conn_id", connId))
	ctx = context.WithValue(ctx, connIdCtxKey, connId)

	if err := c.roomService.Connect(connId, conn); err != nil {
		c.logger.InfoContext(ctx, "failed to register connection", "error", err)
		conn.Close()
		return
	}
	c.logger.InfoContext(ctx, "connection opened")

	// the read loop owns the connection; its exit is the one disconnect
	// event for this connection
	defer func() {
		c.roomService.Disconnect(ctx, connId)
		c.logger.InfoContext(ctx, "connection closed")
	}()

	mux := c.getWSRouter()
	mux.OnMessage(func(messageType string) {
		metrics.EventsTotal.WithLabelValues(messageType).Inc()
	})

	if err := mux.ServeConn(ctx, conn); err != nil {
		c.logger.DebugContext(ctx, "read loop ended", "error", err)
	}
}

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()

	// lifecycle
	mux.Handle("connect-server", c.handleConnectServer)
	mux.Handle("create-room", c.handleCreateRoom)
	mux.Handle("join-room", c.handleJoinRoom)

	// playback
	mux.Handle("add-track", c.handleAddTrack)
	mux.Handle("update-tracks", c.handleUpdateTracks)
	mux.Handle("update-current-playing", c.handleUpdateCurrentPlaying)
	mux.Handle("update-playing-status", c.handleUpdatePlayingStatus)
	mux.Handle("update-volume", c.handleUpdateVolume)

	// time-sync
	mux.Handle("sync-request", c.handleSyncRequest)
	mux.Handle("sync-response", c.handleSyncResponse)

	// hosting-platform anti-idle ping, nothing to do
	mux.Handle("client-active", c.handleClientActive)

	return mux
}

func (c controller) handleConnectServer(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return c.roomService.ConfirmConnection(c.getConnIdFromCtx(ctx))
}

func (c controller) handleClientActive(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	c.logger.DebugContext(ctx, "client active")
	return nil
}

type CreateRoomInput struct {
	RoomId                   string `json:"roomId" validate:"required,max=32"`
	AllowMemberToPlay        bool   `json:"allowMemberToPlay"`
	AllowMemberToSync        bool   `json:"allowMemberToSync"`
	AllowMemberControlVolume bool   `json:"allowMemberControlVolume"`
}

func (c controller) handleCreateRoom(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input CreateRoomInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeJoinError(ctx, validationErrors[0].Message)
		return fmt.Errorf("invalid create-room payload: %s", validationErrors[0].Message)
	}

	if err := c.roomService.CreateRoom(ctx, &roomService.CreateRoomParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Code:   input.RoomId,
		Permissions: domain.Permissions{
			AllowMemberToPlay:        input.AllowMemberToPlay,
			AllowMemberToSync:        input.AllowMemberToSync,
			AllowMemberControlVolume: input.AllowMemberControlVolume,
		},
	}); err != nil {
		return fmt.Errorf("failed to create room: %w", err)
	}

	return nil
}

type JoinRoomInput struct {
	RoomId string `json:"roomId" validate:"required,max=32"`
}

func (c controller) handleJoinRoom(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input JoinRoomInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if validationErrors, ok := c.validate.Validate(input); !ok {
		c.writeJoinError(ctx, validationErrors[0].Message)
		return fmt.Errorf("invalid join-room payload: %s", validationErrors[0].Message)
	}

	if err := c.roomService.JoinRoom(ctx, &roomService.JoinRoomParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Code:   input.RoomId,
	}); err != nil {
		// the service already delivered the error envelope
		c.logger.InfoContext(ctx, "join failed", "error", err)
	}

	return nil
}

type TracksInput struct {
	Tracks []domain.Track `json:"tracks"`
}

func (c controller) handleAddTrack(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input TracksInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.AddTracks(ctx, &roomService.AddTracksParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Tracks: input.Tracks,
	})
}

func (c controller) handleUpdateTracks(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input TracksInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.ReplaceTracks(ctx, &roomService.ReplaceTracksParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Tracks: input.Tracks,
	})
}

type UpdateCurrentPlayingInput struct {
	Index int `json:"index"`
}

func (c controller) handleUpdateCurrentPlaying(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateCurrentPlayingInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.SetCurrentIndex(ctx, &roomService.SetCurrentIndexParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Index:  input.Index,
	})
}

type UpdatePlayingStatusInput struct {
	Value bool `json:"value"`
}

func (c controller) handleUpdatePlayingStatus(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdatePlayingStatusInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.SetPlaying(ctx, &roomService.SetPlayingParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Value:  input.Value,
	})
}

type UpdateVolumeInput struct {
	Value int `json:"value"`
}

func (c controller) handleUpdateVolume(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var input UpdateVolumeInput
	if err := json.Unmarshal(payload, &input); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.SetVolume(ctx, &roomService.SetVolumeParams{
		ConnId: c.getConnIdFromCtx(ctx),
		Value:  input.Value,
	})
}

func (c controller) handleSyncRequest(ctx context.Context, _ *websocket.Conn, _ json.RawMessage) error {
	return c.roomService.RequestSync(ctx, c.getConnIdFromCtx(ctx))
}

func (c controller) handleSyncResponse(ctx context.Context, _ *websocket.Conn, payload json.RawMessage) error {
	var report playersync.Report
	if err := json.Unmarshal(payload, &report); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	return c.roomService.RelaySyncReport(ctx, c.getConnIdFromCtx(ctx), report)
}

// writeJoinError answers a malformed create/join; the service never saw
// the request.
func (c controller) writeJoinError(ctx context.Context, message string) {
	if err := c.sender.ToConn(c.getConnIdFromCtx(ctx), &Output{
		Type: "join-room",
		Payload: map[string]string{
			"type":    "ERROR",
			"message": message,
		},
	}); err != nil {
		c.logger.InfoContext(ctx, "failed to write error", "error", err)
	}
}
