package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	roomService "github.com/synctune/server/internal/service/room"
	"github.com/synctune/server/pkg/playersync"
	"github.com/synctune/server/pkg/validator"
)

type iRoomService interface {
	Connect(connId string, conn *websocket.Conn) error
	ConfirmConnection(connId string) error
	CreateRoom(ctx context.Context, params *roomService.CreateRoomParams) error
	JoinRoom(ctx context.Context, params *roomService.JoinRoomParams) error
	AddTracks(ctx context.Context, params *roomService.AddTracksParams) error
	ReplaceTracks(ctx context.Context, params *roomService.ReplaceTracksParams) error
	SetCurrentIndex(ctx context.Context, params *roomService.SetCurrentIndexParams) error
	SetPlaying(ctx context.Context, params *roomService.SetPlayingParams) error
	SetVolume(ctx context.Context, params *roomService.SetVolumeParams) error
	RequestSync(ctx context.Context, connId string) error
	RelaySyncReport(ctx context.Context, connId string, report playersync.Report) error
	Disconnect(ctx context.Context, connId string)
}

// iConnSender is the direct-reply capability for protocol errors the
// service never sees; the same sender instance the service broadcasts
// through, so writes to one connection stay serialized.
type iConnSender interface {
	ToConn(connId string, v any) error
}

type controller struct {
	roomService iRoomService
	sender      iConnSender
	upgrader    websocket.Upgrader
	validate    *validator.Validator
	logger      *slog.Logger
}

func NewController(roomService iRoomService, sender iConnSender, logger *slog.Logger) *controller {
	return &controller{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		roomService: roomService,
		sender:      sender,
		validate:    validator.NewValidator(),
		logger:      logger,
	}
}
