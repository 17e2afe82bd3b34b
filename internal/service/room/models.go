package room

import "github.com/synctune/server/internal/domain"

// Event types the service emits.
const (
	EventConnectedServer = "connected-server"
	EventJoinRoom        = "join-room"
	EventRoomTracks      = "room-tracks"
	EventPlayingStatus   = "update-playing-status"
	EventCurrentPlaying  = "update-current-playing"
	EventVolume          = "update-volume"
	EventSyncRequest     = "sync-request"
	EventSyncResponse    = "sync-response"
	EventClearState      = "clear-state"
)

// Envelope result kinds for join/create responses.
const (
	resultSuccess = "SUCCESS"
	resultError   = "ERROR"
)

// Output is the wire frame for every server-to-client message.
type Output struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type successPayload struct {
	Type    string `json:"type"`
	Message string `json:"message,omitempty"`
	domain.RoomInfo
}

type currentPlayingPayload struct {
	Index int `json:"index"`
}

type CreateRoomParams struct {
	ConnId      string
	Code        string
	Permissions domain.Permissions
}

type JoinRoomParams struct {
	ConnId string
	Code   string
}

type AddTracksParams struct {
	ConnId string
	Tracks []domain.Track
}

type ReplaceTracksParams struct {
	ConnId string
	Tracks []domain.Track
}

type SetCurrentIndexParams struct {
	ConnId string
	Index  int
}

type SetPlayingParams struct {
	ConnId string
	Value  bool
}

type SetVolumeParams struct {
	ConnId string
	Value  int
}
