package domain

import (
	"slices"
	"time"
)

const (
	MinVolume     = 0
	MaxVolume     = 100
	DefaultVolume = 100

	// NoTrack is the current-index value for "nothing selected".
	NoTrack = -1
)

// Track is a queued playback item. Ids are caller-assigned and opaque to
// the server. MediaId is the resolved playable identifier and may be empty
// until a resolver fills it in.
type Track struct {
	Id      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	MediaId string `json:"videoId,omitempty"`
}

// Permissions are fixed at room (re)creation and enforced by the
// presentation layer, not the server.
type Permissions struct {
	AllowMemberToPlay        bool `json:"allowMemberToPlay"`
	AllowMemberToSync        bool `json:"allowMemberToSync"`
	AllowMemberControlVolume bool `json:"allowMemberControlVolume"`
}

// RoomInfo holds every room field except the track list. Join/create
// envelopes carry exactly this shape.
type RoomInfo struct {
	Code         string    `json:"roomId"`
	CreatedAt    time.Time `json:"createdAt"`
	OwnerId      string    `json:"ownerId"`
	CurrentIndex int       `json:"currentPlaying"`
	IsPlaying    bool      `json:"isPlaying"`
	Volume       int       `json:"volume"`
	Permissions
	ActiveMembers []string `json:"activeMembers"`
}

type Room struct {
	RoomInfo
	Tracks []Track `json:"tracks"`
}

func NewRoom(code string, ownerId string, permissions Permissions) *Room {
	return &Room{
		RoomInfo: RoomInfo{
			Code:          code,
			CreatedAt:     time.Now().UTC(),
			OwnerId:       ownerId,
			CurrentIndex:  NoTrack,
			IsPlaying:     false,
			Volume:        DefaultVolume,
			Permissions:   permissions,
			ActiveMembers: []string{ownerId},
		},
		Tracks: []Track{},
	}
}

// Reclaim resets the transient fields and installs a new owner. Tracks and
// CreatedAt survive; membership starts over with the new owner. Last writer
// wins: a still-connected previous owner is displaced without notice.
func (r *Room) Reclaim(ownerId string, permissions Permissions) {
	r.OwnerId = ownerId
	r.CurrentIndex = NoTrack
	r.IsPlaying = false
	r.Volume = DefaultVolume
	r.Permissions = permissions
	r.ActiveMembers = []string{ownerId}
}

// Orphan clears ownership after the owner connection drops. The room stays
// in the store and is only joinable again via an owner reclaim.
func (r *Room) Orphan() {
	r.OwnerId = ""
	r.Volume = DefaultVolume
	r.CurrentIndex = 0
	r.ActiveMembers = []string{}
}

func (r *Room) AddMember(connId string) {
	if !slices.Contains(r.ActiveMembers, connId) {
		r.ActiveMembers = append(r.ActiveMembers, connId)
	}
}

// NormalizeCurrentIndex re-validates CurrentIndex against the track list.
// An index that no longer points at a track resets to 0, or to NoTrack when
// the queue is empty. Reports whether the index changed.
func (r *Room) NormalizeCurrentIndex() bool {
	if r.CurrentIndex >= NoTrack && r.CurrentIndex < len(r.Tracks) {
		return false
	}
	if len(r.Tracks) == 0 {
		r.CurrentIndex = NoTrack
	} else {
		r.CurrentIndex = 0
	}
	return true
}

// ClampVolume bounds v to the valid volume range.
func ClampVolume(v int) int {
	if v < MinVolume {
		return MinVolume
	}
	if v > MaxVolume {
		return MaxVolume
	}
	return v
}

// Clone returns a deep copy safe to serialize outside the mutation path.
func (r *Room) Clone() *Room {
	c := *r
	c.ActiveMembers = slices.Clone(r.ActiveMembers)
	c.Tracks = slices.Clone(r.Tracks)
	return &c
}
