package room

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synctune/server/internal/domain"
	"github.com/synctune/server/internal/repository/connection/inmemory"
	roomStore "github.com/synctune/server/internal/repository/room"
	snapshotFile "github.com/synctune/server/internal/repository/snapshot/file"
)

type sentMessage struct {
	ConnId string
	Room   string
	Except string
	Output *Output
}

type fakeSender struct {
	mu         sync.Mutex
	registered map[string]bool
	sent       []sentMessage
}

func newFakeSender() *fakeSender {
	return &fakeSender{registered: make(map[string]bool)}
}

func (f *fakeSender) Register(connId string, _ *websocket.Conn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[connId] = true
	return nil
}

func (f *fakeSender) Unregister(connId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.registered[connId] {
		return assert.AnError
	}
	delete(f.registered, connId)
	return nil
}

func (f *fakeSender) Join(connId string, code string) {}

func (f *fakeSender) Leave(connId string) {}

func (f *fakeSender) ToConn(connId string, v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{ConnId: connId, Output: v.(*Output)})
	return nil
}

func (f *fakeSender) ToRoom(code string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Room: code, Output: v.(*Output)})
}

func (f *fakeSender) ToRoomExcept(code string, exceptId string, v any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMessage{Room: code, Except: exceptId, Output: v.(*Output)})
}

func (f *fakeSender) ofType(eventType string) []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []sentMessage
	for _, m := range f.sent {
		if m.Output.Type == eventType {
			out = append(out, m)
		}
	}
	return out
}

func newTestService(t *testing.T) (*service, *fakeSender, *roomStore.Store) {
	t.Helper()

	snap, err := snapshotFile.NewRepo(t.TempDir())
	require.NoError(t, err)

	store, err := roomStore.NewStore(context.Background(), snap, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close(context.Background()) })

	sender := newFakeSender()
	svc := NewService(store, inmemory.NewRepo(), sender, nil)

	return svc, sender, store
}

func TestCreateRoom(t *testing.T) {
	svc, sender, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.Connect("host-1", nil))
	err := svc.CreateRoom(ctx, &CreateRoomParams{
		ConnId: "host-1",
		Code:   "abc12",
		Permissions: domain.Permissions{
			AllowMemberToPlay: true,
			AllowMemberToSync: true,
		},
	})
	require.NoError(t, err)

	r, ok := store.Get("ABC12")
	require.True(t, ok, "room code must be uppercase-normalized")
	assert.Equal(t, "host-1", r.OwnerId)
	assert.Equal(t, domain.NoTrack, r.CurrentIndex)
	assert.False(t, r.IsPlaying)
	assert.Equal(t, domain.DefaultVolume, r.Volume)
	assert.Empty(t, r.Tracks)
	assert.True(t, r.AllowMemberToPlay)
	assert.True(t, r.AllowMemberToSync)
	assert.False(t, r.AllowMemberControlVolume)
	assert.Equal(t, []string{"host-1"}, r.ActiveMembers)
	assert.False(t, r.CreatedAt.IsZero())

	tracks := sender.ofType(EventRoomTracks)
	require.Len(t, tracks, 1)
	assert.Equal(t, "host-1", tracks[0].ConnId)

	envelopes := sender.ofType(EventJoinRoom)
	require.Len(t, envelopes, 1)
	payload := envelopes[0].Output.Payload.(successPayload)
	assert.Equal(t, "SUCCESS", payload.Type)
	assert.Equal(t, "ABC12", payload.Code)
}

func TestCreateRoomReclaim(t *testing.T) {
	svc, _, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.AddTracks(ctx, &AddTracksParams{
		ConnId: "host-1",
		Tracks: []domain.Track{{Id: "t1", Title: "one", URL: "u1", MediaId: "m1"}},
	}))
	require.NoError(t, svc.SetPlaying(ctx, &SetPlayingParams{ConnId: "host-1", Value: true}))
	require.NoError(t, svc.SetVolume(ctx, &SetVolumeParams{ConnId: "host-1", Value: 40}))

	before, _ := store.Get("ROOM1")
	createdAt := before.CreatedAt

	err := svc.CreateRoom(ctx, &CreateRoomParams{
		ConnId:      "host-2",
		Code:        "room1",
		Permissions: domain.Permissions{AllowMemberControlVolume: true},
	})
	require.NoError(t, err)

	r, ok := store.Get("ROOM1")
	require.True(t, ok)
	assert.Equal(t, "host-2", r.OwnerId, "last creator wins ownership")
	assert.True(t, r.CreatedAt.Equal(createdAt), "creation time survives reclaim")
	require.Len(t, r.Tracks, 1, "tracks survive reclaim")
	assert.Equal(t, "t1", r.Tracks[0].Id)
	assert.Equal(t, domain.NoTrack, r.CurrentIndex)
	assert.False(t, r.IsPlaying)
	assert.Equal(t, domain.DefaultVolume, r.Volume)
	assert.True(t, r.AllowMemberControlVolume)
	assert.Equal(t, []string{"host-2"}, r.ActiveMembers)
}

func TestJoinRoomErrors(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	err := svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "NOPE"})
	require.ErrorIs(t, err, ErrRoomNotFound)

	envelopes := sender.ofType(EventJoinRoom)
	require.Len(t, envelopes, 1)
	payload := envelopes[0].Output.Payload.(errorPayload)
	assert.Equal(t, "ERROR", payload.Type)
	assert.Equal(t, "Room not found", payload.Message)

	// orphan the room, then join it
	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	svc.Disconnect(ctx, "host-1")

	err = svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"})
	require.ErrorIs(t, err, ErrHostInactive)
}

func TestJoinRoomSuccess(t *testing.T) {
	svc, sender, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.SetPlaying(ctx, &SetPlayingParams{ConnId: "host-1", Value: true}))

	err := svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "room1"})
	require.NoError(t, err)

	r, _ := store.Get("ROOM1")
	assert.ElementsMatch(t, []string{"host-1", "member-1"}, r.ActiveMembers)

	// one envelope from the create, one from the join
	envelopes := sender.ofType(EventJoinRoom)
	require.Len(t, envelopes, 2)
	assert.Equal(t, "member-1", envelopes[1].ConnId)
	payload := envelopes[1].Output.Payload.(successPayload)
	assert.Equal(t, "SUCCESS", payload.Type)
	assert.Equal(t, "User joined successfully", payload.Message)
	assert.True(t, payload.IsPlaying)

	// the whole room hears the current play-state again
	statuses := sender.ofType(EventPlayingStatus)
	require.NotEmpty(t, statuses)
	last := statuses[len(statuses)-1]
	assert.Equal(t, "ROOM1", last.Room)
	assert.Equal(t, true, last.Output.Payload)
}

func TestOwnerDisconnectOrphansRoom(t *testing.T) {
	svc, sender, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.AddTracks(ctx, &AddTracksParams{
		ConnId: "host-1",
		Tracks: []domain.Track{{Id: "t1"}},
	}))
	require.NoError(t, svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"}))
	require.NoError(t, svc.SetVolume(ctx, &SetVolumeParams{ConnId: "host-1", Value: 30}))

	svc.Disconnect(ctx, "host-1")

	r, ok := store.Get("ROOM1")
	require.True(t, ok, "orphaned rooms stay in the store")
	assert.Empty(t, r.OwnerId)
	assert.Equal(t, domain.DefaultVolume, r.Volume)
	assert.Equal(t, 0, r.CurrentIndex)
	assert.Empty(t, r.ActiveMembers)
	assert.Len(t, r.Tracks, 1, "queue survives orphaning")

	require.Len(t, sender.ofType(EventClearState), 1)

	// repeated disconnect event: no error, no second notification
	svc.Disconnect(ctx, "host-1")
	require.Len(t, sender.ofType(EventClearState), 1)
}

func TestMemberDisconnectLeavesRoomIntact(t *testing.T) {
	svc, sender, store := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"}))

	svc.Disconnect(ctx, "member-1")

	r, _ := store.Get("ROOM1")
	assert.Equal(t, "host-1", r.OwnerId)
	assert.Empty(t, sender.ofType(EventClearState))
}
