package room

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synctune/server/pkg/playersync"
)

func TestRequestSyncGoesToOwnerOnly(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"}))

	require.NoError(t, svc.RequestSync(ctx, "member-1"))

	requests := sender.ofType(EventSyncRequest)
	require.Len(t, requests, 1)
	assert.Equal(t, "host-1", requests[0].ConnId)
	assert.Empty(t, requests[0].Room, "forwarded point-to-point, never broadcast")
}

func TestRequestSyncAgainstOrphanedRoom(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"}))
	svc.Disconnect(ctx, "host-1")

	require.NoError(t, svc.RequestSync(ctx, "member-1"))
	assert.Empty(t, sender.ofType(EventSyncRequest), "nobody to ask")
}

func TestRelaySyncReport(t *testing.T) {
	svc, sender, _ := newTestService(t)
	ctx := context.Background()

	require.NoError(t, svc.CreateRoom(ctx, &CreateRoomParams{ConnId: "host-1", Code: "ROOM1"}))
	require.NoError(t, svc.JoinRoom(ctx, &JoinRoomParams{ConnId: "member-1", Code: "ROOM1"}))

	report := playersync.Report{
		Type:        playersync.ReportType,
		PlayerState: playersync.StatePlaying,
		Time:        time.Now().UnixMilli(),
		CurrentTime: 42.5,
		MediaId:     "m1",
	}
	require.NoError(t, svc.RelaySyncReport(ctx, "host-1", report))

	responses := sender.ofType(EventSyncResponse)
	require.Len(t, responses, 1)
	assert.Equal(t, "ROOM1", responses[0].Room)
	assert.Equal(t, report, responses[0].Output.Payload)
}

func TestRelaySyncReportWithoutBinding(t *testing.T) {
	svc, sender, _ := newTestService(t)

	require.NoError(t, svc.RelaySyncReport(context.Background(), "stranger", playersync.Report{}))
	assert.Empty(t, sender.sent)
}
