package inmemory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/synctune/server/internal/repository/connection"
)

func TestBindAndRoomOf(t *testing.T) {
	repo := NewRepo()

	_, err := repo.RoomOf("conn-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	repo.Bind("conn-1", "ROOM1")

	code, err := repo.RoomOf("conn-1")
	require.NoError(t, err)
	assert.Equal(t, "ROOM1", code)

	// rebinding routes to the most recent room
	repo.Bind("conn-1", "ROOM2")
	code, err = repo.RoomOf("conn-1")
	require.NoError(t, err)
	assert.Equal(t, "ROOM2", code)
}

func TestBindOwner(t *testing.T) {
	repo := NewRepo()

	_, err := repo.OwnedRoomOf("conn-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	repo.BindOwner("conn-1", "ROOM1")

	code, err := repo.OwnedRoomOf("conn-1")
	require.NoError(t, err)
	assert.Equal(t, "ROOM1", code)

	// a member binding does not make an owner
	repo.Bind("conn-2", "ROOM1")
	_, err = repo.OwnedRoomOf("conn-2")
	assert.ErrorIs(t, err, connection.ErrNotFound)
}

func TestUnbind(t *testing.T) {
	repo := NewRepo()

	repo.Bind("conn-1", "ROOM1")
	repo.BindOwner("conn-1", "ROOM1")

	repo.Unbind("conn-1")

	_, err := repo.RoomOf("conn-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)
	_, err = repo.OwnedRoomOf("conn-1")
	assert.ErrorIs(t, err, connection.ErrNotFound)

	// repeated unbind is a no-op
	repo.Unbind("conn-1")
}
