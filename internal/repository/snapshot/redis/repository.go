// Package redis persists room snapshots as one JSON value per room:<CODE>
// key. A TTL keeps abandoned rooms from accumulating forever.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/synctune/server/internal/domain"
)

const roomKeyPrefix = "room:"

type repo struct {
	rc      *redis.Client
	roomExp time.Duration
}

func NewRepo(rc *redis.Client, roomExp time.Duration) *repo {
	return &repo{
		rc:      rc,
		roomExp: roomExp,
	}
}

func roomKey(code string) string {
	return roomKeyPrefix + code
}

func (r *repo) Save(ctx context.Context, code string, room *domain.Room) error {
	b, err := json.Marshal(room)
	if err != nil {
		return fmt.Errorf("failed to marshal room %s: %w", code, err)
	}

	if err := r.rc.Set(ctx, roomKey(code), b, r.roomExp).Err(); err != nil {
		return fmt.Errorf("failed to set room %s: %w", code, err)
	}

	return nil
}

func (r *repo) Load(ctx context.Context, code string) (*domain.Room, error) {
	b, err := r.rc.Get(ctx, roomKey(code)).Bytes()
	if err != nil {
		return nil, err
	}

	var room domain.Room
	if err := json.Unmarshal(b, &room); err != nil {
		return nil, fmt.Errorf("failed to unmarshal room %s: %w", code, err)
	}

	return &room, nil
}

func (r *repo) LoadAll(ctx context.Context) (map[string]*domain.Room, error) {
	rooms := make(map[string]*domain.Room)

	iter := r.rc.Scan(ctx, 0, roomKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		code := strings.TrimPrefix(iter.Val(), roomKeyPrefix)
		room, err := r.Load(ctx, code)
		if err != nil {
			slog.Warn("skipping room snapshot", "room_id", code, "error", err)
			continue
		}

		rooms[code] = room
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan rooms: %w", err)
	}

	return rooms, nil
}
