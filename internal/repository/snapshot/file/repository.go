// Package file persists one JSON document per room under a directory, the
// file name (minus extension) being the room code. Corrupt or unreadable
// files are skipped at load with a warning so a bad record never blocks
// startup.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/synctune/server/internal/domain"
)

type repo struct {
	dir string
}

func NewRepo(dir string) (*repo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot dir: %w", err)
	}

	return &repo{dir: dir}, nil
}

func (r *repo) path(code string) string {
	return filepath.Join(r.dir, code+".json")
}

func (r *repo) Save(_ context.Context, code string, room *domain.Room) error {
	b, err := json.MarshalIndent(room, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal room %s: %w", code, err)
	}

	if err := os.WriteFile(r.path(code), b, 0o644); err != nil {
		return fmt.Errorf("failed to write room %s: %w", code, err)
	}

	return nil
}

func (r *repo) Load(_ context.Context, code string) (*domain.Room, error) {
	b, err := os.ReadFile(r.path(code))
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
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot dir: %w", err)
	}

	rooms := make(map[string]*domain.Room)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		code := strings.TrimSuffix(entry.Name(), ".json")
		room, err := r.Load(ctx, code)
		if err != nil {
			slog.Warn("skipping room snapshot", "room_id", code, "error", err)
			continue
		}

		rooms[code] = room
	}

	return rooms, nil
}
