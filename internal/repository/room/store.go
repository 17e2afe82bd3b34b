// Package room holds the authoritative in-memory room map. Durability is
// advisory: every Put enqueues a snapshot of the room for a single flusher
// goroutine, which coalesces rapid successive mutations of the same room
// (volume drags) into one backend write per flush interval. A write
// failure is logged and never rolls back or blocks the mutation.
package room

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/synctune/server/internal/domain"
	"github.com/synctune/server/internal/metrics"
)

// Snapshotter is the durable backend: one record per room, keyed by code.
type Snapshotter interface {
	Save(ctx context.Context, code string, room *domain.Room) error
	LoadAll(ctx context.Context) (map[string]*domain.Room, error)
}

const DefaultFlushInterval = 2 * time.Second

type Store struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room

	snap Snapshotter

	pmu     sync.Mutex
	pending map[string]*domain.Room

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewStore restores every persisted room into memory and starts the
// write-behind flusher. Per-record corruption is handled inside the
// backend; only a backend-level failure is returned.
func NewStore(ctx context.Context, snap Snapshotter, interval time.Duration) (*Store, error) {
	rooms, err := snap.LoadAll(ctx)
	if err != nil {
		return nil, err
	}
	slog.InfoContext(ctx, "restored room snapshots", "count", len(rooms))

	if interval <= 0 {
		interval = DefaultFlushInterval
	}

	s := &Store{
		rooms:    rooms,
		snap:     snap,
		pending:  make(map[string]*domain.Room),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	metrics.Rooms.Set(float64(len(rooms)))

	go s.flushLoop()

	return s, nil
}

func (s *Store) Get(code string) (*domain.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	room, ok := s.rooms[code]
	return room, ok
}

// Put installs the room under its code and schedules a durability write of
// its current state. The snapshot is cloned here so the flusher never
// races the mutation path.
func (s *Store) Put(code string, room *domain.Room) {
	s.mu.Lock()
	s.rooms[code] = room
	metrics.Rooms.Set(float64(len(s.rooms)))
	s.mu.Unlock()

	s.pmu.Lock()
	s.pending[code] = room.Clone()
	s.pmu.Unlock()
}

func (s *Store) Codes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	codes := make([]string, 0, len(s.rooms))
	for code := range s.rooms {
		codes = append(codes, code)
	}
	return codes
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.rooms)
}

// Close stops the flusher and performs a final synchronous flush of any
// pending snapshots.
func (s *Store) Close(ctx context.Context) error {
	close(s.stop)
	<-s.done
	s.flush(ctx)
	return nil
}

func (s *Store) flushLoop() {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.flush(context.Background())
		case <-s.stop:
			return
		}
	}
}

func (s *Store) flush(ctx context.Context) {
	s.pmu.Lock()
	batch := s.pending
	s.pending = make(map[string]*domain.Room)
	s.pmu.Unlock()

	for code, room := range batch {
		if err := s.snap.Save(ctx, code, room); err != nil {
			slog.Warn("failed to write room snapshot", "room_id", code, "error", err)
			metrics.SnapshotErrors.Inc()
			continue
		}
		metrics.SnapshotWrites.Inc()
	}
}
