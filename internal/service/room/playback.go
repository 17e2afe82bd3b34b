package room

import (
	"context"
	"log/slog"

	"github.com/synctune/server/internal/domain"
)

// AddTracks appends to the queue in the given order and broadcasts the
// full updated list. Tracks arriving without a media id are resolved
// best-effort before the serialized section, so the event stream never
// waits on the resolver's network round trip.
func (s *service) AddTracks(ctx context.Context, params *AddTracksParams) error {
	tracks := params.Tracks
	if s.resolver != nil {
		for i := range tracks {
			if tracks[i].MediaId != "" || tracks[i].URL == "" {
				continue
			}
			mediaId, title, err := s.resolver.Resolve(ctx, tracks[i].URL)
			if err != nil {
				slog.InfoContext(ctx, "failed to resolve track", "url", tracks[i].URL, "error", err)
				continue
			}
			tracks[i].MediaId = mediaId
			if tracks[i].Title == "" {
				tracks[i].Title = title
			}
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, params.ConnId)
	if !ok {
		return nil
	}

	r.Tracks = append(r.Tracks, tracks...)
	s.store.Put(code, r)
	s.sender.ToRoom(code, &Output{Type: EventRoomTracks, Payload: r.Tracks})

	return nil
}

// ReplaceTracks swaps the queue wholesale. Reordering, deletion, "play
// next" insertion and bulk clear all arrive through here. The current
// index is re-validated against the new list before anyone reads it.
func (s *service) ReplaceTracks(ctx context.Context, params *ReplaceTracksParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, params.ConnId)
	if !ok {
		return nil
	}

	tracks := params.Tracks
	if tracks == nil {
		tracks = []domain.Track{}
	}
	r.Tracks = tracks
	r.NormalizeCurrentIndex()
	s.store.Put(code, r)
	s.sender.ToRoom(code, &Output{Type: EventRoomTracks, Payload: r.Tracks})

	return nil
}

// SetCurrentIndex selects a track. The broadcast skips the requester,
// whose client already applied the change locally; echoing it back causes
// a visible flicker.
func (s *service) SetCurrentIndex(ctx context.Context, params *SetCurrentIndexParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, params.ConnId)
	if !ok {
		return nil
	}

	if params.Index < domain.NoTrack || params.Index >= len(r.Tracks) {
		slog.InfoContext(ctx, "current index out of range", "room_id", code, "index", params.Index)
		return nil
	}

	r.CurrentIndex = params.Index
	s.store.Put(code, r)
	s.sender.ToRoomExcept(code, params.ConnId, &Output{
		Type:    EventCurrentPlaying,
		Payload: currentPlayingPayload{Index: params.Index},
	})

	return nil
}

// SetPlaying flips play/pause for everyone, requester included, since it
// mirrors externally observable transport state.
func (s *service) SetPlaying(ctx context.Context, params *SetPlayingParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, params.ConnId)
	if !ok {
		return nil
	}

	r.IsPlaying = params.Value
	s.store.Put(code, r)
	s.sender.ToRoom(code, &Output{Type: EventPlayingStatus, Payload: r.IsPlaying})

	return nil
}

// SetVolume clamps to the valid range and suppresses duplicates: a slider
// drag repeating the current value produces no state change and no
// broadcast storm.
func (s *service) SetVolume(ctx context.Context, params *SetVolumeParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	code, r, ok := s.roomByConn(ctx, params.ConnId)
	if !ok {
		return nil
	}

	value := domain.ClampVolume(params.Value)
	if value == r.Volume {
		return nil
	}

	r.Volume = value
	s.store.Put(code, r)
	s.sender.ToRoom(code, &Output{Type: EventVolume, Payload: r.Volume})

	return nil
}
