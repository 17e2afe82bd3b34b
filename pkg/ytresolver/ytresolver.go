// Package ytresolver resolves a YouTube URL to a playable video id and a
// display title. It is the default implementation of the track-resolution
// collaborator; the room service only sees its Resolve method.
package ytresolver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"
)

var (
	ErrNotYouTubeURL = errors.New("not a recognizable youtube url")
	ErrVideoNotFound = errors.New("video not found")
)

var videoIdRe = regexp.MustCompile(`(?:youtu\.be/|v/|u/\w/|embed/|watch\?v=|&v=)([^#&?]*)`)

// ExtractVideoId pulls the 11-character video id out of the usual YouTube
// URL shapes (watch, youtu.be, embed, /v/).
func ExtractVideoId(url string) (string, bool) {
	m := videoIdRe.FindStringSubmatch(url)
	if m == nil || len(m[1]) != 11 {
		return "", false
	}

	return m[1], true
}

type Resolver struct {
	client *http.Client
}

func New() *Resolver {
	return &Resolver{
		client: &http.Client{Timeout: 5 * time.Second},
	}
}

// Resolve extracts the video id from url and looks up the video title,
// falling back to the watch-page <title> when the video is not embeddable.
func (r *Resolver) Resolve(ctx context.Context, url string) (string, string, error) {
	videoId, ok := ExtractVideoId(url)
	if !ok {
		return "", "", ErrNotYouTubeURL
	}

	title, err := r.getTitleWithEmbed(ctx, videoId)
	if err != nil {
		if !errors.Is(err, errNotEmbeddable) {
			return "", "", fmt.Errorf("failed to get video data with embed: %w", err)
		}

		title, err = r.getTitleFromPage(ctx, videoId)
		if err != nil {
			return "", "", fmt.Errorf("failed to get video data from page: %w", err)
		}
	}

	return videoId, title, nil
}
