package recent

import (
	"strings"

	"github.com/jfmyers9/recently/pkg/lastfm"
)

// preferredImageSize is the artwork variant picked when present
const preferredImageSize = "extralarge"

// Normalize converts a raw user.getRecentTracks payload into Tracks.
//
// Rules, applied per entry in upstream order:
//   - artist and album may be plain strings or objects carrying display text
//   - image is the "extralarge" variant, else the last variant, else nil
//   - timestamp comes from date.uts and is nil when absent
//   - entries without both an artist and a title are dropped
//
// The result is never nil.
func Normalize(resp *lastfm.RecentTracksResponse) []Track {
	tracks := make([]Track, 0)
	if resp == nil || resp.RecentTracks == nil {
		return tracks
	}

	for _, raw := range resp.RecentTracks.Tracks {
		if t, ok := normalizeTrack(raw); ok {
			tracks = append(tracks, t)
		}
	}

	return tracks
}

func normalizeTrack(raw lastfm.RawTrack) (Track, bool) {
	artist := strings.TrimSpace(raw.Artist.Text())
	title := strings.TrimSpace(raw.Name.Text())
	if artist == "" || title == "" {
		return Track{}, false
	}

	t := Track{
		Artist:     artist,
		Title:      title,
		Album:      optional(strings.TrimSpace(raw.Album.Text())),
		ImageURL:   selectImage(raw.Image),
		NowPlaying: raw.Attr.IsNowPlaying(),
	}

	if raw.Date != nil && raw.Date.Valid {
		uts := raw.Date.UTS
		t.Timestamp = &uts
	}

	return t, true
}

// selectImage picks the artwork URL. The order matters: the named large
// size wins, otherwise the last variant, which Last.fm lists smallest first.
func selectImage(images lastfm.ImageList) *string {
	for _, img := range images {
		if img.Size == preferredImageSize {
			return optional(img.URL)
		}
	}
	if len(images) > 0 {
		return optional(images[len(images)-1].URL)
	}
	return nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
