package recent

// Track is one entry of a user's listening history
type Track struct {
	Artist     string  `json:"artist"`                // Never empty
	Title      string  `json:"title"`                 // Never empty
	Album      *string `json:"album"`                 // nil when unknown
	ImageURL   *string `json:"image_url"`             // nil when no artwork
	Timestamp  *int64  `json:"timestamp"`             // Unix seconds, nil for the now-playing entry
	NowPlaying bool    `json:"now_playing,omitempty"` // Whether this is the currently playing track
}

// AlbumName returns the album or an empty string
func (t Track) AlbumName() string {
	if t.Album == nil {
		return ""
	}
	return *t.Album
}

// Image returns the image URL or an empty string
func (t Track) Image() string {
	if t.ImageURL == nil {
		return ""
	}
	return *t.ImageURL
}

// PlayedAt returns the play time in unix seconds, or 0 for the now-playing entry
func (t Track) PlayedAt() int64 {
	if t.Timestamp == nil {
		return 0
	}
	return *t.Timestamp
}

// clone returns a deep copy so callers can't reach stored values
func (t Track) clone() Track {
	c := t
	if t.Album != nil {
		v := *t.Album
		c.Album = &v
	}
	if t.ImageURL != nil {
		v := *t.ImageURL
		c.ImageURL = &v
	}
	if t.Timestamp != nil {
		v := *t.Timestamp
		c.Timestamp = &v
	}
	return c
}

func cloneTracks(tracks []Track) []Track {
	out := make([]Track, len(tracks))
	for i, t := range tracks {
		out[i] = t.clone()
	}
	return out
}
