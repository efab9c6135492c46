package lastfm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// RecentTracksResponse represents the response from user.getRecentTracks.
type RecentTracksResponse struct {
	RecentTracks *RecentTracks `json:"recenttracks"`
}

// RecentTracks is the body of a user.getRecentTracks response.
type RecentTracks struct {
	Tracks TrackList `json:"track"`
	Attr   PageAttr  `json:"@attr"`
}

// PageAttr describes the page a response covers.
type PageAttr struct {
	User       TextField `json:"user"`
	Page       TextField `json:"page"`
	PerPage    TextField `json:"perPage"`
	TotalPages TextField `json:"totalPages"`
	Total      TextField `json:"total"`
}

// RawTrack is a track entry as Last.fm sends it. Fields keep their
// loosely-typed wire form; use a normalizer to turn them into strict records.
type RawTrack struct {
	Name   TextField `json:"name"`
	Artist TextField `json:"artist"`
	Album  TextField `json:"album"`
	Image  ImageList `json:"image"`
	Date   *Date     `json:"date"`
	Attr   TrackAttr `json:"@attr"`
}

// TrackAttr holds per-track attributes.
type TrackAttr struct {
	NowPlaying string `json:"nowplaying"`
}

// IsNowPlaying reports whether the entry is the currently playing track.
func (a TrackAttr) IsNowPlaying() bool {
	return strings.EqualFold(a.NowPlaying, "true")
}

// Image is one size variant of an artwork image.
type Image struct {
	Size string `json:"size"`
	URL  string `json:"#text"`
}

// ImageList is a list of image variants in the order Last.fm sent them.
// A single object is accepted as a one-element list; anything else
// decodes to an empty list.
type ImageList []Image

// UnmarshalJSON implements json.Unmarshaler.
func (l *ImageList) UnmarshalJSON(data []byte) error {
	*l = nil
	switch firstByte(data) {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for _, r := range raw {
			var img Image
			if err := json.Unmarshal(r, &img); err == nil {
				*l = append(*l, img)
			}
		}
	case '{':
		var img Image
		if err := json.Unmarshal(data, &img); err == nil {
			*l = ImageList{img}
		}
	}
	return nil
}

// TrackList holds the track entries of a response. Last.fm sends a bare
// object instead of an array when there is exactly one entry; both forms
// decode to a list. Entries that cannot be decoded are skipped; any other
// JSON type is an error.
type TrackList []RawTrack

// UnmarshalJSON implements json.Unmarshaler.
func (l *TrackList) UnmarshalJSON(data []byte) error {
	*l = nil
	switch firstByte(data) {
	case '[':
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		for _, r := range raw {
			var t RawTrack
			if err := json.Unmarshal(r, &t); err == nil {
				*l = append(*l, t)
			}
		}
	case '{':
		var t RawTrack
		if err := json.Unmarshal(data, &t); err == nil {
			*l = TrackList{t}
		}
	case 'n':
	default:
		return fmt.Errorf("lastfm: track list must be an array or object, got %s", truncate(data, 32))
	}
	return nil
}

func truncate(data []byte, n int) string {
	if len(data) > n {
		return string(data[:n]) + "..."
	}
	return string(data)
}

// TextField is a value that arrives either as a plain string or as an
// object carrying its display text under "#text" (or "name" in the
// extended response format). Numbers are kept in their literal form.
type TextField struct {
	value string
}

// NewTextField returns a TextField holding s.
func NewTextField(s string) TextField {
	return TextField{value: s}
}

// Text returns the display text.
func (f TextField) Text() string {
	return f.value
}

// UnmarshalJSON implements json.Unmarshaler. Unexpected shapes decode to
// an empty value rather than failing the enclosing record.
func (f *TextField) UnmarshalJSON(data []byte) error {
	f.value = ""
	switch firstByte(data) {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err == nil {
			f.value = s
		}
	case '{':
		var obj struct {
			Text *string `json:"#text"`
			Name *string `json:"name"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil
		}
		switch {
		case obj.Text != nil && *obj.Text != "":
			f.value = *obj.Text
		case obj.Name != nil:
			f.value = *obj.Name
		}
	case 'n':
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err == nil {
			f.value = n.String()
		}
	}
	return nil
}

// MarshalJSON implements json.Marshaler.
func (f TextField) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.value)
}

// Date is the play time of a scrobbled entry.
type Date struct {
	UTS   int64  // Unix seconds
	Valid bool   // Whether UTS was present and parseable
	Text  string // Human readable form
}

// UnmarshalJSON implements json.Unmarshaler. "uts" may be a string or a number.
func (d *Date) UnmarshalJSON(data []byte) error {
	*d = Date{}
	var obj struct {
		UTS  json.RawMessage `json:"uts"`
		Text string          `json:"#text"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil
	}
	d.Text = obj.Text

	raw := strings.Trim(string(bytes.TrimSpace(obj.UTS)), `"`)
	if raw == "" {
		return nil
	}
	uts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	d.UTS = uts
	d.Valid = true
	return nil
}

func firstByte(data []byte) byte {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return 0
	}
	return data[0]
}
