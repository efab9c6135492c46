package recent

import (
	"encoding/json"
	"testing"

	"github.com/jfmyers9/recently/pkg/lastfm"
)

// decodePayload decodes a user.getRecentTracks JSON body for tests
func decodePayload(t *testing.T, body string) *lastfm.RecentTracksResponse {
	t.Helper()
	var resp lastfm.RecentTracksResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	return &resp
}

func TestNormalize_FullPayload(t *testing.T) {
	resp := decodePayload(t, `{
		"recenttracks": {
			"track": [
				{
					"artist": {"mbid": "", "#text": "Radiohead"},
					"name": "Reckoner",
					"album": {"mbid": "", "#text": "In Rainbows"},
					"image": [
						{"size": "small", "#text": "https://img/s.png"},
						{"size": "extralarge", "#text": "https://img/xl.png"}
					],
					"@attr": {"nowplaying": "true"}
				},
				{
					"artist": "Björk",
					"name": "Jóga",
					"album": "Homogenic",
					"image": [],
					"date": {"uts": "1700000000", "#text": "14 Nov 2023, 22:13"}
				}
			]
		}
	}`)

	tracks := Normalize(resp)
	if len(tracks) != 2 {
		t.Fatalf("expected 2 tracks, got %d", len(tracks))
	}

	first := tracks[0]
	if first.Artist != "Radiohead" || first.Title != "Reckoner" || first.AlbumName() != "In Rainbows" {
		t.Errorf("unexpected first track: %+v", first)
	}
	if first.Image() != "https://img/xl.png" {
		t.Errorf("expected extralarge image, got %q", first.Image())
	}
	if first.Timestamp != nil {
		t.Errorf("expected nil timestamp for now playing entry, got %d", *first.Timestamp)
	}
	if !first.NowPlaying {
		t.Error("expected first track to be now playing")
	}

	second := tracks[1]
	if second.Artist != "Björk" || second.AlbumName() != "Homogenic" {
		t.Errorf("expected flat string fields to be used as-is, got %+v", second)
	}
	if second.ImageURL != nil {
		t.Errorf("expected nil image for empty candidate list, got %q", *second.ImageURL)
	}
	if second.PlayedAt() != 1700000000 {
		t.Errorf("expected timestamp 1700000000, got %d", second.PlayedAt())
	}
	if second.NowPlaying {
		t.Error("expected second track not to be now playing")
	}
}

func TestNormalize_SingleTrackObject(t *testing.T) {
	resp := decodePayload(t, `{"recenttracks": {"track": {"artist": {"#text": "Low"}, "name": "Words", "date": {"uts": "42"}}}}`)

	tracks := Normalize(resp)
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].Artist != "Low" || tracks[0].Title != "Words" || tracks[0].PlayedAt() != 42 {
		t.Errorf("unexpected track: %+v", tracks[0])
	}
}

func TestNormalize_ImageSelection(t *testing.T) {
	tests := []struct {
		name   string
		images lastfm.ImageList
		want   *string
	}{
		{
			name: "extralarge wins over later entries",
			images: lastfm.ImageList{
				{Size: "small", URL: "A"},
				{Size: "extralarge", URL: "B"},
				{Size: "large", URL: "C"},
			},
			want: strPtr("B"),
		},
		{
			name: "last element without extralarge",
			images: lastfm.ImageList{
				{Size: "small", URL: "A"},
				{Size: "large", URL: "C"},
			},
			want: strPtr("C"),
		},
		{
			name: "first extralarge of several",
			images: lastfm.ImageList{
				{Size: "extralarge", URL: "X1"},
				{Size: "extralarge", URL: "X2"},
			},
			want: strPtr("X1"),
		},
		{
			name:   "single untagged image",
			images: lastfm.ImageList{{Size: "", URL: "only"}},
			want:   strPtr("only"),
		},
		{
			name:   "empty list",
			images: nil,
			want:   nil,
		},
		{
			name: "empty url yields nil",
			images: lastfm.ImageList{
				{Size: "small", URL: "A"},
				{Size: "extralarge", URL: ""},
			},
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := selectImage(tt.images)
			switch {
			case got == nil && tt.want == nil:
			case got == nil || tt.want == nil:
				t.Errorf("selectImage() = %v, want %v", deref(got), deref(tt.want))
			case *got != *tt.want:
				t.Errorf("selectImage() = %q, want %q", *got, *tt.want)
			}
		})
	}
}

func TestNormalize_AdmissionFilter(t *testing.T) {
	resp := decodePayload(t, `{
		"recenttracks": {
			"track": [
				{"artist": "", "name": "No Artist"},
				{"artist": {"#text": "No Title"}, "name": ""},
				{"artist": {"mbid": "x"}, "name": "Object Without Text"},
				{"name": "Missing Artist"},
				{"artist": "Missing Title"},
				{"artist": "   ", "name": "Whitespace Artist"},
				"not even an object",
				{"artist": "Valid", "name": "Entry"}
			]
		}
	}`)

	tracks := Normalize(resp)
	if len(tracks) != 1 {
		t.Fatalf("expected 1 admitted track, got %d: %+v", len(tracks), tracks)
	}
	if tracks[0].Artist != "Valid" || tracks[0].Title != "Entry" {
		t.Errorf("unexpected admitted track: %+v", tracks[0])
	}

	for _, tr := range tracks {
		if tr.Artist == "" || tr.Title == "" {
			t.Errorf("emitted track with empty artist or title: %+v", tr)
		}
	}
}

func TestNormalize_EmptyInputs(t *testing.T) {
	tests := []struct {
		name string
		resp *lastfm.RecentTracksResponse
	}{
		{name: "nil response", resp: nil},
		{name: "missing recenttracks", resp: &lastfm.RecentTracksResponse{}},
		{name: "no tracks", resp: &lastfm.RecentTracksResponse{RecentTracks: &lastfm.RecentTracks{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracks := Normalize(tt.resp)
			if tracks == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(tracks) != 0 {
				t.Errorf("expected no tracks, got %d", len(tracks))
			}
		})
	}
}

func TestNormalize_ExtendedArtistObject(t *testing.T) {
	resp := decodePayload(t, `{"recenttracks": {"track": [{"artist": {"name": "Portishead", "url": "u"}, "name": "Roads", "album": {"#text": ""}}]}}`)

	tracks := Normalize(resp)
	if len(tracks) != 1 {
		t.Fatalf("expected 1 track, got %d", len(tracks))
	}
	if tracks[0].Artist != "Portishead" {
		t.Errorf("expected artist from name field, got %q", tracks[0].Artist)
	}
	if tracks[0].Album != nil {
		t.Errorf("expected nil album for empty text, got %q", *tracks[0].Album)
	}
}

func strPtr(s string) *string {
	return &s
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
