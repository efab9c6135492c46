package lastfm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
)

// UserService provides user history operations for the Last.fm API.
type UserService struct {
	client *Client
}

const (
	// MaxRecentTracksLimit is the largest page size user.getRecentTracks accepts.
	MaxRecentTracksLimit = 200

	methodGetRecentTracks = "user.getrecenttracks"
)

// GetRecentTracks fetches one page of a user's recent listening history.
//
// The request is made exactly once and is bounded by the client timeout.
// The first entry may be the currently playing track, which carries no date.
//
// Example:
//
//	resp, err := client.User().GetRecentTracks(ctx, apiKey, "rj", 10)
//	if err != nil {
//	    log.Printf("Failed to fetch recent tracks: %v", err)
//	}
func (s *UserService) GetRecentTracks(ctx context.Context, apiKey, user string, limit int) (*RecentTracksResponse, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if user == "" {
		return nil, errors.New("lastfm: user is required")
	}

	params := url.Values{
		"user":    {user},
		"api_key": {apiKey},
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	body, err := s.client.get(ctx, methodGetRecentTracks, params)
	if err != nil {
		return nil, err
	}

	var resp RecentTracksResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &TransportError{
			Method: methodGetRecentTracks,
			Err:    fmt.Errorf("failed to parse recent tracks response: %w", err),
		}
	}
	if resp.RecentTracks == nil {
		return nil, &TransportError{
			Method: methodGetRecentTracks,
			Err:    errors.New("missing recenttracks in response"),
		}
	}

	return &resp, nil
}
