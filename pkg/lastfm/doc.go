// Package lastfm provides a client library for the read side of the Last.fm API 2.0.
//
// # Overview
//
// This package implements a small Go client for the Last.fm JSON API,
// focusing on listening history. It provides context support, typed
// errors and boundary types that absorb the inconsistent shapes the
// API returns (single object vs. list, plain string vs. nested object).
//
// # Installation
//
//	go get github.com/jfmyers9/recently/pkg/lastfm
//
// # Quick Start
//
// Create a client. The API key is passed per call so callers can rotate
// credentials without rebuilding the client:
//
//	import "github.com/jfmyers9/recently/pkg/lastfm"
//
//	client, err := lastfm.NewClient(lastfm.Config{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	resp, err := client.User().GetRecentTracks(ctx, apiKey, "rj", 10)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, t := range resp.RecentTracks.Tracks {
//	    fmt.Println(t.Artist.Text(), "-", t.Name)
//	}
//
// # Error Handling
//
// Network failures, timeouts, non-2xx responses and undecodable bodies are
// reported as *TransportError, which matches ErrTransport:
//
//	_, err := client.User().GetRecentTracks(ctx, apiKey, "rj", 10)
//	if errors.Is(err, lastfm.ErrTransport) {
//	    // serve something cached instead
//	}
//
// Well-formed error documents ({"error": 10, "message": "..."}) returned
// with a 2xx status are reported as *Error:
//
//	var lastfmErr *lastfm.Error
//	if errors.As(err, &lastfmErr) && lastfmErr.Temporary() {
//	    // try again later
//	}
//
// # Timeouts
//
// Every request is bounded by Config.Timeout (DefaultTimeout when zero), in
// addition to any deadline on the caller's context. Requests are never
// retried by this package.
//
// # Configuration
//
//	client, err := lastfm.NewClient(lastfm.Config{
//	    HTTPClient: &http.Client{},
//	    BaseURL:    "http://localhost:9999/2.0/", // tests
//	    Timeout:    5 * time.Second,
//	    Logger:     myLogger, // Implements lastfm.Logger interface
//	})
//
// # API Coverage
//
// Currently implemented:
//   - user.getRecentTracks (single page)
//
// # Last.fm API Documentation
//
// https://www.last.fm/api/show/user.getRecentTracks
package lastfm
