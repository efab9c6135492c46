package recent

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/jfmyers9/recently/pkg/lastfm"
)

const (
	// DefaultLimit is the number of tracks requested when the caller passes none
	DefaultLimit = 10

	// MaxLimit caps the requested number of tracks to one upstream page
	MaxLimit = lastfm.MaxRecentTracksLimit
)

// Fetcher retrieves one page of recent tracks from upstream.
// *lastfm.UserService implements it.
type Fetcher interface {
	GetRecentTracks(ctx context.Context, apiKey, user string, limit int) (*lastfm.RecentTracksResponse, error)
}

// CredentialSource supplies credentials and the default user per call
type CredentialSource interface {
	Resolve(ctx context.Context) Credentials
	DefaultUser(ctx context.Context) string
}

// Config holds service configuration
type Config struct {
	DefaultLimit int              // Limit used when a request passes <= 0 (default 10)
	MaxLimit     int              // Upper bound on the limit (default 200)
	Now          func() time.Time // Clock, defaults to time.Now
}

// Stats are counters since the service was created
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Fetches     uint64 `json:"fetches"`
	FetchErrors uint64 `json:"fetch_errors"`
	StaleServed uint64 `json:"stale_served"`
	Entries     int    `json:"cache_entries"`
}

// Service answers recent-track queries through the cache, falling back to
// stale data when upstream fails.
type Service struct {
	fetcher      Fetcher
	credentials  CredentialSource
	cache        *Cache
	logger       zerolog.Logger
	now          func() time.Time
	defaultLimit int
	maxLimit     int

	group singleflight.Group

	hits        atomic.Uint64
	misses      atomic.Uint64
	fetches     atomic.Uint64
	fetchErrors atomic.Uint64
	staleServed atomic.Uint64
}

// NewService creates a Service. cache may be nil, in which case a cache
// with DefaultTTL is created.
func NewService(cfg Config, fetcher Fetcher, credentials CredentialSource, cache *Cache, logger zerolog.Logger) *Service {
	if cache == nil {
		cache = NewCache(DefaultTTL)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.MaxLimit <= 0 {
		cfg.MaxLimit = MaxLimit
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.DefaultLimit > cfg.MaxLimit {
		cfg.DefaultLimit = cfg.MaxLimit
	}

	return &Service{
		fetcher:      fetcher,
		credentials:  credentials,
		cache:        cache,
		logger:       logger.With().Str("component", "recent").Logger(),
		now:          cfg.Now,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
	}
}

// GetRecentTracks returns up to limit recent tracks for user.
//
// It never fails: upstream problems yield the last cached result for the
// same request, or an empty slice when there is none. An empty user
// selects the configured default user. The result is never nil and is
// owned by the caller.
func (s *Service) GetRecentTracks(ctx context.Context, user string, limit int) []Track {
	user = s.User(ctx, user)
	if user == "" {
		s.logger.Info().Msg("No user requested and no default user configured")
		return []Track{}
	}

	limit = s.Limit(limit)
	key := CacheKey(user, limit)
	logger := s.logger.With().Str("user", user).Int("limit", limit).Logger()

	if entry, ok := s.cache.Get(key); ok && s.cache.Fresh(entry, s.now()) {
		s.hits.Add(1)
		logger.Debug().Time("fetched_at", entry.FetchedAt).Msg("Cache hit")
		return entry.Tracks
	}
	s.misses.Add(1)

	creds := s.credentials.Resolve(ctx)
	if !creds.Configured() {
		logger.Info().Msg("Last.fm API key not configured, returning no tracks")
		return []Track{}
	}

	// The shared fetch outlives any one caller; the client timeout bounds it.
	fetchCtx := context.WithoutCancel(ctx)
	v, err, shared := s.group.Do(key, func() (interface{}, error) {
		return s.refresh(fetchCtx, key, creds.APIKey, user, limit)
	})
	if err != nil {
		return s.fallback(key, err, logger)
	}

	tracks := v.([]Track)
	logger.Debug().Int("tracks", len(tracks)).Bool("shared", shared).Msg("Fetched recent tracks")
	return cloneTracks(tracks)
}

// refresh fetches from upstream and stores the normalized result
func (s *Service) refresh(ctx context.Context, key, apiKey, user string, limit int) ([]Track, error) {
	s.fetches.Add(1)

	resp, err := s.fetcher.GetRecentTracks(ctx, apiKey, user, limit)
	if err != nil {
		s.fetchErrors.Add(1)
		return nil, err
	}

	tracks := Normalize(resp)
	s.cache.Put(key, Entry{FetchedAt: s.now(), Tracks: tracks})

	return tracks, nil
}

// fallback serves whatever is cached for key after a failed fetch
func (s *Service) fallback(key string, err error, logger zerolog.Logger) []Track {
	logger = logger.With().Bool("temporary", temporary(err)).Logger()
	if entry, ok := s.cache.Get(key); ok {
		s.staleServed.Add(1)
		logger.Warn().
			Err(err).
			Time("fetched_at", entry.FetchedAt).
			Int("tracks", len(entry.Tracks)).
			Msg("Upstream fetch failed, serving cached tracks")
		return entry.Tracks
	}

	logger.Warn().Err(err).Msg("Upstream fetch failed, no cached tracks")
	return []Track{}
}

// temporary reports whether err is a Last.fm error that may clear on retry
func temporary(err error) bool {
	var apiErr *lastfm.Error
	return errors.As(err, &apiErr) && apiErr.Temporary()
}

// User trims user and substitutes the configured default user when it is
// empty. It returns "" when neither is set.
func (s *Service) User(ctx context.Context, user string) string {
	user = strings.TrimSpace(user)
	if user == "" {
		user = s.credentials.DefaultUser(ctx)
	}
	return user
}

// Limit applies the default and the upper bound to a requested limit
func (s *Service) Limit(limit int) int {
	if limit <= 0 {
		return s.defaultLimit
	}
	if limit > s.maxLimit {
		return s.maxLimit
	}
	return limit
}

// Stats returns a snapshot of the service counters
func (s *Service) Stats() Stats {
	return Stats{
		Hits:        s.hits.Load(),
		Misses:      s.misses.Load(),
		Fetches:     s.fetches.Load(),
		FetchErrors: s.fetchErrors.Load(),
		StaleServed: s.staleServed.Load(),
		Entries:     s.cache.Len(),
	}
}
