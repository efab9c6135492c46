package recent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/recently/pkg/lastfm"
)

// fakeFetcher records calls and returns a canned payload or error
type fakeFetcher struct {
	mu     sync.Mutex
	calls  atomic.Int32
	resp   *lastfm.RecentTracksResponse
	err    error
	limits []int
	keys   []string
}

func (f *fakeFetcher) GetRecentTracks(ctx context.Context, apiKey, user string, limit int) (*lastfm.RecentTracksResponse, error) {
	f.calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	f.keys = append(f.keys, apiKey)
	return f.resp, f.err
}

func (f *fakeFetcher) set(resp *lastfm.RecentTracksResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resp = resp
	f.err = err
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// payload builds a response with one played track per title
func payload(artist string, titles ...string) *lastfm.RecentTracksResponse {
	tracks := make(lastfm.TrackList, 0, len(titles))
	for i, title := range titles {
		tracks = append(tracks, lastfm.RawTrack{
			Artist: lastfm.NewTextField(artist),
			Name:   lastfm.NewTextField(title),
			Date:   &lastfm.Date{UTS: int64(1000 + i), Valid: true},
		})
	}
	return &lastfm.RecentTracksResponse{RecentTracks: &lastfm.RecentTracks{Tracks: tracks}}
}

func newTestService(t *testing.T, fetcher Fetcher, env map[string]string) (*Service, *fakeClock) {
	t.Helper()
	clock := newFakeClock()
	resolver := NewResolver(nil, mapEnv(env), zerolog.Nop())
	svc := NewService(Config{Now: clock.Now}, fetcher, resolver, NewCache(DefaultTTL), zerolog.Nop())
	return svc, clock
}

var configuredEnv = map[string]string{SettingAPIKey: "test-key"}

func titles(tracks []Track) []string {
	out := make([]string, len(tracks))
	for i, t := range tracks {
		out[i] = t.Title
	}
	return out
}

func TestService_CacheHitWithinTTL(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words", "Lullaby")}
	svc, clock := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	first := svc.GetRecentTracks(ctx, "rj", 10)
	clock.Advance(119 * time.Second)
	second := svc.GetRecentTracks(ctx, "rj", 10)

	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected exactly 1 upstream call, got %d", n)
	}
	if fmt.Sprint(titles(first)) != fmt.Sprint(titles(second)) {
		t.Errorf("expected cached result %v, got %v", titles(first), titles(second))
	}

	stats := svc.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Fetches != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestService_ExpiredEntryRefetches(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, clock := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	svc.GetRecentTracks(ctx, "rj", 10)

	fetcher.set(payload("Low", "Sunflower"), nil)
	clock.Advance(DefaultTTL)

	got := svc.GetRecentTracks(ctx, "rj", 10)
	if n := fetcher.calls.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
	if len(got) != 1 || got[0].Title != "Sunflower" {
		t.Errorf("expected refreshed tracks, got %v", titles(got))
	}

	// The refreshed entry is fresh again
	svc.GetRecentTracks(ctx, "rj", 10)
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("expected refreshed entry to be served from cache, got %d calls", n)
	}
}

func TestService_StaleFallbackOnTransportError(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words", "Lullaby")}
	svc, clock := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	want := svc.GetRecentTracks(ctx, "rj", 10)

	fetcher.set(nil, &lastfm.TransportError{Method: "user.getrecenttracks", StatusCode: 503, Err: errors.New("unavailable")})
	clock.Advance(10 * time.Minute)

	got := svc.GetRecentTracks(ctx, "rj", 10)
	if fmt.Sprint(titles(got)) != fmt.Sprint(titles(want)) {
		t.Errorf("expected stale tracks %v, got %v", titles(want), titles(got))
	}
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("expected 2 upstream calls, got %d", n)
	}
	if svc.Stats().StaleServed != 1 {
		t.Errorf("expected 1 stale result, got %d", svc.Stats().StaleServed)
	}

	// Failure does not refresh the entry: the next call tries upstream again
	svc.GetRecentTracks(ctx, "rj", 10)
	if n := fetcher.calls.Load(); n != 3 {
		t.Errorf("expected failed fetch not to refresh the cache, got %d calls", n)
	}
}

func TestService_StaleFallbackOnAPIError(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, clock := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	svc.GetRecentTracks(ctx, "rj", 10)
	fetcher.set(nil, &lastfm.Error{Code: lastfm.ErrCodeRateLimitExceeded, Message: "Rate limit exceeded"})
	clock.Advance(DefaultTTL + time.Second)

	got := svc.GetRecentTracks(ctx, "rj", 10)
	if len(got) != 1 || got[0].Title != "Words" {
		t.Errorf("expected stale tracks, got %v", titles(got))
	}
}

func TestService_ErrorWithoutEntryReturnsEmpty(t *testing.T) {
	fetcher := &fakeFetcher{err: &lastfm.TransportError{Method: "user.getrecenttracks", Err: context.DeadlineExceeded}}
	svc, _ := newTestService(t, fetcher, configuredEnv)

	got := svc.GetRecentTracks(context.Background(), "rj", 10)
	if got == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(got) != 0 {
		t.Errorf("expected no tracks, got %v", titles(got))
	}
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected 1 upstream call, got %d", n)
	}
}

func TestService_UnconfiguredSkipsUpstream(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, _ := newTestService(t, fetcher, map[string]string{})

	got := svc.GetRecentTracks(context.Background(), "rj", 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("expected no upstream calls, got %d", n)
	}
}

func TestService_DistinctLimitsAreDistinctEntries(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "A", "B", "C")}
	svc, _ := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	three := svc.GetRecentTracks(ctx, "rj", 3)

	fetcher.set(payload("Low", "A"), nil)
	one := svc.GetRecentTracks(ctx, "rj", 1)

	if n := fetcher.calls.Load(); n != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", n)
	}
	if len(three) != 3 || len(one) != 1 {
		t.Errorf("expected 3 and 1 tracks, got %d and %d", len(three), len(one))
	}

	// Both entries are now cached independently
	again := svc.GetRecentTracks(ctx, "rj", 3)
	if len(again) != 3 {
		t.Errorf("expected limit 3 entry to be unaffected, got %v", titles(again))
	}
	if n := fetcher.calls.Load(); n != 2 {
		t.Errorf("expected cache hits, got %d calls", n)
	}
	if svc.Stats().Entries != 2 {
		t.Errorf("expected 2 cache entries, got %d", svc.Stats().Entries)
	}
}

func TestService_EmptyResultOverwritesCache(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, clock := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	svc.GetRecentTracks(ctx, "rj", 10)
	fetcher.set(payload("Low"), nil)
	clock.Advance(DefaultTTL)

	if got := svc.GetRecentTracks(ctx, "rj", 10); len(got) != 0 {
		t.Fatalf("expected empty refresh, got %v", titles(got))
	}

	// A later failure falls back to the empty result, not the older one
	fetcher.set(nil, &lastfm.TransportError{Method: "user.getrecenttracks", Err: errors.New("down")})
	clock.Advance(DefaultTTL)
	if got := svc.GetRecentTracks(ctx, "rj", 10); len(got) != 0 {
		t.Errorf("expected empty stale result, got %v", titles(got))
	}
}

func TestService_Limits(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		wantLimit int
	}{
		{name: "default", limit: 0, wantLimit: DefaultLimit},
		{name: "negative", limit: -5, wantLimit: DefaultLimit},
		{name: "explicit", limit: 25, wantLimit: 25},
		{name: "clamped", limit: 5000, wantLimit: MaxLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fetcher := &fakeFetcher{resp: payload("Low", "Words")}
			svc, _ := newTestService(t, fetcher, configuredEnv)

			svc.GetRecentTracks(context.Background(), "rj", tt.limit)

			if len(fetcher.limits) != 1 || fetcher.limits[0] != tt.wantLimit {
				t.Errorf("expected upstream limit %d, got %v", tt.wantLimit, fetcher.limits)
			}
		})
	}
}

func TestService_DefaultUser(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, _ := newTestService(t, fetcher, map[string]string{SettingAPIKey: "test-key", SettingUser: "rj"})
	ctx := context.Background()

	if got := svc.GetRecentTracks(ctx, "", 10); len(got) != 1 {
		t.Fatalf("expected tracks for default user, got %v", titles(got))
	}

	// The explicit user shares the entry
	svc.GetRecentTracks(ctx, "rj", 10)
	if n := fetcher.calls.Load(); n != 1 {
		t.Errorf("expected default user to share the cache entry, got %d calls", n)
	}
}

func TestService_NoUser(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, _ := newTestService(t, fetcher, configuredEnv)

	got := svc.GetRecentTracks(context.Background(), "  ", 10)
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
	if n := fetcher.calls.Load(); n != 0 {
		t.Errorf("expected no upstream calls, got %d", n)
	}
}

func TestService_PassesResolvedKey(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, _ := newTestService(t, fetcher, configuredEnv)

	svc.GetRecentTracks(context.Background(), "rj", 10)
	if len(fetcher.keys) != 1 || fetcher.keys[0] != "test-key" {
		t.Errorf("expected api key test-key, got %v", fetcher.keys)
	}
}

func TestService_ResultIsOwnedByCaller(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words")}
	svc, _ := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	first := svc.GetRecentTracks(ctx, "rj", 10)
	first[0].Title = "mutated"

	second := svc.GetRecentTracks(ctx, "rj", 10)
	if second[0].Title != "Words" {
		t.Errorf("cache was mutated through a returned slice: %v", titles(second))
	}
}

// blockingFetcher holds requests for "slow" until released
type blockingFetcher struct {
	release chan struct{}
	started chan struct{}
	calls   atomic.Int32
}

func (f *blockingFetcher) GetRecentTracks(ctx context.Context, apiKey, user string, limit int) (*lastfm.RecentTracksResponse, error) {
	f.calls.Add(1)
	if user == "slow" {
		close(f.started)
		<-f.release
	}
	return payload(user, "Track"), nil
}

func TestService_SlowFetchDoesNotBlockOtherKeys(t *testing.T) {
	fetcher := &blockingFetcher{release: make(chan struct{}), started: make(chan struct{})}
	svc, _ := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	slowDone := make(chan []Track)
	go func() {
		slowDone <- svc.GetRecentTracks(ctx, "slow", 10)
	}()
	<-fetcher.started

	fastDone := make(chan []Track)
	go func() {
		fastDone <- svc.GetRecentTracks(ctx, "fast", 10)
	}()

	select {
	case got := <-fastDone:
		if len(got) != 1 || got[0].Artist != "fast" {
			t.Errorf("unexpected result for fast user: %+v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request for a different user blocked on an in-flight fetch")
	}

	close(fetcher.release)
	if got := <-slowDone; len(got) != 1 || got[0].Artist != "slow" {
		t.Errorf("unexpected result for slow user: %+v", got)
	}
}

func TestService_ConcurrentSameKey(t *testing.T) {
	fetcher := &fakeFetcher{resp: payload("Low", "Words", "Lullaby")}
	svc, _ := newTestService(t, fetcher, configuredEnv)
	ctx := context.Background()

	const callers = 16
	var wg sync.WaitGroup
	results := make([][]Track, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = svc.GetRecentTracks(ctx, "rj", 10)
		}(i)
	}
	wg.Wait()

	for i, got := range results {
		if fmt.Sprint(titles(got)) != "[Words Lullaby]" {
			t.Errorf("caller %d got %v", i, titles(got))
		}
	}
	if n := fetcher.calls.Load(); n < 1 || n > callers {
		t.Errorf("unexpected upstream call count %d", n)
	}
}

func TestService_MalformedPayloadKeepsCachedTracks(t *testing.T) {
	good := `{"recenttracks": {"track": [
		{"artist": {"#text": "Low"}, "name": "Words", "date": {"uts": "1000"}},
		{"artist": {"#text": "Low"}, "name": "Lullaby", "date": {"uts": "999"}}
	]}}`

	tests := []struct {
		name string
		body string
	}{
		{name: "empty object", body: `{}`},
		{name: "unrelated object", body: `{"foo": 1}`},
		{name: "track is a string", body: `{"recenttracks": {"track": "garbage"}}`},
		{name: "recenttracks is a string", body: `{"recenttracks": "nope"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body atomic.Value
			body.Store(good)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, body.Load().(string))
			}))
			defer srv.Close()

			client, err := lastfm.NewClient(lastfm.Config{BaseURL: srv.URL})
			if err != nil {
				t.Fatalf("NewClient() error = %v", err)
			}
			svc, clock := newTestService(t, client.User(), configuredEnv)
			ctx := context.Background()

			first := svc.GetRecentTracks(ctx, "rj", 10)
			if got := fmt.Sprint(titles(first)); got != "[Words Lullaby]" {
				t.Fatalf("expected initial tracks, got %s", got)
			}

			body.Store(tt.body)
			clock.Advance(DefaultTTL)

			second := svc.GetRecentTracks(ctx, "rj", 10)
			if got := fmt.Sprint(titles(second)); got != "[Words Lullaby]" {
				t.Errorf("expected cached tracks after malformed payload, got %s", got)
			}

			entry, ok := svc.cache.Get(CacheKey("rj", 10))
			if !ok || len(entry.Tracks) != 2 {
				t.Errorf("expected cache entry to keep 2 tracks, got %+v", entry)
			}
			if stats := svc.Stats(); stats.FetchErrors != 1 || stats.StaleServed != 1 {
				t.Errorf("unexpected stats: %+v", stats)
			}
		})
	}
}

func TestService_FallbackLogsTemporary(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "rate limited", err: &lastfm.Error{Code: lastfm.ErrCodeRateLimitExceeded, Message: "slow down"}, want: true},
		{name: "service offline", err: &lastfm.Error{Code: lastfm.ErrCodeServiceOffline, Message: "offline"}, want: true},
		{name: "invalid key", err: &lastfm.Error{Code: lastfm.ErrCodeInvalidAPIKey, Message: "bad key"}, want: false},
		{name: "transport", err: &lastfm.TransportError{Method: "user.getrecenttracks", Err: errors.New("boom")}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			fetcher := &fakeFetcher{err: tt.err}
			resolver := NewResolver(nil, mapEnv(configuredEnv), zerolog.Nop())
			svc := NewService(Config{}, fetcher, resolver, nil, zerolog.New(&buf))

			if got := svc.GetRecentTracks(context.Background(), "rj", 10); len(got) != 0 {
				t.Fatalf("expected no tracks, got %v", titles(got))
			}

			lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
			line := lines[len(lines)-1]
			var event map[string]interface{}
			if err := json.Unmarshal([]byte(line), &event); err != nil {
				t.Fatalf("failed to parse log line %q: %v", line, err)
			}
			if got, _ := event["temporary"].(bool); got != tt.want {
				t.Errorf("temporary = %v, want %v (log %s)", event["temporary"], tt.want, line)
			}
		})
	}
}
