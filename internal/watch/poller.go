package watch

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/jfmyers9/recently/internal/recent"
)

// Source supplies recent tracks. *recent.Service implements it.
type Source interface {
	GetRecentTracks(ctx context.Context, user string, limit int) []recent.Track
}

// Update is sent after every poll
type Update struct {
	User   string
	Tracks []recent.Track // Full result, newest first
	New    []recent.Track // Plays newer than the last poll, newest first
	At     time.Time
}

// Poller polls a Source at regular intervals and reports new plays
type Poller struct {
	source   Source
	user     string
	limit    int
	interval time.Duration
	logger   zerolog.Logger
	cursor   *Cursor

	primed   bool
	lastSeen int64
}

// NewPoller creates a new Poller instance
func NewPoller(source Source, user string, limit int, interval time.Duration, logger zerolog.Logger) *Poller {
	return &Poller{
		source:   source,
		user:     user,
		limit:    limit,
		interval: interval,
		logger:   logger.With().Str("component", "poller").Str("user", user).Logger(),
	}
}

// SetCursor makes the poller resume from, and record to, c
func (p *Poller) SetCursor(c *Cursor) {
	p.cursor = c
	if ts, ok := c.Get(p.user); ok {
		p.lastSeen = ts
		p.primed = true
	}
}

// Run starts the polling loop and sends updates to the provided channel
// Blocks until context is cancelled
func (p *Poller) Run(ctx context.Context, updates chan<- Update) error {
	p.logger.Info().
		Dur("interval", p.interval).
		Msg("Starting poller")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Poll immediately on start
	p.poll(ctx, updates)

	for {
		select {
		case <-ctx.Done():
			p.logger.Info().Msg("Poller stopped")
			return ctx.Err()
		case <-ticker.C:
			p.poll(ctx, updates)
		}
	}
}

// poll queries the source and sends an update
func (p *Poller) poll(ctx context.Context, updates chan<- Update) {
	tracks := p.source.GetRecentTracks(ctx, p.user, p.limit)
	update := p.diff(tracks, time.Now())

	if len(update.New) > 0 {
		p.logger.Debug().Int("new", len(update.New)).Msg("New plays")
	}

	select {
	case updates <- update:
	case <-ctx.Done():
	}
}

// diff splits tracks into the full list and the plays newer than the cursor.
// Without a cursor the first poll that sees a timestamped play only primes it.
func (p *Poller) diff(tracks []recent.Track, at time.Time) Update {
	update := Update{User: p.user, Tracks: tracks, At: at}

	newest := p.lastSeen
	for _, t := range tracks {
		if t.Timestamp == nil {
			continue
		}
		ts := *t.Timestamp
		if p.primed && ts > p.lastSeen {
			update.New = append(update.New, t)
		}
		if ts > newest {
			newest = ts
		}
	}

	if newest > p.lastSeen {
		p.lastSeen = newest
		p.primed = true
		if p.cursor != nil && newest > 0 {
			if err := p.cursor.Advance(p.user, newest); err != nil {
				p.logger.Warn().Err(err).Msg("Failed to persist cursor")
			}
		}
	}

	return update
}
