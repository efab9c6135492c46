package tui

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"

	"github.com/jfmyers9/recently/internal/recent"
	"github.com/jfmyers9/recently/internal/watch"
)

const maxNewPlays = 5

// Config holds TUI configuration options
type Config struct {
	RefreshRate time.Duration // How often to redraw the display
	TitleWidth  int           // Column width for track titles in the recent list
}

// DefaultConfig returns the default TUI configuration
func DefaultConfig() Config {
	return Config{
		RefreshRate: 500 * time.Millisecond,
		TitleWidth:  32,
	}
}

// App is the TUI application for browsing recent tracks
type App struct {
	app        *tview.Application
	nowPlaying *tview.TextView
	recent     *tview.TextView
	session    *tview.TextView
	status     *tview.TextView

	config Config
	user   string

	// Mutex protects state shared between the update consumer and the
	// redraw ticker.
	mu sync.Mutex

	// Current state (guarded by mu)
	tracks      []recent.Track
	newPlays    []recent.Track // most recent first, capped at maxNewPlays
	lastUpdate  time.Time
	polls       int
	sessionNew  int
	sessionFrom time.Time

	// Last-rendered content for change detection
	lastNowPlaying string
	lastRecent     string
	lastSession    string

	cancelFunc context.CancelFunc
}

// New creates a new TUI application for user with default config
func New(user string) *App {
	return NewWithConfig(user, DefaultConfig())
}

// NewWithConfig creates a new TUI application with the given config
func NewWithConfig(user string, cfg Config) *App {
	a := &App{
		app:         tview.NewApplication(),
		config:      cfg,
		user:        user,
		sessionFrom: time.Now(),
	}
	a.setupUI()
	return a
}

// setupUI creates the UI layout
func (a *App) setupUI() {
	a.nowPlaying = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	a.nowPlaying.SetBorder(true).
		SetTitle(" Now Playing ").
		SetTitleAlign(tview.AlignLeft)

	a.recent = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.recent.SetBorder(true).
		SetTitle(fmt.Sprintf(" Recent: %s ", tview.Escape(a.user))).
		SetTitleAlign(tview.AlignLeft)

	a.session = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	a.session.SetBorder(true).
		SetTitle(" Session ").
		SetTitleAlign(tview.AlignLeft)

	a.status = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]q:quit  g:top  G:bottom[-]")

	// Left column: now playing over session stats
	// Right column: recent tracks
	// Footer: status bar
	left := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(a.nowPlaying, 0, 1, false).
		AddItem(a.session, 0, 1, false)

	body := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(left, 0, 1, false).
		AddItem(a.recent, 0, 2, true)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(body, 0, 1, true).
		AddItem(a.status, 1, 1, false)

	a.app.SetInputCapture(a.handleKeyEvent)
	a.app.SetRoot(flex, true).SetFocus(a.recent)
}

// handleKeyEvent processes keyboard input
func (a *App) handleKeyEvent(event *tcell.EventKey) *tcell.EventKey {
	switch event.Rune() {
	case 'q', 'Q':
		a.Stop()
		return nil
	case 'g':
		a.recent.ScrollToBeginning()
		return nil
	case 'G':
		a.recent.ScrollToEnd()
		return nil
	}
	return event
}

// Run starts the TUI, consuming updates from a watch poller
func (a *App) Run(ctx context.Context, updates <-chan watch.Update) error {
	ctx, a.cancelFunc = context.WithCancel(ctx)

	go a.handleUpdates(ctx, updates)

	if err := a.app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}

	return nil
}

// handleUpdates applies poller updates and drives redraws from a single
// ticker so queued redraws do not build up
func (a *App) handleUpdates(ctx context.Context, updates <-chan watch.Update) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case update := <-updates:
				a.apply(update)
			}
		}
	}()

	refreshRate := a.config.RefreshRate
	if refreshRate <= 0 {
		refreshRate = 500 * time.Millisecond
	}
	ticker := time.NewTicker(refreshRate)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.app.Stop()
			return
		case <-ticker.C:
			a.refresh()
		}
	}
}

// apply records an update
func (a *App) apply(update watch.Update) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tracks = update.Tracks
	a.lastUpdate = update.At
	a.polls++
	a.sessionNew += len(update.New)

	if len(update.New) > 0 {
		plays := append(append([]recent.Track(nil), update.New...), a.newPlays...)
		if len(plays) > maxNewPlays {
			plays = plays[:maxNewPlays]
		}
		a.newPlays = plays
	}
}

// refresh updates all UI components
func (a *App) refresh() {
	a.app.QueueUpdateDraw(func() {
		a.mu.Lock()
		defer a.mu.Unlock()

		now := time.Now()

		if text := renderNowPlaying(a.tracks); text != a.lastNowPlaying {
			a.lastNowPlaying = text
			a.nowPlaying.SetText(text)
		}

		if text := renderRecent(a.tracks, a.config.TitleWidth, now); text != a.lastRecent {
			a.lastRecent = text
			a.recent.SetText(text)
		}

		text := renderSession(a.polls, a.sessionNew, a.lastUpdate, a.newPlays, now.Sub(a.sessionFrom), now)
		if text != a.lastSession {
			a.lastSession = text
			a.session.SetText(text)
		}
	})
}

// Stop stops the TUI application
func (a *App) Stop() {
	if a.cancelFunc != nil {
		a.cancelFunc()
	}
	a.app.Stop()
}

// renderNowPlaying shows the track flagged as now playing, if any
func renderNowPlaying(tracks []recent.Track) string {
	for _, t := range tracks {
		if !t.NowPlaying {
			continue
		}

		var sb strings.Builder
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[white::b]%s[-:-:-]\n", tview.Escape(t.Title)))
		sb.WriteString(fmt.Sprintf("[yellow]%s[-]\n", tview.Escape(t.Artist)))
		if album := t.AlbumName(); album != "" {
			sb.WriteString(fmt.Sprintf("[gray]%s[-]", tview.Escape(album)))
		}
		sb.WriteString("\n\n[green]▶[-]")
		return sb.String()
	}

	return "\n\n[gray]Nothing playing[-]"
}

// renderRecent lists tracks with aligned titles and relative play times
func renderRecent(tracks []recent.Track, titleWidth int, now time.Time) string {
	if len(tracks) == 0 {
		return "[gray]No recent tracks[-]"
	}
	if titleWidth <= 0 {
		titleWidth = DefaultConfig().TitleWidth
	}

	var sb strings.Builder
	for i, t := range tracks {
		if i > 0 {
			sb.WriteString("\n")
		}

		when := "[green]now[-]"
		if !t.NowPlaying {
			when = fmt.Sprintf("[gray]%s[-]", formatAgo(t.PlayedAt(), now))
		}

		title := runewidth.FillRight(runewidth.Truncate(t.Title, titleWidth, "..."), titleWidth)
		sb.WriteString(fmt.Sprintf("%-10s [white]%s[-] [yellow]%s[-]", when, tview.Escape(title), tview.Escape(t.Artist)))
	}

	return sb.String()
}

// renderSession summarizes poller activity
func renderSession(polls, newPlays int, lastUpdate time.Time, recentNew []recent.Track, elapsed time.Duration, now time.Time) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Session: %s\n", formatDuration(elapsed)))
	sb.WriteString(fmt.Sprintf("Polls:   %d\n", polls))
	if lastUpdate.IsZero() {
		sb.WriteString("Updated: [gray]never[-]\n")
	} else {
		sb.WriteString(fmt.Sprintf("Updated: %s\n", formatAgo(lastUpdate.Unix(), now)))
	}
	sb.WriteString(fmt.Sprintf("New:     %d\n", newPlays))

	for _, t := range recentNew {
		sb.WriteString(fmt.Sprintf("\n[green]+[-] %s", tview.Escape(t.Title)))
	}

	return sb.String()
}

// formatAgo renders a unix timestamp relative to now
func formatAgo(ts int64, now time.Time) string {
	if ts <= 0 {
		return "-"
	}

	d := now.Sub(time.Unix(ts, 0))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}

// formatDuration formats a duration as MM:SS or HH:MM:SS for longer durations
func formatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}

	hours := int(d.Hours())
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
