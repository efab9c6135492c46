package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/recently/internal/watch"
)

// watchCmd represents the watch command
var watchCmd = &cobra.Command{
	Use:   "watch [user]",
	Short: "Log newly played tracks as they appear",
	Long: `Poll a user's recent tracks and log each new play.

Polls go through the same cache as every other command, so intervals
shorter than the cache lifetime only see new plays once the cached result
expires. The newest seen play is recorded in the data directory so a
restart does not announce old plays again.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().Duration("interval", 0, "Poll interval (default from config, 30s)")
	watchCmd.Flags().IntP("limit", "n", 0, "Number of tracks per poll (default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	poller, err := newPoller(ctx, cmd, args, a)
	if err != nil {
		return err
	}

	updates := make(chan watch.Update)
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx, updates) }()

	for {
		select {
		case err := <-done:
			if err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		case update := <-updates:
			// Oldest first so the log reads chronologically
			for i := len(update.New) - 1; i >= 0; i-- {
				t := update.New[i]
				a.logger.Info().
					Str("user", update.User).
					Str("artist", t.Artist).
					Str("title", t.Title).
					Str("album", t.AlbumName()).
					Int64("played_at", t.PlayedAt()).
					Msg("New play")
			}
		}
	}
}

// newPoller builds a poller for the requested or default user, resuming
// from the persisted cursor
func newPoller(ctx context.Context, cmd *cobra.Command, args []string, a *app) (*watch.Poller, error) {
	user := a.service.User(ctx, firstArg(args))
	if user == "" {
		return nil, fmt.Errorf("no user given and LASTFM_USER is not set")
	}

	interval, _ := cmd.Flags().GetDuration("interval")
	if interval <= 0 {
		interval = a.cfg.Watch.Interval
	}
	limit, _ := cmd.Flags().GetInt("limit")

	poller := watch.NewPoller(a.service, user, limit, interval, a.logger)

	cursor, err := watch.NewCursor(a.cfg.CursorPath())
	if err != nil {
		a.logger.Warn().Err(err).Msg("Failed to restore watch cursor, starting fresh")
	}
	poller.SetCursor(cursor)

	return poller, nil
}
