package cmd

import (
	"github.com/spf13/cobra"

	"github.com/jfmyers9/recently/internal/tui"
	"github.com/jfmyers9/recently/internal/watch"
)

// tuiCmd represents the tui command
var tuiCmd = &cobra.Command{
	Use:   "tui [user]",
	Short: "Browse recent tracks in a terminal UI",
	Long: `Display a terminal UI with a user's recent tracks, refreshed on the
watch interval.

The TUI includes:
- The track currently playing, if any
- Recent plays with relative times
- Session stats and newly seen plays

Press 'q' to quit.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)

	tuiCmd.Flags().Duration("interval", 0, "Poll interval (default from config, 30s)")
	tuiCmd.Flags().IntP("limit", "n", 0, "Number of tracks (default from config)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	// Keep log output from drawing over the UI
	if logFile == "" {
		logLevel = "error"
	}

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

	updates := make(chan watch.Update, 1)
	go func() { _ = poller.Run(ctx, updates) }()

	return tui.New(a.service.User(ctx, firstArg(args))).Run(ctx, updates)
}

func firstArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}
