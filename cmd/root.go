package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

var (
	logFile  string
	logLevel string
	dataDir  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "recently",
	Short: "Cached Last.fm recent tracks",
	Long: `recently serves a Last.fm user's recently played tracks through a
short-lived cache.

Results are cached for a couple of minutes per user and limit. When Last.fm
is slow or unavailable the last known result is served instead, so callers
always get a track list back.

Credentials are read from the settings store ('recently settings set') and
fall back to the LASTFM_API_KEY, LASTFM_API_SECRET and LASTFM_USER
environment variables.`,
	Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "Log file path (default: stderr)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error) (default from config)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Data directory for settings and watch state (default: ~/.local/share/recently)")
}
