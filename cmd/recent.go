package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/recently/internal/recent"
)

// recentCmd represents the recent command
var recentCmd = &cobra.Command{
	Use:   "recent [user]",
	Short: "Print a user's recently played tracks",
	Long: `Print a Last.fm user's recently played tracks, newest first.

When no user is given the LASTFM_USER setting is used.

The output format can be customized in ~/.config/recently/config.yaml
using a Go template. Available fields: .Artist, .Title, .AlbumName,
.Image, .PlayedAt, .NowPlaying

Upstream failures are not errors: the last cached result, or nothing, is
printed instead. The command only fails on configuration or template errors.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRecent,
}

func init() {
	rootCmd.AddCommand(recentCmd)

	recentCmd.Flags().IntP("limit", "n", 0, "Number of tracks (default from config, max 200)")
	recentCmd.Flags().StringP("format", "f", "", "Output format template (overrides config)")
	recentCmd.Flags().IntP("width", "w", 0, "Fixed output width (0=disabled, overrides config)")
	recentCmd.Flags().Bool("json", false, "Print tracks as JSON")
}

func runRecent(cmd *cobra.Command, args []string) error {
	a, err := newApp("warn")
	if err != nil {
		return err
	}
	defer a.Close()

	formatStr := a.cfg.OutputFormat
	if f, _ := cmd.Flags().GetString("format"); f != "" {
		formatStr = f
	}

	// Parse the template before any network work
	tmpl, err := parseTrackTemplate(formatStr)
	if err != nil {
		return err
	}

	width, _ := cmd.Flags().GetInt("width")
	if width == 0 {
		width = a.cfg.OutputWidth
	}

	limit, _ := cmd.Flags().GetInt("limit")
	user := ""
	if len(args) > 0 {
		user = args[0]
	}

	tracks := a.service.GetRecentTracks(context.Background(), user, limit)

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(tracks)
	}

	return writeTracks(os.Stdout, tracks, tmpl, width)
}

// parseTrackTemplate parses an output template for a single track
func parseTrackTemplate(templateStr string) (*template.Template, error) {
	tmpl, err := template.New("output").Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid template: %w", err)
	}
	return tmpl, nil
}

// formatTrack applies the template to the track data
func formatTrack(track recent.Track, tmpl *template.Template) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, track); err != nil {
		return "", fmt.Errorf("template execution failed: %w", err)
	}

	return buf.String(), nil
}

// writeTracks writes one formatted line per track
func writeTracks(w io.Writer, tracks []recent.Track, tmpl *template.Template, width int) error {
	for _, t := range tracks {
		line, err := formatTrack(t, tmpl)
		if err != nil {
			return err
		}
		if _, err := fmt.Fprintln(w, padToWidth(line, width)); err != nil {
			return err
		}
	}
	return nil
}

// padToWidth pads or truncates text to a fixed display width.
// Width is measured in display columns, accounting for Unicode characters.
// If width <= 0, returns text unchanged.
// If text is longer than width, truncates with "..." suffix.
// If text is shorter than width, pads with spaces.
func padToWidth(text string, width int) string {
	if width <= 0 {
		return text // no padding requested
	}

	currentWidth := runewidth.StringWidth(text)

	if currentWidth > width {
		ellipsis := "..."
		ellipsisWidth := runewidth.StringWidth(ellipsis)

		if width <= ellipsisWidth {
			return runewidth.Truncate(ellipsis, width, "")
		}

		// Wide runes may leave the truncated text one column short
		truncated := runewidth.Truncate(text, width-ellipsisWidth, "")
		result := truncated + ellipsis

		resultWidth := runewidth.StringWidth(result)
		if resultWidth < width {
			return result + strings.Repeat(" ", width-resultWidth)
		} else if resultWidth > width {
			return runewidth.Truncate(result, width, "")
		}
		return result
	} else if currentWidth < width {
		return text + strings.Repeat(" ", width-currentWidth)
	}

	return text // exactly the right width
}
