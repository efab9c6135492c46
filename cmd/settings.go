package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jfmyers9/recently/internal/settings"
)

var showSecrets bool

// settingsCmd groups the settings subcommands
var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage stored Last.fm settings",
	Long: `Manage the settings stored in the data directory.

Known settings:
  LASTFM_API_KEY     Last.fm API key (required for any lookups)
  LASTFM_API_SECRET  Last.fm API secret (stored, not needed for lookups)
  LASTFM_USER        Default user when none is given

Stored settings take precedence over environment variables of the same
name. You can get API credentials from: https://www.last.fm/api/account/create`,
}

var settingsGetCmd = &cobra.Command{
	Use:   "get NAME",
	Short: "Print a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsGet,
}

var settingsSetCmd = &cobra.Command{
	Use:   "set NAME [VALUE]",
	Short: "Store a setting (prompts when VALUE is omitted)",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runSettingsSet,
}

var settingsUnsetCmd = &cobra.Command{
	Use:   "unset NAME",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runSettingsUnset,
}

var settingsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored settings",
	Args:  cobra.NoArgs,
	RunE:  runSettingsList,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
	settingsCmd.AddCommand(settingsGetCmd, settingsSetCmd, settingsUnsetCmd, settingsListCmd)

	settingsGetCmd.Flags().BoolVar(&showSecrets, "show", false, "Print credentials unmasked")
	settingsListCmd.Flags().BoolVar(&showSecrets, "show", false, "Print credentials unmasked")
}

// withStore opens the settings store for the duration of fn
func withStore(fn func(ctx context.Context, store *settings.Store) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := openSettings(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	return fn(context.Background(), store)
}

// settingName normalizes NAME arguments so lastfm_user and LASTFM_USER
// both work
func settingName(arg string) (string, error) {
	name := strings.ToUpper(strings.TrimSpace(arg))
	if !settings.IsKnown(name) {
		return "", fmt.Errorf("%w: %s (known: %s)", settings.ErrUnknownSetting, arg, strings.Join(settings.SortedKnown(), ", "))
	}
	return name, nil
}

func displayValue(name, value string) string {
	if settings.Secret(name) && !showSecrets {
		return settings.Mask(value)
	}
	return value
}

func runSettingsGet(cmd *cobra.Command, args []string) error {
	name, err := settingName(args[0])
	if err != nil {
		return err
	}

	return withStore(func(ctx context.Context, store *settings.Store) error {
		value, err := store.GetSetting(ctx, name)
		if err != nil {
			return err
		}
		if value == "" {
			return fmt.Errorf("%s is not set", name)
		}
		fmt.Println(displayValue(name, value))
		return nil
	})
}

func runSettingsSet(cmd *cobra.Command, args []string) error {
	name, err := settingName(args[0])
	if err != nil {
		return err
	}

	var value string
	if len(args) == 2 {
		value = args[1]
	} else {
		value, err = promptValue(os.Stdin, os.Stdout, name)
		if err != nil {
			return err
		}
	}

	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("empty value for %s (use 'recently settings unset' to remove it)", name)
	}

	return withStore(func(ctx context.Context, store *settings.Store) error {
		if err := store.Set(ctx, name, value); err != nil {
			return err
		}
		fmt.Printf("✓ %s saved\n", name)
		return nil
	})
}

func runSettingsUnset(cmd *cobra.Command, args []string) error {
	name, err := settingName(args[0])
	if err != nil {
		return err
	}

	return withStore(func(ctx context.Context, store *settings.Store) error {
		if err := store.Delete(ctx, name); err != nil {
			return err
		}
		fmt.Printf("✓ %s removed\n", name)
		return nil
	})
}

func runSettingsList(cmd *cobra.Command, args []string) error {
	return withStore(func(ctx context.Context, store *settings.Store) error {
		all, err := store.All(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("No settings stored")
			return nil
		}

		for _, s := range all {
			fmt.Printf("%-18s %s\n", s.Name, displayValue(s.Name, s.Value))
		}
		return nil
	})
}

// promptValue reads a single line for name from r
func promptValue(r io.Reader, w io.Writer, name string) (string, error) {
	fmt.Fprintf(w, "%s: ", name)

	reader := bufio.NewReader(r)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return strings.TrimSpace(line), nil
}
