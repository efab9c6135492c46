package recent

import (
	"context"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Setting and environment variable names consulted by the Resolver
const (
	SettingAPIKey    = "LASTFM_API_KEY"
	SettingAPISecret = "LASTFM_API_SECRET"
	SettingUser      = "LASTFM_USER"
)

// Credentials are the Last.fm API credentials in effect for one call.
// The secret is resolved but not sent: user.getRecentTracks is unsigned.
type Credentials struct {
	APIKey    string
	APISecret string
}

// Configured reports whether an API key is available
func (c Credentials) Configured() bool {
	return c.APIKey != ""
}

// SettingsStore is a persisted key/value lookup. An unset name yields "".
type SettingsStore interface {
	GetSetting(ctx context.Context, name string) (string, error)
}

// Env looks up process-level configuration
type Env interface {
	Getenv(name string) string
}

// OSEnv reads the process environment
type OSEnv struct{}

// Getenv implements Env
func (OSEnv) Getenv(name string) string {
	return os.Getenv(name)
}

// EnvFunc adapts a function to Env
type EnvFunc func(name string) string

// Getenv implements Env
func (f EnvFunc) Getenv(name string) string {
	return f(name)
}

// Resolver looks up credentials on every call, settings store first and
// environment second, so changes apply without a restart.
type Resolver struct {
	settings SettingsStore
	env      Env
	logger   zerolog.Logger
}

// NewResolver creates a Resolver. settings may be nil; env defaults to OSEnv.
func NewResolver(settings SettingsStore, env Env, logger zerolog.Logger) *Resolver {
	if env == nil {
		env = OSEnv{}
	}
	return &Resolver{
		settings: settings,
		env:      env,
		logger:   logger.With().Str("component", "credentials").Logger(),
	}
}

// Resolve returns the current credentials. A missing key is not an error.
func (r *Resolver) Resolve(ctx context.Context) Credentials {
	return Credentials{
		APIKey:    r.lookup(ctx, SettingAPIKey),
		APISecret: r.lookup(ctx, SettingAPISecret),
	}
}

// DefaultUser returns the configured Last.fm username, or "" when unset
func (r *Resolver) DefaultUser(ctx context.Context) string {
	return r.lookup(ctx, SettingUser)
}

func (r *Resolver) lookup(ctx context.Context, name string) string {
	if r.settings != nil {
		v, err := r.settings.GetSetting(ctx, name)
		if err != nil {
			r.logger.Warn().Err(err).Str("setting", name).Msg("Failed to read setting, falling back to environment")
		} else if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return strings.TrimSpace(r.env.Getenv(name))
}
