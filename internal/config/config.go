package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	// Cache lifetime for recent-track results
	// Default: 2m
	CacheTTL time.Duration

	// Default number of tracks requested
	DefaultLimit int

	// Output format template for the recent command
	// Default: "{{.Artist}} - {{.Title}}"
	OutputFormat string

	// Output width for the recent command (0 = no padding)
	OutputWidth int

	// Directory for the settings database and watch cursor
	DataDir string

	LogLevel string

	LastFM LastFMConfig
	Server ServerConfig
	Watch  WatchConfig
}

// LastFMConfig holds Last.fm client configuration. Credentials are not
// part of it; they come from the settings store and the environment.
type LastFMConfig struct {
	BaseURL string
	Timeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// WatchConfig holds poller configuration
type WatchConfig struct {
	Interval time.Duration
}

// Load reads configuration from file and environment
func Load() (*Config, error) {
	return LoadFrom(getConfigDir(), ".")
}

// LoadFrom reads configuration searching the given directories for
// config.yaml, in order of precedence
func LoadFrom(dirs ...string) (*Config, error) {
	// Seed the process environment from .env; existing variables win
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, dir := range dirs {
		v.AddConfigPath(dir)
	}

	v.SetDefault("cache_ttl", 2*time.Minute)
	v.SetDefault("default_limit", 10)
	v.SetDefault("output_format", "{{.Artist}} - {{.Title}}")
	v.SetDefault("output_width", 0)
	v.SetDefault("data_dir", defaultDataDir())
	v.SetDefault("log_level", "info")
	v.SetDefault("lastfm.base_url", "https://ws.audioscrobbler.com/2.0/")
	v.SetDefault("lastfm.timeout", 10*time.Second)
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("watch.interval", 30*time.Second)

	// Read config file (optional - don't fail if missing)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	v.SetEnvPrefix("RECENTLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := &Config{
		CacheTTL:     v.GetDuration("cache_ttl"),
		DefaultLimit: v.GetInt("default_limit"),
		OutputFormat: v.GetString("output_format"),
		OutputWidth:  v.GetInt("output_width"),
		DataDir:      v.GetString("data_dir"),
		LogLevel:     v.GetString("log_level"),
		LastFM: LastFMConfig{
			BaseURL: v.GetString("lastfm.base_url"),
			Timeout: v.GetDuration("lastfm.timeout"),
		},
		Server: ServerConfig{
			Addr: v.GetString("server.addr"),
		},
		Watch: WatchConfig{
			Interval: v.GetDuration("watch.interval"),
		},
	}

	return cfg, nil
}

// SettingsPath returns the settings database location
func (c *Config) SettingsPath() string {
	return filepath.Join(c.DataDir, "settings.db")
}

// CursorPath returns the watch cursor location
func (c *Config) CursorPath() string {
	return filepath.Join(c.DataDir, "cursor.json")
}

// getConfigDir returns the configuration directory path
// Creates the directory if it doesn't exist
func getConfigDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	configDir := filepath.Join(homeDir, ".config", "recently")

	// Create config directory if it doesn't exist
	_ = os.MkdirAll(configDir, 0755)

	return configDir
}

func defaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, ".local", "share", "recently")
}

// GetConfigDir returns the configuration directory path (public helper)
func GetConfigDir() string {
	return getConfigDir()
}

// ConfigFile returns the path Save writes to
func ConfigFile() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// Save writes configuration to file
func (c *Config) Save() error {
	return c.SaveTo(ConfigFile())
}

// SaveTo writes configuration to the given YAML file
func (c *Config) SaveTo(configFile string) error {
	v := viper.New()

	v.Set("cache_ttl", c.CacheTTL.String())
	v.Set("default_limit", c.DefaultLimit)
	v.Set("output_format", c.OutputFormat)
	v.Set("output_width", c.OutputWidth)
	v.Set("data_dir", c.DataDir)
	v.Set("log_level", c.LogLevel)
	v.Set("lastfm.base_url", c.LastFM.BaseURL)
	v.Set("lastfm.timeout", c.LastFM.Timeout.String())
	v.Set("server.addr", c.Server.Addr)
	v.Set("watch.interval", c.Watch.Interval.String())

	return v.WriteConfigAs(configFile)
}
