package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jfmyers9/recently/internal/recent"
	"github.com/jfmyers9/recently/internal/settings"
)

// RecentTracksService is the query surface the handlers need.
// *recent.Service implements it.
type RecentTracksService interface {
	GetRecentTracks(ctx context.Context, user string, limit int) []recent.Track
	User(ctx context.Context, user string) string
	Limit(limit int) int
	Stats() recent.Stats
}

// SettingsStore is the settings surface the handlers need.
// *settings.Store implements it.
type SettingsStore interface {
	GetSetting(ctx context.Context, name string) (string, error)
	Set(ctx context.Context, name, value string) error
	Delete(ctx context.Context, name string) error
}

// Handler serves the API routes
type Handler struct {
	service  RecentTracksService
	settings SettingsStore
}

// NewHandler creates a Handler. store may be nil, which disables the
// settings routes.
func NewHandler(service RecentTracksService, store SettingsStore) *Handler {
	return &Handler{service: service, settings: store}
}

// RecentTracksResponse is the body of the recent-tracks routes
type RecentTracksResponse struct {
	User   string         `json:"user"`
	Limit  int            `json:"limit"`
	Tracks []recent.Track `json:"tracks"`
}

// Register adds the API routes to r
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Health)

	api := r.Group("/api")
	api.GET("/recent-tracks", h.RecentTracks)
	api.GET("/users/:user/recent-tracks", h.RecentTracks)

	if h.settings != nil {
		api.GET("/settings", h.GetSettings)
		api.PUT("/settings", h.PutSettings)
	}
}

// RecentTracks answers from the cache-backed service. Upstream failures
// never surface as errors here.
func (h *Handler) RecentTracks(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be an integer"})
			return
		}
		limit = n
	}

	ctx := c.Request.Context()
	user := h.service.User(ctx, c.Param("user"))
	tracks := h.service.GetRecentTracks(ctx, user, limit)

	c.JSON(http.StatusOK, RecentTracksResponse{
		User:   user,
		Limit:  h.service.Limit(limit),
		Tracks: tracks,
	})
}

// Health reports service counters
func (h *Handler) Health(c *gin.Context) {
	stats := h.service.Stats()
	c.JSON(http.StatusOK, gin.H{
		"status":        "ok",
		"cache_entries": stats.Entries,
		"hits":          stats.Hits,
		"misses":        stats.Misses,
		"fetches":       stats.Fetches,
		"fetch_errors":  stats.FetchErrors,
		"stale_served":  stats.StaleServed,
	})
}

// settingsBody maps API field names to setting names; nil fields are left
// untouched
type settingsBody struct {
	APIKey    *string `json:"lastfm_api_key"`
	APISecret *string `json:"lastfm_api_secret"`
	User      *string `json:"lastfm_user"`
}

func (b settingsBody) values() map[string]*string {
	return map[string]*string{
		recent.SettingAPIKey:    b.APIKey,
		recent.SettingAPISecret: b.APISecret,
		recent.SettingUser:      b.User,
	}
}

// GetSettings returns stored settings with credentials masked
func (h *Handler) GetSettings(c *gin.Context) {
	ctx := c.Request.Context()

	out := make(gin.H, len(settings.Known))
	for _, name := range settings.Known {
		value, err := h.settings.GetSetting(ctx, name)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read settings"})
			return
		}
		if settings.Secret(name) {
			value = settings.Mask(value)
		}
		out[apiName(name)] = value
	}

	c.JSON(http.StatusOK, out)
}

// PutSettings stores the provided settings; empty strings delete
func (h *Handler) PutSettings(c *gin.Context) {
	var body settingsBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings body"})
		return
	}

	ctx := c.Request.Context()
	for name, value := range body.values() {
		if value == nil {
			continue
		}

		var err error
		if strings.TrimSpace(*value) == "" {
			err = h.settings.Delete(ctx, name)
		} else {
			err = h.settings.Set(ctx, name, *value)
		}

		if errors.Is(err, settings.ErrUnknownSetting) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to write settings"})
			return
		}
	}

	h.GetSettings(c)
}

// apiName converts LASTFM_API_KEY to lastfm_api_key
func apiName(name string) string {
	return strings.ToLower(name)
}
