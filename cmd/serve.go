package cmd

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/jfmyers9/recently/internal/server"
)

var serveAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve recent tracks over HTTP",
	Long: `Run an HTTP server answering recent-track queries through the cache.

Routes:
  GET /api/users/:user/recent-tracks?limit=N
  GET /api/recent-tracks?limit=N          (default user)
  GET /api/settings                       (credentials masked)
  PUT /api/settings
  GET /healthz

Upstream failures never produce 5xx responses: the last cached result, or
an empty list, is returned instead.

The server runs in the foreground and shuts down gracefully on SIGINT/SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config, :8080)")
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp("")
	if err != nil {
		return err
	}
	defer a.Close()

	addr := a.cfg.Server.Addr
	if serveAddr != "" {
		addr = serveAddr
	}

	a.logger.Info().
		Str("version", version).
		Str("data_dir", a.cfg.DataDir).
		Dur("cache_ttl", a.cfg.CacheTTL).
		Msg("Starting recently server")

	gin.SetMode(gin.ReleaseMode)
	srv := server.New(server.Config{Addr: addr, Logger: a.logger}, server.NewHandler(a.service, a.store))

	ctx, cancel := signalContext(a.logger)
	defer cancel()

	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	a.logger.Info().Msg("Server stopped")
	return nil
}
