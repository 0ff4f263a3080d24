package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"veracity/internal/apihandlers"
)

var (
	serveAddr string // Listen address
	servePort string // Listen port
	serveMode string // gin mode
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:         "serve",
	Short:       "Run the classification API server",
	Long:        `Starts an HTTP server exposing classification, verification and job endpoints under /api/v1, plus /health and /metrics.`,
	Annotations: map[string]string{watchAnnotation: "true"},
	RunE: func(cmd *cobra.Command, args []string) error {
		appInstance, err := GetAppFromContext(cmd.Context())
		if err != nil {
			return err
		}
		cfg := appInstance.Store.Load()

		addr, port := cfg.Server.Addr, cfg.Server.Port
		if cmd.Flags().Changed("addr") {
			addr = serveAddr
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}
		gin.SetMode(serveMode)

		router := apihandlers.NewRouter(apihandlers.NewAPIHandler(appInstance))
		srv := &http.Server{
			Addr:              net.JoinHostPort(addr, port),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			log.Infof("Starting API server on http://%s (mode=%s)", srv.Addr, appInstance.Engine.DefaultMode())
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("failed to run API server: %w", err)
			}
			return nil
		case <-ctx.Done():
		}

		log.Info("Shutdown signal received, draining connections...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Analysis.OverallTimeout+5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		log.Info("API server stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "localhost", "Address to listen on (e.g., '0.0.0.0' for all interfaces); overrides server.addr")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on; overrides server.port")
	serveCmd.Flags().StringVar(&serveMode, "gin-mode", gin.ReleaseMode, "gin mode: debug, release or test")
}
