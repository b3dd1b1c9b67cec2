package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"staffing-estimator/config"
	"staffing-estimator/estimator"
	"staffing-estimator/server"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the estimator over HTTP",
		Long: `Start the HTTP API.

Endpoints:
  GET  /healthz        liveness
  GET  /metrics        Prometheus metrics
  GET  /api/config     base configuration
  POST /api/estimate   multipart upload (field "file") with optional overrides

Examples:
  staffing-estimator serve
  staffing-estimator serve --addr :9000 --cors-origins https://ops.example.com`,
		Args: cobra.NoArgs,
		RunE: a.runServe,
	}

	d := config.Default()
	cmd.Flags().String("addr", d.Server.Addr, "Listen address")
	cmd.Flags().String("cors-origins", d.Server.CORSOrigins, "Comma separated allowed origins, * for any")
	cmd.Flags().Int64("max-upload-mb", d.Server.MaxUploadMB, "Maximum upload size in MB")
	cmd.Flags().Duration("request-timeout", d.Server.RequestTimeout, "Per request estimation timeout")
	a.bind(cmd, "server.addr", "addr")
	a.bind(cmd, "server.cors_origins", "cors-origins")
	a.bind(cmd, "server.max_upload_mb", "max-upload-mb")
	a.bind(cmd, "server.request_timeout", "request-timeout")
	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := a.load(cmd)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := server.Router(cfg, estimator.New(logger), Version, logger)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.Server.Addr).Str("version", Version).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		logger.Info().Msg("server stopped")
		return nil
	})
	return g.Wait()
}
