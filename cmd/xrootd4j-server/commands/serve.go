package commands

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/gbehrmann/xrootd4j/internal/logger"
	"github.com/gbehrmann/xrootd4j/internal/metrics"
	"github.com/gbehrmann/xrootd4j/internal/trust"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/handler"
	"github.com/gbehrmann/xrootd4j/internal/xrootd/server"
	"github.com/gbehrmann/xrootd4j/pkg/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the xrootd data server",
	Long: `Run the xrootd data server: accept client connections, dispatch
filesystem requests against the configured root, and perform the DH half of
the GSI handshake on sessions that request it.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return fmt.Errorf("serve: load config: %w", err)
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return fmt.Errorf("serve: init logger: %w", err)
	}

	registry := prometheus.NewRegistry()
	m := metrics.New(registry)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The out-of-scope GSI trust-anchor collaborator (spec §1) is
	// represented here only by its refresh discipline (spec §4.9): this
	// stub loader publishes an empty snapshot, standing in for certificate
	// bundle / CRL loading this core does not implement.
	anchors, err := trust.NewAnchors(ctx, func(ctx context.Context) (*trust.Snapshot, error) {
		return &trust.Snapshot{RefreshedAt: time.Now(), Generation: 1}, nil
	})
	if err != nil {
		return fmt.Errorf("serve: init trust anchors: %w", err)
	}
	go anchors.Run(ctx, cfg.Trust.RefreshInterval)

	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
		metricsAddr := fmt.Sprintf(":%d", cfg.Metrics.Port)
		metricsSrv := &http.Server{Addr: metricsAddr, Handler: mux}
		go func() {
			logger.Info("metrics endpoint listening", "address", metricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics server failed", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
	}

	h := &handler.Handler{Root: cfg.Server.Root, UseZeroCopy: cfg.Server.UseZeroCopy}
	srv := server.New(cfg.Server, h, m, anchors)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout+5*time.Second)
	defer cancel()
	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("graceful shutdown incomplete", "error", err)
		return err
	}
	return nil
}
