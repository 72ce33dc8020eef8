package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/cognitrend/internal/adapters/http/api"
	"github.com/okian/cognitrend/internal/adapters/http/swagger"
	service "github.com/okian/cognitrend/internal/app"
	"github.com/okian/cognitrend/pkg/logger"
	"github.com/okian/cognitrend/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the batch worker pool",
		Args:  cobra.NoArgs,
		Run:   runServe,
	}
	cmd.Flags().String("addr", "", "Listen address (overrides config)")

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, _ []string) {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := bootstrap(ctx, false)
	if err != nil {
		exitErr("startup", err)
	}
	defer deps.close()

	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		deps.cfg.Addr = addr
	}
	if err := serve(ctx, deps); err != nil {
		deps.log.Error(ctx, "server failed", logger.Error(err))
		deps.close()
		exitErr("serve", err)
	}
}

// serve blocks until ctx is cancelled or the listener fails.
func serve(ctx context.Context, deps *runtimeDeps) error {
	svc := deps.svc
	if err := svc.Start(ctx); err != nil {
		return err
	}
	defer svc.Stop()

	go startServiceMetricsUpdater(ctx, svc)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc).Register(ctx, mux)

	srv := &http.Server{
		Addr:              deps.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		deps.log.Info(ctx, "starting HTTP server", logger.String("addr", deps.cfg.Addr), logger.String("store", deps.cfg.Store))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	deps.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		deps.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	deps.log.Info(ctx, "server stopped")
	return nil
}

// startServiceMetricsUpdater refreshes queue and worker gauges until ctx ends.
func startServiceMetricsUpdater(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats()
			if workerCount, ok := stats["workerCount"].(int); ok && stats["started"] == true {
				metrics.UpdateWorkerCount(workerCount)
			}
		}
	}
}
