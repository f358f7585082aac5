package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dissolveproject/dissolve/internal/infrastructure/database/postgres"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/logging"
	"github.com/dissolveproject/dissolve/internal/infrastructure/monitoring/prometheus"
	appgrpc "github.com/dissolveproject/dissolve/internal/interfaces/grpc"
	apphttp "github.com/dissolveproject/dissolve/internal/interfaces/http"
)

// NewServeCmd wires up C21's status surfaces — a gRPC StatusService and
// an HTTP mux serving /healthz, /readyz, /metrics — backed by the
// checkpoint catalog (C15), and runs them until SIGINT/SIGTERM, at which
// point both are shut down gracefully. This gives dissolve-bench an
// operational analogue of the teacher's cmd/apiserver: a long-lived
// binary that exercises the service layer the energy/procedure/topology
// subcommands leave unwired.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the status service's gRPC and HTTP surfaces until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			bc := GetBenchContext(cmd)
			return runServe(cmd.Context(), bc)
		},
	}
	return cmd
}

func runServe(parentCtx context.Context, bc *BenchContext) error {
	log := bc.Logger.Named("serve")
	cfg := bc.Config

	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	catalog, err := postgres.NewCatalog(cfg.Checkpoint, bc.Logger)
	if err != nil {
		return fmt.Errorf("connecting to checkpoint catalog: %w", err)
	}
	defer catalog.Close()

	metrics, err := prometheus.NewMetricsCollector(
		prometheus.CollectorConfigFromMetrics(cfg.Metrics), bc.Logger,
	)
	if err != nil {
		return fmt.Errorf("constructing metrics collector: %w", err)
	}

	provider := appgrpc.NewCatalogStatusProvider(catalog)
	statusSvc := appgrpc.NewStatusService(provider, bc.Logger)

	grpcServer, err := appgrpc.NewServer(&cfg.GRPC, appgrpc.WithLogger(bc.Logger))
	if err != nil {
		return fmt.Errorf("constructing grpc server: %w", err)
	}
	appgrpc.RegisterStatusService(grpcServer, statusSvc)

	router := apphttp.NewRouter(apphttp.RouterConfig{
		Logger:         bc.Logger,
		MetricsHandler: metrics.Handler(),
		ReadinessChecks: map[string]apphttp.ReadinessCheck{
			"checkpoint_catalog": catalog.HealthCheck,
		},
	})
	httpServer := apphttp.NewServer(apphttp.ServerConfig{
		Port:            cfg.HTTP.Port,
		ReadTimeout:     cfg.HTTP.ReadTimeout,
		WriteTimeout:    cfg.HTTP.WriteTimeout,
		ShutdownTimeout: cfg.HTTP.ShutdownTimeout,
	}, router, bc.Logger)

	// httpServer.Start blocks until ctx is cancelled (triggering its own
	// graceful Shutdown internally) or it hits a serve error. grpcServer.Start
	// has no context parameter and blocks on Serve until Stop is called
	// explicitly, so its goroutine is drained by Stop below rather than by
	// cancelling ctx.
	errCh := make(chan error, 2)
	go func() {
		if err := grpcServer.Start(); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		if err := httpServer.Start(ctx); err != nil {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logging.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server failed", logging.Err(err))
		cancel()
		return err
	case <-parentCtx.Done():
	}

	cancel() // stops httpServer.Start's internal graceful shutdown

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := grpcServer.Stop(shutdownCtx); err != nil {
		log.Warn("grpc server shutdown error", logging.Err(err))
	}
	return nil
}
