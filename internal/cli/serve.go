package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ejc.kiosk/go-api/internal/app"
	"ejc.kiosk/go-api/internal/router"
	"ejc.kiosk/go-api/pkg/telemetry"
)

const (
	shutdownTimeout = 10 * time.Second
	sweepInterval   = 5 * time.Minute
)

func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "serve",
		Short:        "Run the HTTP API",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rootOpts)
		},
	}
}

func runServe(ctx context.Context, opts *RootOptions) error {
	cfg, logger, err := setup(opts)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Initialize(ctx, telemetry.Options{Enabled: cfg.OTelEnabled}, logger)
	if err != nil {
		return err
	}

	svc, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}

	go sweepCheckouts(ctx, svc, logger)

	server := newServer(ctx, ":"+cfg.Port, router.Handler(svc))

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server is running", zap.String("port", cfg.Port), zap.String("driver", cfg.StoreDriver))
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
	case <-ctx.Done():
		logger.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logger.Warn("http shutdown", zap.Error(shutdownErr))
	}
	if closeErr := svc.Close(shutdownCtx); closeErr != nil {
		logger.Warn("backend close", zap.Error(closeErr))
	}
	if traceErr := shutdownTracing(shutdownCtx); traceErr != nil {
		logger.Warn("tracing shutdown", zap.Error(traceErr))
	}

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// newServer ties every request context to ctx so long-lived streams end
// when shutdown starts.
func newServer(ctx context.Context, addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
}

// sweepCheckouts drops idle per-session orchestrators.
func sweepCheckouts(ctx context.Context, svc *app.Services, logger *zap.Logger) {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := svc.Checkout.Sweep(svc.Config.CartTTL); n > 0 {
				logger.Debug("swept idle checkout sessions", zap.Int("count", n))
			}
		}
	}
}
