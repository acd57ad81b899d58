package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bnema/stayctl/internal/adapters/metrics"
	"github.com/bnema/stayctl/internal/domain"
	"github.com/spf13/cobra"
)

func newKeepaliveCmd(app *app) *cobra.Command {
	var metricsAddr string
	var duration time.Duration

	cmd := &cobra.Command{
		Use:   "keepalive",
		Short: "Stay in the foreground and refresh the session before it expires",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			if duration > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, duration)
				defer cancel()
			}

			ended := make(chan error, 1)
			app.auth.OnLogout(func(reason error) {
				select {
				case ended <- reason:
				default:
				}
			})

			if !app.restore(ctx) {
				return withLoginHint(domain.ErrNotAuthenticated)
			}

			if metricsAddr != "" {
				shutdown, err := serveMetrics(app, metricsAddr)
				if err != nil {
					return err
				}
				defer shutdown()
			}

			if next, ok := app.auth.NextRefresh(); ok {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Keeping session alive; next refresh at %s\n", next.Local().Format("15:04:05"))
			}

			select {
			case reason := <-ended:
				if reason == nil {
					reason = domain.ErrNotAuthenticated
				}
				return withLoginHint(reason)
			case <-ctx.Done():
				return nil
			}
		},
	}

	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. 127.0.0.1:9464)")
	cmd.Flags().DurationVar(&duration, "for", 0, "Stop after this long (0 runs until interrupted)")

	return cmd
}

func serveMetrics(app *app, addr string) (func(), error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen metrics: %w", err)
	}

	server := &http.Server{Handler: metrics.Handler(app.registry), ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("metrics server stopped", slog.String("error", err.Error()))
		}
	}()
	app.logger.Info("serving metrics", slog.String("addr", listener.Addr().String()))

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}, nil
}
