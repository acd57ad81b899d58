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
	"strings"
	"syscall"
	"time"

	"github.com/bnema/stayctl/internal/devauthority"
	"github.com/spf13/cobra"
)

func newDevAuthorityCmd(app *app) *cobra.Command {
	var listenAddr string
	var basePath string
	var seedUsers []string
	var accessTTL time.Duration

	cmd := &cobra.Command{
		Use:   "dev-authority",
		Short: "Run a local authority for development",
		RunE: func(cmd *cobra.Command, _ []string) error {
			server := devauthority.New(devauthority.Config{
				BasePath:  basePath,
				AccessTTL: accessTTL,
				Logger:    app.logger,
			})
			for _, seed := range seedUsers {
				email, password, ok := strings.Cut(seed, ":")
				if !ok || email == "" || password == "" {
					return fmt.Errorf("invalid --seed-user %q: want email:password", seed)
				}
				if err := server.AddUser(email, password, ""); err != nil {
					return fmt.Errorf("seed user %s: %w", email, err)
				}
			}

			listener, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return fmt.Errorf("listen: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			httpServer := &http.Server{Handler: server.Handler(), ReadHeaderTimeout: 10 * time.Second}
			serveErr := make(chan error, 1)
			go func() {
				serveErr <- httpServer.Serve(listener)
			}()

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Dev authority listening on http://%s%s\n", listener.Addr(), basePath)

			select {
			case err := <-serveErr:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				app.logger.Warn("dev authority shutdown", slog.String("error", err.Error()))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:8080", "Listen address")
	cmd.Flags().StringVar(&basePath, "base-path", devauthority.DefaultBasePath, "Path prefix for every route")
	cmd.Flags().StringArrayVar(&seedUsers, "seed-user", nil, "Create a user (email:password); repeatable")
	cmd.Flags().DurationVar(&accessTTL, "access-ttl", devauthority.DefaultAccessTTL, "Access token lifetime")

	return cmd
}
