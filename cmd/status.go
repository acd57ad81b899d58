package cmd

import (
	"encoding/json"
	"errors"
	"fmt"

	statusadapter "github.com/bnema/stayctl/internal/adapters/render/status"
	"github.com/bnema/stayctl/internal/domain"
	"github.com/spf13/cobra"
)

func newStatusCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			app.restore(cmd.Context())
			status := app.auth.Status(cmd.Context())

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(status)
			}

			rendered, err := app.statusRenderer(status, statusadapter.RenderOptions{
				Now:           app.now(),
				TokenLifetime: app.cfg.FallbackTTL,
				AuthorityURL:  app.cfg.AuthorityBaseURL,
			})
			if err != nil {
				return fmt.Errorf("render status: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")

	return cmd
}

func withLoginHint(err error) error {
	if errors.Is(err, domain.ErrSessionExpired) || errors.Is(err, domain.ErrRefreshRejected) || errors.Is(err, domain.ErrNotAuthenticated) {
		return fmt.Errorf("%w; run `stayctl login` to sign in again", err)
	}
	return err
}
