package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bnema/stayctl/internal/domain"
	"github.com/spf13/cobra"
)

func newSignupCmd(app *app) *cobra.Command {
	var req domain.SignupRequest
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}
			req.Password = password

			var session domain.Session
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Creating account...", func(ctx context.Context) error {
				var signupErr error
				session, signupErr = app.auth.Signup(ctx, req)
				return signupErr
			})
			if err != nil {
				return err
			}

			return printSignedIn(cmd, app, session)
		},
	}

	cmd.Flags().StringVar(&req.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "Display name")
	cmd.Flags().BoolVar(&req.Remember, "remember", false, "Keep the session across restarts")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func newLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.jar.Load(cmd.Context()); err != nil {
				app.logger.Warn("load standing credentials", slog.String("error", err.Error()))
			}
			app.auth.Logout(cmd.Context())

			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Signed out")
			return err
		},
	}
}

func newRefreshCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh",
		Short: "Exchange the standing credential for a new access token now",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := app.jar.Load(cmd.Context()); err != nil {
				app.logger.Warn("load standing credentials", slog.String("error", err.Error()))
			}

			session, err := app.auth.Refresh(cmd.Context())
			if err != nil {
				return withLoginHint(err)
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Session refreshed; token expires at %s\n",
				session.ExpiresAt.Local().Format("15:04"))
			return err
		},
	}
}
