package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bnema/stayctl/internal/adapters/authority"
	"github.com/bnema/stayctl/internal/domain"
	"github.com/bnema/stayctl/internal/ports"
	"github.com/spf13/cobra"
)

type passwordFlags struct {
	password      string
	passwordStdin bool
}

func (f *passwordFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.password, "password", "", "Account password")
	cmd.Flags().BoolVar(&f.passwordStdin, "password-stdin", false, "Read the password from stdin")
	cmd.MarkFlagsMutuallyExclusive("password", "password-stdin")
}

func (f *passwordFlags) resolve(in io.Reader) (string, error) {
	if !f.passwordStdin {
		if f.password == "" {
			return "", errors.New("a password is required: use --password or --password-stdin")
		}
		return f.password, nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read password from stdin: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	if password == "" {
		return "", errors.New("empty password on stdin")
	}
	return password, nil
}

func newLoginCmd(app *app) *cobra.Command {
	var email string
	var remember bool
	var pw passwordFlags

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			password, err := pw.resolve(cmd.InOrStdin())
			if err != nil {
				return err
			}

			var session domain.Session
			err = runWithSpinner(cmd.Context(), cmd.ErrOrStderr(), "Signing in...", func(ctx context.Context) error {
				var loginErr error
				session, loginErr = app.auth.Login(ctx, domain.Credentials{Email: email, Password: password}, remember)
				return loginErr
			})
			if err != nil {
				return fmt.Errorf("sign in: %w", err)
			}

			return printSignedIn(cmd, app, session)
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().BoolVar(&remember, "remember", false, "Keep the session across restarts")
	pw.register(cmd)
	_ = cmd.MarkFlagRequired("email")

	cmd.AddCommand(newLoginSocialCmd(app))

	return cmd
}

func newLoginSocialCmd(app *app) *cobra.Command {
	var provider string
	var listenAddr string
	var remember bool
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "social",
		Short: "Sign in through a third-party provider in the browser",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSocialLogin(cmd, app, provider, listenAddr, remember, timeout)
		},
	}

	cmd.Flags().StringVar(&provider, "provider", "google", "Identity provider")
	cmd.Flags().StringVar(&listenAddr, "listen", "127.0.0.1:0", "Loopback address for the callback server")
	cmd.Flags().BoolVar(&remember, "remember", false, "Keep the session across restarts")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Minute, "How long to wait for the browser callback")

	return cmd
}

func runSocialLogin(cmd *cobra.Command, app *app, provider, listenAddr string, remember bool, timeout time.Duration) error {
	pkce, err := authority.NewPKCEPair()
	if err != nil {
		return fmt.Errorf("generate pkce: %w", err)
	}
	state, err := authority.NewState()
	if err != nil {
		return fmt.Errorf("generate login state: %w", err)
	}

	server, err := authority.StartCallbackServer(listenAddr, state)
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}

	authURL, err := authority.BuildSocialAuthorizationURL(authority.SocialAuthorization{
		BaseURL:       app.cfg.AuthorityBaseURL,
		Provider:      provider,
		RedirectURI:   server.RedirectURI(),
		State:         state,
		CodeChallenge: pkce.Challenge,
	})
	if err != nil {
		_ = server.Close()
		return fmt.Errorf("build authorization url: %w", err)
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Open this URL to sign in with %s:\n%s\n", provider, authURL)

	code, err := server.WaitForCode(timeout)
	if err != nil {
		return fmt.Errorf("wait for login callback: %w", err)
	}

	session, err := app.auth.CompleteSocialLogin(cmd.Context(), ports.SocialExchange{
		Provider:     provider,
		Code:         code,
		CodeVerifier: pkce.Verifier,
		RedirectURI:  server.RedirectURI(),
		Remember:     remember,
	})
	if err != nil {
		return err
	}

	return printSignedIn(cmd, app, session)
}

func printSignedIn(cmd *cobra.Command, app *app, session domain.Session) error {
	who := "user"
	if identity, ok := app.auth.Identity(cmd.Context()); ok && identity.Email != "" {
		who = identity.Email
	}
	scope := "this login session only"
	if session.Remember {
		scope = "remembered"
	}

	_, err := fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s (%s); token expires at %s\n",
		who, scope, session.ExpiresAt.Local().Format("15:04"))
	return err
}
