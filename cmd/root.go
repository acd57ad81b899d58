package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "stayctl",
		Short:         "stayctl: sign in to the booking platform and keep the session alive",
		Long:          "stayctl signs in to the booking platform's authority, stores the session, refreshes the access token before it expires and sends authenticated API requests from the terminal.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newSignupCmd(app),
		newLogoutCmd(app),
		newRefreshCmd(app),
		newStatusCmd(app),
		newKeepaliveCmd(app),
		newAPICmd(app),
		newDevAuthorityCmd(app),
	)

	return rootCmd
}
