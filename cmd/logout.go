package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/internal/cliconfig"
	"github.com/kmkrofficial/signature/pkg/client"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove the saved credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		server, err := f.ServerAddr()
		if err != nil {
			return err
		}
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		if correlation, err := cli.Logout(cmd.Context()); err != nil && !errors.Is(err, client.ErrSessionEnded) {
			log.Warn().Err(err).Str("correlation_id", correlation).Msg("server did not end the session")
		}

		cfg, err := cliconfig.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if err := cfg.RemoveCredential(server); err != nil {
			return err
		}
		if err := cliconfig.Save(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logSuccess("signed out of %s", bold(server))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
