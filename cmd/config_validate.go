package cmd

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/internal/issuers"
)

// configValidateCmd represents the config validate command
var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration file",
	Long: `Parses the server configuration and builds the issuer registry without
starting the server. OIDC issuers are contacted for discovery.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			return logError(err, "", "configuration is invalid")
		}
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		if _, err := issuers.BuildRegistry(ctx, cfg.Issuers); err != nil {
			return logError(err, "", "issuers are invalid")
		}
		if len(cfg.Gate.AdminEmails) == 0 {
			log.Warn().Msg("gate.admin_emails is empty: nobody can access the admin area")
		}
		logSuccess("Configuration is valid.")
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	f.bindConfigFlag(configValidateCmd.Flags())
}
