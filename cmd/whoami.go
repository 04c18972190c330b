package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the principal of the saved session",
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}
		me, correlation, err := cli.Me(cmd.Context())
		if err != nil {
			return logError(err, correlation, "failed to get the current principal")
		}

		fmt.Println(bold("\n── Session ──"))
		fmt.Printf("  %s:     %s\n", faint("Email"), me.Principal.Email)
		fmt.Printf("  %s:   %s\n", faint("Subject"), me.Principal.ID)
		fmt.Printf("  %s:    %s\n", faint("Issuer"), me.Principal.Issuer)
		fmt.Printf("  %s:   %s\n", faint("Session"), me.SessionID)
		if !me.LastActivity.IsZero() {
			fmt.Printf("  %s:  %s ago (idle timeout %s)\n", faint("Activity"),
				time.Since(me.LastActivity).Round(time.Second), me.IdleTimeout)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
}
