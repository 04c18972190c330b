package cmd

import (
	"github.com/spf13/cobra"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Administrative audit commands",
	Long:  `View the audit log of the server. Requires an authenticated session (signature login).`,
}

func init() {
	rootCmd.AddCommand(auditCmd)
}
