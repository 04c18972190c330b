package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/internal/issuers"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage users of the static issuer",
}

var userHashPasswordStdin bool

var userHashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Hash a password for a static issuer user",
	Long: `Prints a bcrypt hash to paste into the password_hash field of a static
issuer user in the server configuration.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin(), userHashPasswordStdin)
		if err != nil {
			return err
		}
		if password == "" {
			return fmt.Errorf("password cannot be empty")
		}
		hash, err := issuers.HashPassword(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userHashPasswordCmd)

	userHashPasswordCmd.Flags().BoolVar(&userHashPasswordStdin, "password-stdin", false, "Read the password from stdin")
}
