package cmd

import (
	"github.com/spf13/cobra"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Inspect and trigger background tasks",
	Long:  `List, trigger and read the logs of the server's background tasks. Requires an authenticated session (signature login).`,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}
