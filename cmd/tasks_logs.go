package cmd

import (
	"fmt"
	"slices"

	"github.com/fatih/color"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/internal/tasks"
)

var tasksLogsCmd = &cobra.Command{
	Use:   "logs NAME",
	Short: "Show the output of the last run of a task",
	Long: `Shows what the last run of a maintenance task logged, e.g. the sweep's removed
session count or the keep-alive response. Only the most recent run is kept.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]
		if name == "" {
			return fmt.Errorf("task name cannot be empty")
		}
		problemsOnly, _ := cmd.Flags().GetBool("problems")

		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msgf("Retrieving logs for task '%s'...", name)
		entries, err := cli.GetTaskLogs(cmd.Context(), name)
		if err != nil {
			return logError(err, "", fmt.Sprintf("failed to get the logs of '%s'", name))
		}
		if len(entries) == 0 {
			log.Info().Msgf("Task '%s' has not run yet.", name)
			return nil
		}

		fmt.Println(bold(fmt.Sprintf("\n── %s, run #%d ──", name, entries[0].Run)))
		for _, entry := range filterLogs(entries, problemsOnly) {
			fmt.Printf("%s | %s | %s\n", faint(entry.Time.Format("15:04:05")), levelTag(entry.Level), entry.Message)
		}
		return nil
	},
}

// filterLogs keeps warnings and errors if problemsOnly is set.
func filterLogs(entries []tasks.LogEntry, problemsOnly bool) []tasks.LogEntry {
	if !problemsOnly {
		return entries
	}
	return slices.DeleteFunc(slices.Clone(entries), func(e tasks.LogEntry) bool {
		return e.Level != "warn" && e.Level != "error"
	})
}

func levelTag(level string) string {
	switch level {
	case "info":
		return color.GreenString("inf")
	case "warn":
		return color.YellowString("wrn")
	case "error":
		return color.RedString("err")
	default:
		return level
	}
}

func init() {
	tasksLogsCmd.Flags().Bool("problems", false, "only show warnings and errors")
	tasksCmd.AddCommand(tasksLogsCmd)
}
