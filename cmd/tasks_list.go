package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/internal/tasks"
)

var tasksListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the maintenance tasks of the server",
	Long: `Lists the session sweep and keep-alive tasks with what they act on, when they
last ran and what the last run did (e.g. how many idle sessions were removed).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Retrieving tasks...")
		list, err := cli.ListTasks(cmd.Context())
		if err != nil {
			return logError(err, "", "failed to list tasks")
		}
		if len(list) == 0 {
			log.Info().Msg("The server has no tasks registered.")
			return nil
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Task", "Target", "Last Run", "Next Run", "Runs", "Outcome"})
		for _, task := range list {
			t.AppendRow(table.Row{
				bold(task.Name),
				truncate(task.Target, 40),
				lastRunCell(task),
				nextRunCell(task),
				runsCell(task),
				outcomeCell(task),
			})
		}
		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func lastRunCell(task tasks.TaskStatus) string {
	switch {
	case task.Running:
		return color.BlueString("running")
	case task.LastRun.IsZero():
		return faint("never")
	}
	return fmt.Sprintf("%s ago (took %s)",
		time.Since(task.LastRun).Round(time.Second), task.LastDuration.Round(time.Millisecond))
}

func nextRunCell(task tasks.TaskStatus) string {
	if task.NextRun.IsZero() {
		return faint("on trigger")
	}
	if until := time.Until(task.NextRun); until > 0 {
		return "in " + until.Round(time.Second).String()
	}
	return "due"
}

func runsCell(task tasks.TaskStatus) string {
	if task.Failures == 0 {
		return fmt.Sprint(task.Runs)
	}
	return fmt.Sprintf("%d (%s)", task.Runs, color.RedString("%d failed", task.Failures))
}

func outcomeCell(task tasks.TaskStatus) string {
	switch {
	case task.LastResult == "":
		return ""
	case task.Succeeded():
		return greenCheck + " " + task.LastOutcome.Summary
	default:
		return redCross + " " + truncate(task.LastResult, 60)
	}
}

func init() {
	tasksCmd.AddCommand(tasksListCmd)
}
