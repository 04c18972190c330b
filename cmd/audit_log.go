package cmd

import (
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/kmkrofficial/signature/pkg/client"
)

var auditLogOpts client.ListAuditsOpts

// auditLogCmd represents the audit log command
var auditLogCmd = &cobra.Command{
	Use:   "log",
	Short: "Retrieve and display audit log entries",
	Long: `Retrieve and display audit log entries.

The --filter expression is evaluated on the server for every entry, e.g.:

  signature audit log --filter 'entry.Action == "gate.denied"'
  signature audit log --filter 'entry.Principal?.Email endsWith "@example.com"'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cli, err := f.GetClient()
		if err != nil {
			return err
		}

		log.Debug().Msg("Fetching audit log...")
		audits, correlation, err := cli.ListAudits(cmd.Context(), auditLogOpts)
		if err != nil {
			return logError(err, correlation, "failed to fetch audit log")
		}

		log.Info().Msgf("Retrieved %d audit entries", len(audits))

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{
			"Time", "Action", "Principal", "Success", "Path", "Error",
		})

		for _, e := range audits {
			status := color.GreenString("yes")
			if !e.Success {
				status = color.RedString("no")
			}

			sub := faint("(unknown)")
			if e.Principal != nil {
				sub = truncate(e.Principal.Email, 35)
			}

			t.AppendRow(table.Row{
				e.Time.Local().Format(time.DateTime),
				e.Action,
				sub,
				status,
				e.Path,
				truncate(e.Error, 40),
			})
		}

		applyTableFormat(t)
		t.Render()
		return nil
	},
}

func init() {
	auditCmd.AddCommand(auditLogCmd)

	auditLogCmd.Flags().UintVarP(&auditLogOpts.Limit, "limit", "n", 25, "Number of audit entries to retrieve")
	auditLogCmd.Flags().StringVar(&auditLogOpts.CorrelationID, "correlation-id", "", "Only show entries of this request")
	auditLogCmd.Flags().StringVar(&auditLogOpts.PrincipalID, "principal", "", "Only show entries of this principal ID")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Action, "action", "", "Only show entries with this action (e.g. gate.expired)")
	auditLogCmd.Flags().StringVar(&auditLogOpts.Filter, "filter", "", "Filter expression evaluated on the server")
}
