package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/audit"
	"github.com/spf13/cobra"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent cronjob runs",
	Long: `Show cronjob runs recorded in the audit log, newest first.

Examples:
  forkadmin history
  forkadmin history --module analytics --limit 5
  forkadmin history --failures --days 7
  forkadmin history --json`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyModule   string
	historyAction   string
	historyLimit    int
	historyDays     int
	historyFailures bool
	historyJSON     bool
)

func init() {
	historyCmd.Flags().StringVarP(&historyModule, "module", "m", "", "filter by module")
	historyCmd.Flags().StringVarP(&historyAction, "action", "a", "", "filter by cronjob")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of runs to show")
	historyCmd.Flags().IntVarP(&historyDays, "days", "d", 0, "show runs from last N days")
	historyCmd.Flags().BoolVar(&historyFailures, "failures", false, "show only failed runs")
	historyCmd.Flags().BoolVarP(&historyJSON, "json", "j", false, "output as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	filter := audit.QueryFilter{
		Module: historyModule,
		Action: historyAction,
		Failed: historyFailures,
		Limit:  historyLimit,
	}
	if historyDays > 0 {
		filter.Since = time.Now().AddDate(0, 0, -historyDays)
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		events, err := a.CronjobHistory(ctx, filter)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if historyJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(events)
		}
		if len(events) == 0 {
			_, _ = fmt.Fprintln(out, "No cronjob runs recorded.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TIME\tCRONJOB\tLANG\tDURATION\tSTATUS")
		for _, e := range events {
			status := successStyle.Render("ok")
			if !e.Success {
				status = errorStyle.Render("failed: " + e.Error)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s.%s\t%s\t%s\t%s\n",
				e.Timestamp.Local().Format(time.DateTime), e.Module, e.Action, e.Language, e.Duration.Round(time.Millisecond), status)
		}
		return w.Flush()
	})
}
