package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/felixgeelhaar/forkadmin/internal/domain/linking"
	"github.com/felixgeelhaar/forkadmin/internal/modules/analytics"
	"github.com/spf13/cobra"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Inspect or reset the analytics link",
}

var analyticsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the linking state and cached report",
	Args:  cobra.NoArgs,
	RunE:  runAnalyticsStatus,
}

var analyticsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove the analytics link",
	Long: `Remove the analytics link.

Clears the client credentials, the token, the selected profile and every
cached report, returning the wizard to its first step.

Examples:
  forkadmin analytics reset --yes`,
	Args: cobra.NoArgs,
	RunE: runAnalyticsReset,
}

var analyticsResetYes bool

func init() {
	analyticsResetCmd.Flags().BoolVarP(&analyticsResetYes, "yes", "y", false, "confirm removal")
	analyticsCmd.AddCommand(analyticsStatusCmd, analyticsResetCmd)
	rootCmd.AddCommand(analyticsCmd)
}

func runAnalyticsStatus(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		status, err := a.AnalyticsStatus(ctx)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderStatus(status))
		return nil
	})
}

func renderStatus(status *analytics.Status) string {
	lines := []string{titleStyle.Render("Analytics")}
	state := warningStyle.Render(string(status.State))
	if status.State == linking.StateLinked {
		state = successStyle.Render(string(status.State))
	}
	lines = append(lines, row("state", state))

	if l := status.Linked; l != nil {
		lines = append(lines,
			row("account", fmt.Sprintf("%s (%s)", l.AccountName, l.AccountID)),
			row("property", fmt.Sprintf("%s (%s)", l.WebPropertyName, l.WebPropertyID)),
			row("profile", fmt.Sprintf("%s (%s)", l.ProfileName, l.ProfileID)),
			row("tracking", l.TrackingType),
		)
	} else {
		lines = append(lines, row("next step", status.Settings))
	}
	if r := status.Report; r != nil {
		lines = append(lines, row("report", fmt.Sprintf("%s..%s, %d rows", r.Start, r.End, r.Rows)))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

func runAnalyticsReset(cmd *cobra.Command, _ []string) error {
	if !analyticsResetYes {
		return failure.New(failure.CodeValidationFailed, "refusing to remove the analytics link").
			WithSuggestion("re-run with --yes")
	}
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if _, err := a.AnalyticsReset(ctx); err != nil {
			return err
		}
		printSuccess(cmd.OutOrStdout(), "analytics link removed")
		return nil
	})
}

func printSuccess(w io.Writer, msg string) {
	_, _ = fmt.Fprintf(w, "%s %s\n", successStyle.Render("✓"), msg)
}
