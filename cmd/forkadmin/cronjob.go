package main

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/spf13/cobra"
)

var cronjobCmd = &cobra.Command{
	Use:   "cronjob --module=<module> --action=<action> [--language=<lang>] [--key=value...]",
	Short: "Run a module cronjob",
	Long: `Run a module cronjob from the command line.

Arguments are free-form key=value tokens; leading dashes are ignored and
tokens without a value are dropped. module and action are required,
language defaults to the configured default language. Every other token
is passed to the cronjob as a parameter.

Examples:
  forkadmin cronjob --module=core --action=ping
  forkadmin cronjob module=analytics action=fetch_data days=7
  forkadmin cronjob --module=analytics --action=fetch_data --language=nl`,
	DisableFlagParsing: true,
	RunE:               runCronjob,
}

func init() {
	rootCmd.AddCommand(cronjobCmd)
}

func runCronjob(cmd *cobra.Command, args []string) error {
	if slices.Contains(args, "--help") || slices.Contains(args, "-h") {
		return cmd.Help()
	}
	// ParseArgs skips the program name.
	argv := append([]string{cmd.CommandPath()}, extractGlobalFlags(args)...)

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.RunCronjob(ctx, argv)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Redirect != nil {
			_, _ = fmt.Fprintf(out, "%s %s.%s is not configured, redirect: %s\n",
				warningStyle.Render("!"), res.Module, res.Action, res.Redirect.Location())
			return nil
		}
		_, _ = fmt.Fprintf(out, "%s %s.%s (%s) ran in %s [%s]\n",
			successStyle.Render("✓"), res.Module, res.Action, res.Language, res.Duration, res.InvocationID)
		return nil
	})
}

// extractGlobalFlags applies --config and --verbose, which cobra leaves in
// args when flag parsing is disabled, and returns the remaining tokens.
func extractGlobalFlags(args []string) []string {
	rest := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		switch arg := args[i]; {
		case arg == "--config" && i+1 < len(args):
			cfgFile = args[i+1]
			i++
		case strings.HasPrefix(arg, "--config="):
			cfgFile = strings.TrimPrefix(arg, "--config=")
		case arg == "--verbose" || arg == "-v":
			verbose = true
		default:
			rest = append(rest, arg)
		}
	}
	return rest
}
