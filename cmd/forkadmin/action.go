package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/spf13/cobra"
)

var actionCmd = &cobra.Command{
	Use:   "action <module> <action> [key=value...]",
	Short: "Run a backend action",
	Long: `Run a backend action and print its result as JSON.

key=value pairs are passed as query parameters, or as submitted form
fields with --form. A redirect is printed as its location.

Examples:
  forkadmin action core index
  forkadmin action analytics settings
  forkadmin action analytics settings --form client_id=abc client_secret=xyz
  forkadmin action analytics settings remove=session`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAction,
}

var (
	actionLanguage string
	actionForm     bool
)

func init() {
	actionCmd.Flags().StringVarP(&actionLanguage, "language", "l", "", "working language (default: configured default)")
	actionCmd.Flags().BoolVar(&actionForm, "form", false, "send key=value pairs as a form submission")
	rootCmd.AddCommand(actionCmd)
}

func runAction(cmd *cobra.Command, args []string) error {
	values, err := parsePairs(args[2:])
	if err != nil {
		return err
	}
	req := app.ActionRequest{Module: args[0], Action: args[1], Language: actionLanguage, Params: values}
	if actionForm {
		req.Params, req.Form = nil, values
	}

	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		res, err := a.HandleAction(ctx, req)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if res.Redirect != nil && res.Body == nil {
			_, _ = fmt.Fprintf(out, "Location: %s\n", res.Redirect.Location())
			return nil
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	})
}

// parsePairs turns key=value arguments into a map.
func parsePairs(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, failure.Newf(failure.CodeValidationFailed, "expected key=value, got %q", arg)
		}
		values[key] = value
	}
	return values, nil
}
