package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/felixgeelhaar/forkadmin/internal/adapters/logging"
	"github.com/felixgeelhaar/forkadmin/internal/app"
	"github.com/felixgeelhaar/forkadmin/internal/config"
	"github.com/felixgeelhaar/forkadmin/internal/domain/failure"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "forkadmin",
	Short: "Backend admin core for Fork CMS modules",
	Long: `Forkadmin resolves and runs backend module actions and cronjobs.

Every invocation passes through the same pipeline:
  Resolve module → Load config → Execute → Record

Modules shipped with forkadmin:
  core       ping cronjob, status index
  analytics  Google Analytics linking wizard and report fetching`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: $FORKADMIN_CONFIG or forkadmin.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	_ = rootCmd.RegisterFlagCompletionFunc("config", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"yaml", "yml", "toml", "ini"}, cobra.ShellCompDirectiveFilterFileExt
	})

	rootCmd.AddCommand(versionCmd)
}

// openApp builds the application for a command. Tests replace it.
var openApp = func(ctx context.Context, stderr io.Writer) (*app.App, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.Log.JSON, stderr)
	if err != nil {
		return nil, failure.ErrInvalidConfiguration.WithContext("log.level").WithUnderlying(err)
	}
	return app.New(ctx, app.Options{Config: cfg, Logger: logger})
}

// withApp opens the application, runs fn and closes it.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := openApp(ctx, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	err = fn(ctx, a)
	if cerr := a.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

// formatError returns a user-friendly error message.
// With verbose=false: shows the message, field errors and suggestion.
// With verbose=true: also shows the code and the underlying technical error.
func formatError(err error) string {
	var fErr *failure.Error
	if !errors.As(err, &fErr) {
		return err.Error()
	}
	msg := fErr.Message
	if verbose {
		msg = fmt.Sprintf("[%s] %s", fErr.Code, msg)
	}
	if fErr.Context != "" {
		msg += fmt.Sprintf(" (at %s)", fErr.Context)
	}
	var list *failure.ErrorList
	if errors.As(err, &list) {
		var b strings.Builder
		for _, f := range list.Fields() {
			fmt.Fprintf(&b, "\n  - %s: %s", f.Field, f.Message)
		}
		msg += b.String()
	}
	if fErr.Suggestion != "" {
		msg += fmt.Sprintf("\n\nSuggestion: %s", fErr.Suggestion)
	}
	if verbose && fErr.Underlying != nil {
		msg += fmt.Sprintf("\n\nTechnical details: %v", fErr.Underlying)
	}
	return msg
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
