// Package cli implements the validb command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/sbenjam1n/validb/internal/builtin"
	"github.com/sbenjam1n/validb/internal/config"
	"github.com/sbenjam1n/validb/internal/errs"
	"github.com/sbenjam1n/validb/internal/logger"
	"github.com/sbenjam1n/validb/internal/registry"
)

// Process exit codes.
const (
	ExitOK         = 0
	ExitFailure    = 1
	ExitConfig     = 2
	ExitDataAccess = 3
	ExitDetected   = 10
)

// ExitError carries a process exit code. A nil Err exits silently.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	var ee *ExitError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &ee):
		return ee.Code
	case errs.IsConfig(err):
		return ExitConfig
	case errs.IsDataAccess(err):
		return ExitDataAccess
	default:
		return ExitFailure
	}
}

type app struct {
	registry *registry.Registry
	settings *config.Settings
	logger   hclog.Logger
	out      io.Writer
	errOut   io.Writer
}

// NewRootCmd builds the command tree around reg.
func NewRootCmd(reg *registry.Registry) *cobra.Command {
	a := &app{registry: reg}

	root := &cobra.Command{
		Use:           "validb",
		Short:         "Find anomalies in databases with SQL rules",
		SilenceUsage:  true,
		SilenceErrors: true,
		Long: `validb runs the SQL rules of a rules file against their data sources.
Every row a rule returns is a detection.

Exit status is 0 when nothing is detected, 10 when something is, 2 for
configuration errors, 3 for data access errors and 1 otherwise.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			settings, err := config.Load()
			if err != nil {
				return errs.NewConfigError("environment", err)
			}
			a.settings = settings
			a.out = cmd.OutOrStdout()
			a.errOut = cmd.ErrOrStderr()
			a.logger = logger.NewWithOutput(settings.LogLevel, "validb", a.errOut)
			return nil
		},
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.PersistentFlags().StringP("rules", "r", "", "rules file (default $VALIDB_RULES or validb.yml)")

	root.AddCommand(newRunCmd(a))
	root.AddCommand(newRulesCmd(a))
	root.AddCommand(newQueueCmd(a))
	root.AddCommand(newVersionCmd())
	return root
}

// Execute runs the command line with the built-in classes and returns the exit code.
func Execute() int {
	return run(builtin.New(), os.Args[1:], os.Stdout, os.Stderr)
}

func run(reg *registry.Registry, args []string, out, errOut io.Writer) int {
	root := NewRootCmd(reg)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	code := ExitCode(err)
	var ee *ExitError
	if err != nil && !(errors.As(err, &ee) && ee.Err == nil) {
		fmt.Fprintf(errOut, "Error: %v\n", err)
	}
	return code
}

func (a *app) rulesPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("rules"); p != "" {
		return p
	}
	return a.settings.RulesPath
}

func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path := a.rulesPath(cmd)
	doc, err := config.LoadDocument(path)
	if err != nil {
		return nil, err
	}
	a.logger.Debug("rules file loaded", "path", path)
	return config.Build(doc, a.registry, a.logger)
}
