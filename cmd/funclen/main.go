// Command funclen reports functions whose line count exceeds a limit.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// errExceeded makes the process exit with code 1 without printing anything.
var errExceeded = errors.New("functions exceed the line limit")

// usageError marks errors caused by invalid flags, arguments or settings.
type usageError struct{ err error }

func (e usageError) Error() string { return e.err.Error() }
func (e usageError) Unwrap() error { return e.err }

func usage(err error) error {
	if err == nil {
		return nil
	}
	return usageError{err: err}
}

// environment holds everything a command reads from the process so tests can
// substitute it.
type environment struct {
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	getenv  func(string) string
	environ func() []string
	workdir string
}

func processEnvironment() *environment {
	wd, err := os.Getwd()
	if err != nil {
		wd = "."
	}
	return &environment{
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		getenv:  os.Getenv,
		environ: os.Environ,
		workdir: wd,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], processEnvironment())
	stop()
	os.Exit(code)
}

// execute runs the CLI and maps the outcome to an exit code: 0 when clean,
// 1 when a function exceeds the limit, 2 for usage and runtime errors.
func execute(ctx context.Context, args []string, env *environment) int {
	root := newRootCmd(env)
	root.SetArgs(args)
	root.SetIn(env.stdin)
	root.SetOut(env.stdout)
	root.SetErr(env.stderr)
	err := root.ExecuteContext(ctx)
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errExceeded):
		return 1
	default:
		fmt.Fprintf(env.stderr, "funclen: %v\n", err)
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintln(env.stderr, "Run 'funclen --help' for usage.")
		}
		return 2
	}
}

func newRootCmd(env *environment) *cobra.Command {
	flags := &cliFlags{}
	root := &cobra.Command{
		Use:   "funclen [path]",
		Short: "Report functions longer than a line limit",
		Long: `funclen scans C, C++, Dart, Python, Java and Kotlin sources and reports
every function whose line count exceeds the configured maximum.

Settings are read from .funclen.{yaml,yml,toml,json}, FUNCLEN_* environment
variables and flags, later sources winning.`,
		Args:          usageArgs(cobra.MaximumNArgs(1)),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, env, flags, args)
		},
	}
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usage(err) })
	flags.bindGlobal(root)

	root.AddCommand(
		newScanCmd(env, flags),
		newCheckCmd(env, flags),
		newLangsCmd(env),
		newServeCmd(env, flags),
		newWatchCmd(env, flags),
	)
	return root
}

func usageArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		return usage(validate(cmd, args))
	}
}
