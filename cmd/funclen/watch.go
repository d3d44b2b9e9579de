package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/scan"
)

func newWatchCmd(env *environment, flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [path]",
		Short: "Rescan files as they change and print updated diagnostics",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, env, flags, args)
		},
	}
}

func runWatch(cmd *cobra.Command, env *environment, flags *cliFlags, args []string) error {
	s, err := resolveSettings(cmd, env, flags, args)
	if err != nil {
		return err
	}
	logger, err := s.logger(env)
	if err != nil {
		return usage(err)
	}
	scanner, collector, err := s.scanner(logger)
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	defer logMetrics(ctx, logger, collector)
	store := diagstore.New()
	changes, cancel := store.Subscribe()
	defer cancel()

	ws, res, err := startWorkspace(ctx, scanner, store, s.opts, logger, true, reloadable(cmd, env, flags, args, s))
	if err != nil {
		return err
	}
	// Drain the initial pass; the summary below covers it.
	for drained := false; !drained; {
		select {
		case <-changes:
		default:
			drained = true
		}
	}
	for _, e := range store.Snapshot() {
		printEntry(env.stdout, e.File, e)
	}
	writeSummary(env.stderr, res)
	fmt.Fprintf(env.stderr, "watching %s (%d files)\n", ws.host.Root(), store.Len())

	done := make(chan error, 1)
	go func() { done <- ws.run(ctx) }()
	for {
		select {
		case err := <-done:
			return err
		case c := <-changes:
			printChange(env.stdout, c)
		}
	}
}

func printEntry(w io.Writer, file string, e diagstore.Entry) {
	for _, f := range e.Findings {
		fmt.Fprintf(w, "%s:%d: %s\n", file, f.Span.StartLine, scan.Message(f))
	}
}

func printChange(w io.Writer, c diagstore.Change) {
	switch c.Kind {
	case diagstore.ChangeSet:
		if len(c.Findings) == 0 {
			fmt.Fprintf(w, "%s: ok\n", c.File)
			return
		}
		printEntry(w, c.File, diagstore.Entry{File: c.File, Findings: c.Findings})
	case diagstore.ChangeDelete:
		fmt.Fprintf(w, "%s: removed\n", c.File)
	case diagstore.ChangeClear:
		fmt.Fprintln(w, "diagnostics cleared")
	}
}
