package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/output"
	"github.com/phyten/funclen/internal/progress"
)

func newScanCmd(env *environment, flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "scan [path]",
		Short: "Scan a directory or file (default command)",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScan(cmd, env, flags, args)
		},
	}
}

func runScan(cmd *cobra.Command, env *environment, flags *cliFlags, args []string) error {
	s, err := resolveSettings(cmd, env, flags, args)
	if err != nil {
		return err
	}
	logger, err := s.logger(env)
	if err != nil {
		return usage(err)
	}
	ctx := cmd.Context()
	if s.configPath != "" {
		logging.Debug(ctx, logger, "config loaded", logging.Fields{"path": s.configPath, "source": s.configSource})
	}
	scanner, collector, err := s.scanner(logger)
	if err != nil {
		return err
	}
	defer logMetrics(ctx, logger, collector)
	if progress.ShouldShowProgress(flags.progress, flags.noProgress) {
		s.opts.ProgressObserver = progress.NewAutoObserver(env.stderr)
	}

	res, err := scanner.Run(ctx, s.opts)
	if err != nil {
		return err
	}
	if err := output.Write(env.stdout, s.output, res, s.fields, s.tableOptions(env, env.stdout, flags.truncate)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if s.output == "table" {
		writeSummary(env.stderr, res)
	}
	if res.Exceeded > 0 {
		return errExceeded
	}
	return nil
}

func writeSummary(w io.Writer, res *engine.Result) {
	fmt.Fprintf(w, "%d of %d functions exceed %d lines (%d files, %d ms)\n",
		res.Exceeded, res.Functions, res.MaxLines, res.Files, res.ElapsedMS)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "error: %s: %s: %s\n", e.File, e.Stage, e.Message)
	}
}
