package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/detect"
	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/output"
	"github.com/phyten/funclen/internal/pattern"
	"github.com/phyten/funclen/internal/scan"
)

func newCheckCmd(env *environment, flags *cliFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "check [file|-]",
		Short: "Check one file or standard input",
		Long: `check measures a single document. The language comes from --lang or is
detected from the file name and shebang; standard input needs --lang.
Exclusions do not apply.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, env, flags, args)
		},
	}
}

func runCheck(cmd *cobra.Command, env *environment, flags *cliFlags, args []string) error {
	name := "-"
	if len(args) > 0 {
		name = args[0]
	}
	// The workspace root does not matter here; keep it at the working directory.
	s, err := resolveSettings(cmd, env, flags, nil)
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
	defer logMetrics(cmd.Context(), logger, collector)

	var data []byte
	if name == "-" {
		data, err = io.ReadAll(env.stdin)
	} else {
		data, err = os.ReadFile(absFrom(env.workdir, name))
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}

	lang := ""
	if len(s.opts.Languages) > 0 {
		lang = s.opts.Languages[0]
	} else if name != "-" {
		lang = detect.FromPathAndContent(name, data).Name
	}
	if lang == "" {
		return usage(fmt.Errorf("cannot tell the language of %s; pass --lang", name))
	}

	mode, _ := pattern.ParseMode(s.opts.DetectMode)
	findings := scanner.ScanText(cmd.Context(), mode, lang, string(data), s.opts.MaxLines)
	res := checkResult(filepath.ToSlash(name), s.opts.MaxLines, findings, s.opts.All)
	if err := output.Write(env.stdout, s.output, res, s.fields, s.tableOptions(env, env.stdout, flags.truncate)); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	if res.Exceeded > 0 {
		return errExceeded
	}
	return nil
}

func checkResult(file string, maxLines int, findings []model.Finding, all bool) *engine.Result {
	res := &engine.Result{Root: ".", MaxLines: maxLines, Files: 1, Functions: len(findings), Items: []engine.Item{}}
	for _, f := range findings {
		if f.Exceeded {
			res.Exceeded++
		}
		if !f.Exceeded && !all {
			continue
		}
		it := engine.Item{
			File:      file,
			Line:      f.Span.StartLine,
			Lang:      f.Lang,
			Span:      f.Span,
			LineCount: f.LineCount,
			MaxLines:  f.MaxLines,
			Exceeded:  f.Exceeded,
		}
		if f.Exceeded {
			it.Message = scan.Message(f)
		}
		res.Items = append(res.Items, it)
	}
	res.Total = len(res.Items)
	return res
}
