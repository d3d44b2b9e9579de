package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/config"
	"github.com/phyten/funclen/internal/engine"
	engineopts "github.com/phyten/funclen/internal/engine/opts"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/metrics"
	"github.com/phyten/funclen/internal/output"
	"github.com/phyten/funclen/internal/termcolor"
)

// settings is the fully layered and validated configuration of one command.
type settings struct {
	opts         engine.Options
	output       string
	color        termcolor.ColorMode
	fields       output.FieldSelection
	log          config.LogSettings
	server       config.ServerSettings
	configPath   string
	configSource string
	getenv       func(string) string
}

// dotenvGetenv overlays the .env file in dir under the process environment.
// Variables already set in the environment win, as with godotenv.Load.
func dotenvGetenv(dir string, getenv func(string) string) (func(string) string, error) {
	values, err := godotenv.Read(filepath.Join(dir, ".env"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return getenv, nil
		}
		return nil, fmt.Errorf("read .env: %w", err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return values[key]
	}, nil
}

func resolveSettings(cmd *cobra.Command, env *environment, flags *cliFlags, args []string) (*settings, error) {
	getenv, err := dotenvGetenv(env.workdir, env.getenv)
	if err != nil {
		return nil, err
	}

	searchRoot := env.workdir
	if len(args) > 0 {
		searchRoot = absFrom(env.workdir, args[0])
	}
	explicit := flags.configPath
	if explicit == "" {
		explicit = getenv("FUNCLEN_CONFIG")
	}
	if explicit != "" {
		explicit = absFrom(env.workdir, explicit)
	}
	path, source, err := config.Find(searchRoot, explicit, getenv("XDG_CONFIG_HOME"), getenv("HOME"))
	if err != nil {
		return nil, usage(fmt.Errorf("config: %w", err))
	}
	var fileCfg config.Config
	if path != "" {
		if fileCfg, err = config.Load(path); err != nil {
			return nil, usage(err)
		}
	}
	envCfg, err := config.FromEnv(getenv)
	if err != nil {
		return nil, usage(err)
	}
	flagCfg := flags.layers(cmd)

	base := config.EngineSettingsFromOptions(engineopts.Defaults("."))
	es := config.MergeEngine(base, fileCfg.Engine, envCfg.Engine, flagCfg.Engine)
	if len(args) > 0 {
		es.Root = args[0]
	}
	es.Root = absFrom(env.workdir, es.Root)

	s := &settings{configPath: path, configSource: source, getenv: getenv}
	s.opts = engineopts.Defaults(es.Root)
	es.ApplyToOptions(&s.opts)
	if err := engineopts.NormalizeAndValidate(&s.opts); err != nil {
		return nil, usage(err)
	}
	if s.output, err = engineopts.NormalizeOutput(es.Output); err != nil {
		return nil, usage(err)
	}
	color, err := config.CanonicalizeColor(es.Color)
	if err != nil {
		return nil, usage(err)
	}
	if s.color, err = termcolor.ParseMode(color); err != nil {
		return nil, usage(err)
	}
	if s.fields, err = output.ResolveFields(flags.fields); err != nil {
		return nil, usage(err)
	}
	s.log, err = config.NormalizeLog(config.MergeLog(config.DefaultLogSettings(), fileCfg.Log, envCfg.Log, flagCfg.Log))
	if err != nil {
		return nil, usage(err)
	}
	s.server = config.MergeServer(config.DefaultServerSettings(), fileCfg.Server, envCfg.Server)
	return s, nil
}

func absFrom(dir, p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return dir
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(dir, p)
}

func (s *settings) logger(env *environment) (*slog.Logger, error) {
	return logging.New(logging.Config{Level: s.log.Level, Format: s.log.Format, Output: env.stderr})
}

// scanner builds a scanner whose measurements land in the returned collector.
func (s *settings) scanner(logger *slog.Logger) (*engine.Scanner, *metrics.Collector, error) {
	collector, err := metrics.NewCollector()
	if err != nil {
		return nil, nil, err
	}
	sc, err := engine.NewScanner(engine.ScannerConfig{Metrics: collector.Scan, Logger: logger})
	if err != nil {
		_ = collector.Shutdown(context.Background())
		return nil, nil, err
	}
	return sc, collector, nil
}

// logMetrics writes the collector totals at debug level and releases it.
func logMetrics(ctx context.Context, logger *slog.Logger, collector *metrics.Collector) {
	defer func() { _ = collector.Shutdown(context.WithoutCancel(ctx)) }()
	snap, err := collector.Snapshot(ctx)
	if err != nil {
		logging.Warn(ctx, logger, "metrics snapshot", logging.Fields{"error": err.Error()})
		return
	}
	logging.Debug(ctx, logger, "metrics", logging.Fields{
		"files_scanned":      snap.FilesScanned,
		"functions_found":    snap.FunctionsFound,
		"functions_exceeded": snap.FunctionsExceeded,
		"cache_hits":         snap.CacheHits,
		"cache_misses":       snap.CacheMisses,
		"scan_seconds":       snap.ScanSeconds,
	})
}

// tableOptions decides coloring for w. Only terminals get color in auto mode.
func (s *settings) tableOptions(env *environment, w any, truncate int) output.TableOptions {
	tenv := termcolor.EnvFrom(env.environ())
	for _, key := range []string{"NO_COLOR", "CLICOLOR", "CLICOLOR_FORCE", "FORCE_COLOR"} {
		if v := s.getenv(key); v != "" {
			tenv[key] = v
		}
	}
	f, _ := w.(*os.File)
	return output.TableOptions{
		Color:   termcolor.Enabled(s.color, f, tenv),
		Palette: termcolor.NewPalette(tenv),
		MaxCell: truncate,
	}
}
