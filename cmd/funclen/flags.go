package main

import (
	"github.com/spf13/cobra"

	"github.com/phyten/funclen/internal/config"
)

// cliFlags collects every flag value. Only flags the user actually set become
// part of the top configuration layer.
type cliFlags struct {
	configPath string
	logLevel   string
	logFormat  string

	maxLines       int
	excludes       []string
	langs          []string
	pathRegex      []string
	detect         string
	jobs           int
	maxFileBytes   int
	excludeTypical bool
	all            bool

	output     string
	color      string
	fields     string
	truncate   int
	progress   bool
	noProgress bool
}

func (f *cliFlags) bindGlobal(cmd *cobra.Command) {
	pf := cmd.PersistentFlags()
	pf.StringVar(&f.configPath, "config", "", "config file (default: search .funclen.* upward, then XDG and HOME)")
	pf.StringVar(&f.logLevel, "log-level", "", "log level: debug|info|warn|error")
	pf.StringVar(&f.logFormat, "log-format", "", "log format: text|json")

	pf.IntVarP(&f.maxLines, "max-lines", "n", 40, "maximum lines per function")
	pf.StringSliceVarP(&f.excludes, "exclude", "x", nil, "folders to skip (repeatable, comma separated)")
	pf.StringSliceVarP(&f.langs, "lang", "l", nil, "only scan these languages")
	pf.StringSliceVar(&f.pathRegex, "path-regex", nil, "only scan files whose path matches one of these expressions")
	pf.StringVar(&f.detect, "detect", "regex", "matching strategy: regex|balanced")
	pf.IntVarP(&f.jobs, "jobs", "j", 0, "parallel workers (default: CPU count, max 64)")
	pf.IntVar(&f.maxFileBytes, "max-file-bytes", 0, "skip files larger than this many bytes (0 = unlimited)")
	pf.BoolVar(&f.excludeTypical, "exclude-typical", false, "also skip vendor, node_modules, build output and similar folders")
	pf.BoolVarP(&f.all, "all", "a", false, "list functions within the limit too")

	pf.StringVarP(&f.output, "output", "o", "table", "output format: table|tsv|json|ndjson|csv|markdown")
	pf.StringVar(&f.color, "color", "auto", "color: auto|always|never")
	pf.StringVar(&f.fields, "fields", "", "columns for table/tsv/csv/markdown (location,file,line,col,end_line,lang,lines,max,status,message)")
	pf.IntVar(&f.truncate, "truncate", 0, "cut table cells to this many columns (0 = unlimited)")
	pf.BoolVar(&f.progress, "progress", false, "show progress even when stderr is not a terminal")
	pf.BoolVar(&f.noProgress, "no-progress", false, "never show progress")
}

// layers returns the flag values the user set, as configuration layers.
func (f *cliFlags) layers(cmd *cobra.Command) config.Config {
	var cfg config.Config
	changed := cmd.Flags().Changed
	setInt := func(name string, v int, dst **int) {
		if changed(name) {
			*dst = &v
		}
	}
	setString := func(name, v string, dst **string) {
		if changed(name) {
			*dst = &v
		}
	}
	setBool := func(name string, v bool, dst **bool) {
		if changed(name) {
			*dst = &v
		}
	}
	setList := func(name string, v []string, dst **[]string) {
		if changed(name) {
			list := append([]string{}, v...)
			*dst = &list
		}
	}

	e := &cfg.Engine
	setInt("max-lines", f.maxLines, &e.MaxLines)
	setList("exclude", f.excludes, &e.Excludes)
	setList("lang", f.langs, &e.Languages)
	setList("path-regex", f.pathRegex, &e.PathRegex)
	setString("detect", f.detect, &e.Detect)
	setInt("jobs", f.jobs, &e.Jobs)
	setInt("max-file-bytes", f.maxFileBytes, &e.MaxFileBytes)
	setBool("exclude-typical", f.excludeTypical, &e.ExcludeTypical)
	setBool("all", f.all, &e.All)
	setString("output", f.output, &e.Output)
	setString("color", f.color, &e.Color)
	setString("log-level", f.logLevel, &cfg.Log.Level)
	setString("log-format", f.logFormat, &cfg.Log.Format)
	return cfg
}
