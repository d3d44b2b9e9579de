// Package config loads funclen settings from files and the environment and
// layers them over the built-in defaults.
package config

import (
	"strings"

	"github.com/phyten/funclen/internal/engine"
)

type EngineConfig struct {
	MaxLines       *int      `yaml:"max_lines" toml:"max_lines" json:"max_lines"`
	Detect         *string   `yaml:"detect" toml:"detect" json:"detect"`
	Languages      *[]string `yaml:"languages" toml:"languages" json:"languages"`
	Excludes       *[]string `yaml:"exclude" toml:"exclude" json:"exclude"`
	ExcludeTypical *bool     `yaml:"exclude_typical" toml:"exclude_typical" json:"exclude_typical"`
	PathRegex      *[]string `yaml:"path_regex" toml:"path_regex" json:"path_regex"`
	Jobs           *int      `yaml:"jobs" toml:"jobs" json:"jobs"`
	MaxFileBytes   *int      `yaml:"max_file_bytes" toml:"max_file_bytes" json:"max_file_bytes"`
	Root           *string   `yaml:"root" toml:"root" json:"root"`
	Output         *string   `yaml:"output" toml:"output" json:"output"`
	Color          *string   `yaml:"color" toml:"color" json:"color"`
	All            *bool     `yaml:"all" toml:"all" json:"all"`
}

type LogConfig struct {
	Level  *string `yaml:"level" toml:"level" json:"level"`
	Format *string `yaml:"format" toml:"format" json:"format"`
}

type ServerConfig struct {
	Addr *string `yaml:"addr" toml:"addr" json:"addr"`
}

type Config struct {
	Engine EngineConfig `yaml:"engine" toml:"engine" json:"engine"`
	Log    LogConfig    `yaml:"log" toml:"log" json:"log"`
	Server ServerConfig `yaml:"server" toml:"server" json:"server"`
}

type EngineSettings struct {
	MaxLines       int
	Detect         string
	Languages      []string
	Excludes       []string
	ExcludeTypical bool
	PathRegex      []string
	Jobs           int
	MaxFileBytes   int
	Root           string
	Output         string
	Color          string
	All            bool
}

type LogSettings struct {
	Level  string
	Format string
}

type ServerSettings struct {
	Addr string
}

func EngineSettingsFromOptions(opts engine.Options) EngineSettings {
	return EngineSettings{
		MaxLines:       opts.MaxLines,
		Detect:         opts.DetectMode,
		Languages:      cloneStrings(opts.Languages),
		Excludes:       cloneStrings(opts.Excludes),
		ExcludeTypical: opts.ExcludeTypical,
		PathRegex:      cloneStrings(opts.PathRegex),
		Jobs:           opts.Jobs,
		MaxFileBytes:   opts.MaxFileBytes,
		Root:           opts.Root,
		Output:         "table",
		Color:          "auto",
		All:            opts.All,
	}
}

func (s EngineSettings) ApplyToOptions(opts *engine.Options) {
	if opts == nil {
		return
	}
	opts.MaxLines = s.MaxLines
	opts.DetectMode = s.Detect
	opts.Languages = cloneStrings(s.Languages)
	opts.Excludes = cloneStrings(s.Excludes)
	opts.ExcludeTypical = s.ExcludeTypical
	opts.PathRegex = cloneStrings(s.PathRegex)
	opts.PathRegexCompiled = nil
	opts.Jobs = s.Jobs
	opts.MaxFileBytes = s.MaxFileBytes
	if trimmed := strings.TrimSpace(s.Root); trimmed != "" {
		opts.Root = trimmed
	}
	opts.All = s.All
}

func DefaultLogSettings() LogSettings {
	return LogSettings{Level: "info", Format: "text"}
}

func DefaultServerSettings() ServerSettings {
	return ServerSettings{Addr: "127.0.0.1:8080"}
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
