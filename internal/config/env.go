package config

import (
	"errors"
	"math"
	"strings"

	engineopts "github.com/phyten/funclen/internal/engine/opts"
)

// EnvPrefix prefixes every environment variable read by FromEnv.
const EnvPrefix = "FUNCLEN_"

func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	var cfg Config
	var errs []error

	setString := func(target **string, key string) {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			return
		}
		value := raw
		*target = &value
	}
	setList := func(target **[]string, key string) {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			return
		}
		list := engineopts.SplitMulti([]string{raw})
		if len(list) == 0 {
			empty := make([]string, 0)
			*target = &empty
			return
		}
		*target = &list
	}
	setBool := func(target **bool, key string) {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			return
		}
		v, err := engineopts.ParseBool(raw, EnvPrefix+key)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*target = &v
	}
	setInt := func(target **int, key string, min, max int) {
		raw := strings.TrimSpace(getenv(EnvPrefix + key))
		if raw == "" {
			return
		}
		v, err := engineopts.ParseIntInRange(raw, EnvPrefix+key, min, max)
		if err != nil {
			errs = append(errs, err)
			return
		}
		*target = &v
	}

	// max_lines and jobs are range-checked by NormalizeAndValidate.
	setInt(&cfg.Engine.MaxLines, "MAX_LINES", math.MinInt, math.MaxInt)
	setString(&cfg.Engine.Detect, "DETECT")
	setList(&cfg.Engine.Languages, "LANG")
	setList(&cfg.Engine.Excludes, "EXCLUDE")
	setBool(&cfg.Engine.ExcludeTypical, "EXCLUDE_TYPICAL")
	setList(&cfg.Engine.PathRegex, "PATH_REGEX")
	setInt(&cfg.Engine.Jobs, "JOBS", 0, math.MaxInt)
	setInt(&cfg.Engine.MaxFileBytes, "MAX_FILE_BYTES", 0, math.MaxInt)
	setString(&cfg.Engine.Root, "ROOT")
	setString(&cfg.Engine.Output, "OUTPUT")
	setString(&cfg.Engine.Color, "COLOR")
	setBool(&cfg.Engine.All, "ALL")

	setString(&cfg.Log.Level, "LOG_LEVEL")
	setString(&cfg.Log.Format, "LOG_FORMAT")
	setString(&cfg.Server.Addr, "ADDR")

	if len(errs) > 0 {
		return cfg, errors.Join(errs...)
	}
	return cfg, nil
}
