package opts

import (
	"errors"
	"fmt"
	"net/url"
	"runtime"
	"strconv"
	"strings"

	"github.com/phyten/funclen/internal/detect"
	"github.com/phyten/funclen/internal/engine"
	"github.com/phyten/funclen/internal/pattern"
	"github.com/phyten/funclen/internal/scan"
)

const (
	maxJobs = 64
)

// ErrInvalidThreshold is returned for an explicit max_lines below 1.
var ErrInvalidThreshold = errors.New("max_lines must be >= 1")

var (
	trueLiterals  = map[string]struct{}{"1": {}, "true": {}, "yes": {}, "on": {}}
	falseLiterals = map[string]struct{}{"0": {}, "false": {}, "no": {}, "off": {}}
)

// Defaults returns the shared baseline options for both CLI and Web inputs.
func Defaults(root string) engine.Options {
	jobs := runtime.NumCPU()
	if jobs < 1 {
		jobs = 1
	}
	if jobs > maxJobs {
		jobs = maxJobs
	}
	return engine.Options{
		Root:         root,
		MaxLines:     scan.DefaultMaxLines,
		DetectMode:   string(pattern.ModeRegex),
		Jobs:         jobs,
		MaxFileBytes: 0,
	}
}

// ApplyWebQueryToOptions copies recognised values from the query string into the
// provided options. Validation happens separately via NormalizeAndValidate.
func ApplyWebQueryToOptions(def engine.Options, q url.Values) (engine.Options, error) {
	out := def

	if raw, ok := lastLiteralValue(q["max_lines"]); ok {
		n, err := parseInt(raw, "max_lines")
		if err != nil {
			return out, err
		}
		out.MaxLines = n
	}
	if raw, ok := lastLiteralValue(q["detect"]); ok {
		out.DetectMode = raw
	}
	if raw, ok := lastLiteralValue(q["jobs"]); ok {
		n, err := ParseIntInRange(raw, "jobs", 1, maxJobs)
		if err != nil {
			return out, err
		}
		out.Jobs = n
	}
	if raw, ok := lastLiteralValue(q["max_file_bytes"]); ok {
		n, err := parseInt(raw, "max_file_bytes")
		if err != nil {
			return out, err
		}
		out.MaxFileBytes = n
	}
	if raw, ok := lastLiteralValue(q["all"]); ok {
		v, err := ParseBool(raw, "all")
		if err != nil {
			return out, err
		}
		out.All = v
	}
	if raw, ok := lastLiteralValue(q["exclude_typical"]); ok {
		v, err := ParseBool(raw, "exclude_typical")
		if err != nil {
			return out, err
		}
		out.ExcludeTypical = v
	}
	if raw := q["exclude"]; len(raw) > 0 {
		out.Excludes = SplitMulti(raw)
	}
	if raw := q["path_regex"]; len(raw) > 0 {
		out.PathRegex = SplitMulti(raw)
		out.PathRegexCompiled = nil
	}
	if raw := q["lang"]; len(raw) > 0 {
		out.Languages = SplitMulti(raw)
	}

	return out, nil
}

// NormalizeAndValidate ensures the options are canonical and within the allowed ranges.
func NormalizeAndValidate(o *engine.Options) error {
	if o.MaxLines < 1 {
		return ErrInvalidThreshold
	}

	mode, err := pattern.ParseMode(o.DetectMode)
	if err != nil {
		return fmt.Errorf("invalid --detect: %s", o.DetectMode)
	}
	o.DetectMode = string(mode)

	if o.Jobs < 1 || o.Jobs > maxJobs {
		return fmt.Errorf("jobs must be between 1 and %d", maxJobs)
	}

	if strings.TrimSpace(o.Root) == "" {
		o.Root = "."
	}

	if o.MaxFileBytes < 0 {
		return fmt.Errorf("max_file_bytes must be >= 0")
	}

	o.Excludes = trimSlice(o.Excludes)
	o.PathRegex = trimSlice(o.PathRegex)
	o.Languages = trimSlice(o.Languages)
	if len(o.Languages) > 0 {
		o.Languages = detect.CanonicalLangs(o.Languages)
		for _, lang := range o.Languages {
			if !pattern.Supported(lang) {
				return fmt.Errorf("unsupported language: %s (supported: %s)", lang, strings.Join(pattern.Languages(), ", "))
			}
		}
	}

	compiled, err := engine.CompilePathRegex(o.PathRegex)
	if err != nil {
		return fmt.Errorf("invalid --path-regex: %w", err)
	}
	o.PathRegexCompiled = compiled

	return nil
}

// ParseBool converts a string literal into a boolean, accepting multiple synonyms.
func ParseBool(raw, key string) (bool, error) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if _, ok := trueLiterals[v]; ok {
		return true, nil
	}
	if _, ok := falseLiterals[v]; ok {
		return false, nil
	}
	return false, fmt.Errorf("invalid value for %s: %q", key, raw)
}

// ParseIntInRange parses a string into an int and ensures it falls within [min, max].
// If max < min, the upper bound is ignored.
func ParseIntInRange(raw, key string, min, max int) (int, error) {
	n, err := parseInt(raw, key)
	if err != nil {
		return 0, err
	}
	if n < min {
		if max >= min {
			return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
		}
		return 0, fmt.Errorf("%s must be >= %d", key, min)
	}
	if max >= min && n > max {
		return 0, fmt.Errorf("%s must be between %d and %d", key, min, max)
	}
	return n, nil
}

// NormalizeOutput validates and lower-cases the CLI output format value.
func NormalizeOutput(value string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "", "table":
		return "table", nil
	case "tsv", "json", "ndjson", "csv":
		return v, nil
	case "markdown", "md":
		return "markdown", nil
	}
	return "", fmt.Errorf("invalid --output: %s", value)
}

// SplitMulti turns repeated query parameters (and comma-separated values) into a flat slice.
func SplitMulti(vals []string) []string {
	var out []string
	for _, raw := range vals {
		for _, piece := range strings.Split(raw, ",") {
			part := strings.TrimSpace(piece)
			if part == "" {
				continue
			}
			out = append(out, part)
		}
	}
	return out
}

func parseInt(raw, key string) (int, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return 0, fmt.Errorf("invalid integer value for %s: %q", key, raw)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer value for %s: %q", key, raw)
	}
	return n, nil
}

func lastLiteralValue(vals []string) (string, bool) {
	flat := SplitMulti(vals)
	if len(flat) == 0 {
		return "", false
	}
	return flat[len(flat)-1], true
}

func trimSlice(values []string) []string {
	if len(values) == 0 {
		return values
	}
	out := values[:0]
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}
