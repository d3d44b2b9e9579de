package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	engineopts "github.com/phyten/funclen/internal/engine/opts"
)

// engineKeyMap also accepts the editor setting names (maxFunctionLines,
// excludeFolders), optionally under the custom-linter prefix.
var engineKeyMap = map[string]string{
	"max_lines":                      "max_lines",
	"maxlines":                       "max_lines",
	"max_function_lines":             "max_lines",
	"maxfunctionlines":               "max_lines",
	"custom_linter.maxfunctionlines": "max_lines",
	"detect":                         "detect",
	"detect_mode":                    "detect",
	"languages":                      "languages",
	"language":                       "languages",
	"lang":                           "languages",
	"exclude":                        "exclude",
	"excludes":                       "exclude",
	"exclude_folders":                "exclude",
	"excludefolders":                 "exclude",
	"custom_linter.excludefolders":   "exclude",
	"exclude_typical":                "exclude_typical",
	"path_regex":                     "path_regex",
	"path_regexes":                   "path_regex",
	"jobs":                           "jobs",
	"max_file_bytes":                 "max_file_bytes",
	"max_bytes":                      "max_file_bytes",
	"root":                           "root",
	"output":                         "output",
	"color":                          "color",
	"all":                            "all",
}

var logKeyMap = map[string]string{
	"level":      "level",
	"log_level":  "level",
	"format":     "format",
	"log_format": "format",
}

var serverKeyMap = map[string]string{
	"addr":        "addr",
	"listen":      "addr",
	"server_addr": "addr",
}

func Load(path string) (Config, error) {
	var cfg Config
	path = strings.TrimSpace(path)
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	ext := strings.ToLower(filepath.Ext(path))
	var raw map[string]any
	switch ext {
	case ".yaml", ".yml":
		if decodeErr := yaml.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	case ".toml":
		if decodeErr := toml.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	case ".json":
		if decodeErr := json.Unmarshal(data, &raw); decodeErr != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, decodeErr)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if raw == nil {
		return cfg, nil
	}
	decoded, err := decodeConfigMap(raw)
	if err != nil {
		return cfg, fmt.Errorf("%s: %w", path, err)
	}
	return decoded, nil
}

func decodeConfigMap(raw map[string]any) (Config, error) {
	var cfg Config
	engineSection := make(map[string]any)
	logSection := make(map[string]any)
	serverSection := make(map[string]any)

	sections := []struct {
		name    string
		dst     map[string]any
		allowed map[string]string
	}{
		{"engine", engineSection, engineKeyMap},
		{"log", logSection, logKeyMap},
		{"server", serverSection, serverKeyMap},
	}
	for _, sec := range sections {
		block, ok := raw[sec.name]
		if !ok {
			continue
		}
		sub, err := toStringKeyMap(block)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", sec.name, err)
		}
		if err := fillSection(sec.dst, sub, sec.allowed, sec.name); err != nil {
			return cfg, err
		}
	}

	for key, value := range raw {
		norm := normalizeKey(key)
		switch norm {
		case "engine", "log", "server":
			continue
		default:
			if canonical, ok := engineKeyMap[norm]; ok {
				engineSection[canonical] = value
				continue
			}
			if canonical, ok := logKeyMap[norm]; ok && strings.HasPrefix(norm, "log_") {
				logSection[canonical] = value
				continue
			}
			if canonical, ok := serverKeyMap[norm]; ok && norm != "addr" {
				serverSection[canonical] = value
				continue
			}
			return cfg, fmt.Errorf("unknown config key: %s", key)
		}
	}

	if err := assignEngine(engineSection, &cfg.Engine); err != nil {
		return cfg, fmt.Errorf("engine: %w", err)
	}
	for key, value := range logSection {
		str, err := expectString(value, key)
		if err != nil {
			return cfg, fmt.Errorf("log: %w", err)
		}
		trimmed := strings.TrimSpace(str)
		switch key {
		case "level":
			cfg.Log.Level = &trimmed
		case "format":
			cfg.Log.Format = &trimmed
		}
	}
	if value, ok := serverSection["addr"]; ok {
		str, err := expectString(value, "addr")
		if err != nil {
			return cfg, fmt.Errorf("server: %w", err)
		}
		trimmed := strings.TrimSpace(str)
		cfg.Server.Addr = &trimmed
	}
	return cfg, nil
}

func fillSection(dst, src map[string]any, allowed map[string]string, section string) error {
	for key, value := range src {
		canonical, ok := allowed[normalizeKey(key)]
		if !ok {
			return fmt.Errorf("unknown %s key: %s", section, key)
		}
		dst[canonical] = value
	}
	return nil
}

func assignEngine(section map[string]any, dst *EngineConfig) error {
	for key, value := range section {
		switch key {
		case "max_lines", "jobs", "max_file_bytes":
			n, err := expectInt(value, key)
			if err != nil {
				return err
			}
			switch key {
			case "max_lines":
				dst.MaxLines = &n
			case "jobs":
				dst.Jobs = &n
			default:
				dst.MaxFileBytes = &n
			}
		case "languages", "exclude", "path_regex":
			list, err := expectStringList(value, key)
			if err != nil {
				return err
			}
			switch key {
			case "languages":
				dst.Languages = &list
			case "exclude":
				dst.Excludes = &list
			default:
				dst.PathRegex = &list
			}
		case "exclude_typical", "all":
			b, err := expectBool(value, key)
			if err != nil {
				return err
			}
			if key == "all" {
				dst.All = &b
			} else {
				dst.ExcludeTypical = &b
			}
		case "detect", "root", "output", "color":
			str, err := expectString(value, key)
			if err != nil {
				return err
			}
			trimmed := strings.TrimSpace(str)
			switch key {
			case "detect":
				dst.Detect = &trimmed
			case "root":
				dst.Root = &trimmed
			case "output":
				dst.Output = &trimmed
			default:
				dst.Color = &trimmed
			}
		default:
			return fmt.Errorf("unknown key: %s", key)
		}
	}
	return nil
}

func expectString(value any, field string) (string, error) {
	if value == nil {
		return "", fmt.Errorf("%s cannot be null", field)
	}
	if s, ok := value.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("expected string for %s, got %T", field, value)
}

func expectBool(value any, field string) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return engineopts.ParseBool(v, field)
	default:
		return false, fmt.Errorf("expected bool for %s, got %T", field, value)
	}
}

func expectInt(value any, field string) (int, error) {
	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("expected integer for %s, got %v", field, value)
		}
		return int(v), nil
	case json.Number:
		n, err := strconv.Atoi(v.String())
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %v", field, value)
		}
		return n, nil
	case string:
		trimmed := strings.TrimSpace(v)
		n, err := strconv.Atoi(trimmed)
		if err != nil {
			return 0, fmt.Errorf("invalid integer value for %s: %q", field, v)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("expected integer for %s, got %T", field, value)
	}
}

func expectStringList(value any, field string) ([]string, error) {
	switch v := value.(type) {
	case string:
		return engineopts.SplitMulti([]string{v}), nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, err := expectString(item, field)
			if err != nil {
				return nil, err
			}
			out = append(out, str)
		}
		return normalizeList(out), nil
	case []string:
		return normalizeList(v), nil
	default:
		return nil, fmt.Errorf("expected string or list for %s, got %T", field, value)
	}
}

func normalizeList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			continue
		}
		out = append(out, trimmed)
	}
	return out
}

func toStringKeyMap(v any) (map[string]any, error) {
	switch typed := v.(type) {
	case map[string]any:
		return typed, nil
	case map[any]any:
		out := make(map[string]any, len(typed))
		for k, value := range typed {
			key, ok := k.(string)
			if !ok {
				return nil, fmt.Errorf("non-string key: %v", k)
			}
			out[key] = value
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected map, got %T", v)
	}
}

func normalizeKey(key string) string {
	norm := strings.ToLower(strings.TrimSpace(key))
	norm = strings.ReplaceAll(norm, "-", "_")
	return norm
}
