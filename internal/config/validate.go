package config

import (
	"fmt"
	"strings"

	"github.com/phyten/funclen/internal/logging"
)

// CanonicalizeColor validates the color mode. Empty means auto.
func CanonicalizeColor(raw string) (string, error) {
	mode := strings.ToLower(strings.TrimSpace(raw))
	switch mode {
	case "", "auto":
		return "auto", nil
	case "always", "never":
		return mode, nil
	default:
		return "", fmt.Errorf("invalid color: %s", raw)
	}
}

func NormalizeLog(values LogSettings) (LogSettings, error) {
	values.Level = strings.ToLower(strings.TrimSpace(values.Level))
	if values.Level == "" {
		values.Level = "info"
	}
	if _, err := logging.ParseLevel(values.Level); err != nil {
		return values, err
	}
	values.Format = strings.ToLower(strings.TrimSpace(values.Format))
	switch values.Format {
	case "":
		values.Format = "text"
	case "text", "json":
	default:
		return values, fmt.Errorf("invalid log format: %s", values.Format)
	}
	return values, nil
}
