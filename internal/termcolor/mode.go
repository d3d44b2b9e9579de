// Package termcolor decides whether to color terminal output and renders the
// styles used by the table view.
package termcolor

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

type ColorMode int

const (
	ModeAuto ColorMode = iota
	ModeAlways
	ModeNever
)

func (m ColorMode) String() string {
	switch m {
	case ModeAlways:
		return "always"
	case ModeNever:
		return "never"
	default:
		return "auto"
	}
}

func ParseMode(v string) (ColorMode, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "auto":
		return ModeAuto, nil
	case "always":
		return ModeAlways, nil
	case "never":
		return ModeNever, nil
	default:
		return ModeAuto, fmt.Errorf("unknown color mode: %s", v)
	}
}

// Env is a snapshot of the environment variables that affect coloring.
type Env map[string]string

// EnvFrom builds an Env from KEY=VALUE pairs such as os.Environ().
func EnvFrom(pairs []string) Env {
	env := make(Env, len(pairs))
	for _, kv := range pairs {
		k, v, _ := strings.Cut(kv, "=")
		if k != "" {
			env[k] = v
		}
	}
	return env
}

func (e Env) get(key string) string {
	return strings.TrimSpace(e[key])
}

// Enabled resolves mode to a yes/no decision for out.
//
// For ModeAuto the first matching rule wins:
//  1. TERM=dumb or a non-empty NO_COLOR disables color.
//  2. CLICOLOR=0 disables color.
//  3. A non-zero CLICOLOR_FORCE or FORCE_COLOR enables color.
//  4. Otherwise color follows whether out is a terminal.
func Enabled(mode ColorMode, out *os.File, env Env) bool {
	switch mode {
	case ModeAlways:
		return true
	case ModeNever:
		return false
	}
	if strings.EqualFold(env.get("TERM"), "dumb") || env.get("NO_COLOR") != "" {
		return false
	}
	if env.get("CLICOLOR") == "0" {
		return false
	}
	for _, key := range []string{"CLICOLOR_FORCE", "FORCE_COLOR"} {
		if v := env.get(key); v != "" && v != "0" {
			return true
		}
	}
	return out != nil && term.IsTerminal(int(out.Fd()))
}

type Profile int

const (
	ProfileBasic8 Profile = iota
	ProfileANSI256
	ProfileTrueColor
)

// DetectProfile reads COLORTERM and TERM.
func DetectProfile(env Env) Profile {
	ct := strings.ToLower(env.get("COLORTERM"))
	if strings.Contains(ct, "truecolor") || strings.Contains(ct, "24bit") {
		return ProfileTrueColor
	}
	if strings.Contains(strings.ToLower(env.get("TERM")), "256color") {
		return ProfileANSI256
	}
	return ProfileBasic8
}

// LightBackground guesses the background from COLORFGBG ("fg;bg", bg 7 or
// higher is light) and falls back to dark.
func LightBackground(env Env) bool {
	raw := env.get("COLORFGBG")
	if raw == "" {
		return false
	}
	parts := strings.Split(raw, ";")
	var bg int
	if _, err := fmt.Sscanf(strings.TrimSpace(parts[len(parts)-1]), "%d", &bg); err != nil {
		return false
	}
	return bg >= 7 && bg != 8
}
