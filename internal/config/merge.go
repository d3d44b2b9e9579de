package config

import "strings"

// MergeEngine applies layers over base in order; later layers win.
func MergeEngine(base EngineSettings, layers ...EngineConfig) EngineSettings {
	out := base
	for _, layer := range layers {
		out.MaxLines = ResolveInt(out.MaxLines, layer.MaxLines)
		out.Detect = ResolveAndTrim(out.Detect, layer.Detect)
		out.Languages = ResolveStrings(out.Languages, layer.Languages)
		out.Excludes = ResolveStrings(out.Excludes, layer.Excludes)
		out.ExcludeTypical = ResolveBool(out.ExcludeTypical, layer.ExcludeTypical)
		out.PathRegex = ResolveStrings(out.PathRegex, layer.PathRegex)
		out.Jobs = ResolveInt(out.Jobs, layer.Jobs)
		out.MaxFileBytes = ResolveInt(out.MaxFileBytes, layer.MaxFileBytes)
		out.Root = ResolveAndTrim(out.Root, layer.Root)
		out.Output = ResolveAndTrim(out.Output, layer.Output)
		out.Color = ResolveAndTrim(out.Color, layer.Color)
		out.All = ResolveBool(out.All, layer.All)
	}
	if strings.TrimSpace(out.Output) == "" {
		out.Output = "table"
	}
	if strings.TrimSpace(out.Color) == "" {
		out.Color = "auto"
	}
	return out
}

func MergeLog(base LogSettings, layers ...LogConfig) LogSettings {
	out := base
	for _, layer := range layers {
		out.Level = ResolveAndTrim(out.Level, layer.Level)
		out.Format = ResolveAndTrim(out.Format, layer.Format)
	}
	return out
}

func MergeServer(base ServerSettings, layers ...ServerConfig) ServerSettings {
	out := base
	for _, layer := range layers {
		out.Addr = ResolveAndTrim(out.Addr, layer.Addr)
	}
	return out
}

func ResolveString(def string, values ...*string) string {
	result := def
	for _, v := range values {
		if v != nil {
			result = *v
		}
	}
	return result
}

func ResolveInt(def int, values ...*int) int {
	result := def
	for _, v := range values {
		if v != nil {
			result = *v
		}
	}
	return result
}

func ResolveBool(def bool, values ...*bool) bool {
	result := def
	for _, v := range values {
		if v != nil {
			result = *v
		}
	}
	return result
}

// ResolveStrings lets an explicitly empty list clear the inherited value.
func ResolveStrings(def []string, values ...*[]string) []string {
	result := cloneStrings(def)
	for _, v := range values {
		if v != nil {
			if len(*v) == 0 {
				result = []string{}
				continue
			}
			result = cloneStrings(*v)
		}
	}
	return result
}

func ResolveAndTrim(def string, values ...*string) string {
	value := ResolveString(def, values...)
	return strings.TrimSpace(value)
}
