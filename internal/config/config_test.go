package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/phyten/funclen/internal/engine"
)

func strPtr(s string) *string { return &s }

func intPtr(n int) *int { return &n }

func boolPtr(v bool) *bool { return &v }

func stringsPtr(values ...string) *[]string {
	copied := append([]string(nil), values...)
	return &copied
}

func TestMergeEnginePrecedence(t *testing.T) {
	base := EngineSettings{MaxLines: 40, Detect: "regex", Jobs: 2, Excludes: []string{"base"}}

	fileCfg := EngineConfig{MaxLines: intPtr(30), Detect: strPtr("balanced"), ExcludeTypical: boolPtr(true), Excludes: stringsPtr("file")}
	envCfg := EngineConfig{MaxLines: intPtr(25), Excludes: stringsPtr("env"), All: boolPtr(true)}
	flagCfg := EngineConfig{MaxLines: intPtr(20), Excludes: stringsPtr("flag"), Jobs: intPtr(8), Detect: strPtr(" regex ")}

	merged := MergeEngine(base, fileCfg, envCfg, flagCfg)

	if merged.MaxLines != 20 {
		t.Fatalf("expected MaxLines 20, got %d", merged.MaxLines)
	}
	if merged.Detect != "regex" {
		t.Fatalf("expected Detect regex, got %q", merged.Detect)
	}
	if !reflect.DeepEqual(merged.Excludes, []string{"flag"}) {
		t.Fatalf("unexpected excludes: %v", merged.Excludes)
	}
	if !merged.ExcludeTypical || !merged.All {
		t.Fatal("expected ExcludeTypical and All to survive from lower layers")
	}
	if merged.Jobs != 8 {
		t.Fatalf("expected Jobs 8, got %d", merged.Jobs)
	}
	if merged.Output != "table" || merged.Color != "auto" {
		t.Fatalf("expected output/color defaults, got %q/%q", merged.Output, merged.Color)
	}
}

func TestMergeEngineEmptyListClears(t *testing.T) {
	base := EngineSettings{Excludes: []string{"gen"}}
	merged := MergeEngine(base, EngineConfig{Excludes: stringsPtr()})
	if merged.Excludes == nil || len(merged.Excludes) != 0 {
		t.Fatalf("expected cleared excludes, got %#v", merged.Excludes)
	}
}

func TestMergeLogAndServer(t *testing.T) {
	logs := MergeLog(DefaultLogSettings(), LogConfig{Level: strPtr("debug")}, LogConfig{Format: strPtr(" json ")})
	if logs.Level != "debug" || logs.Format != "json" {
		t.Fatalf("unexpected log settings: %+v", logs)
	}
	srv := MergeServer(DefaultServerSettings(), ServerConfig{Addr: strPtr(":9090")})
	if srv.Addr != ":9090" {
		t.Fatalf("unexpected addr: %q", srv.Addr)
	}
}

func TestSettingsRoundTripThroughOptions(t *testing.T) {
	opts := engine.Options{Root: "/repo", MaxLines: 40, DetectMode: "regex", Jobs: 4, Excludes: []string{"gen"}}
	settings := EngineSettingsFromOptions(opts)
	settings.MaxLines = 12
	settings.Root = " "
	settings.ApplyToOptions(&opts)
	if opts.MaxLines != 12 {
		t.Fatalf("MaxLines not applied: %d", opts.MaxLines)
	}
	if opts.Root != "/repo" {
		t.Fatalf("blank root must not override: %q", opts.Root)
	}
	settings.ApplyToOptions(nil)
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"FUNCLEN_MAX_LINES":       "25",
		"FUNCLEN_DETECT":          "balanced",
		"FUNCLEN_LANG":            "c,kotlin",
		"FUNCLEN_EXCLUDE":         "vendor,gen",
		"FUNCLEN_EXCLUDE_TYPICAL": "yes",
		"FUNCLEN_PATH_REGEX":      `^src/`,
		"FUNCLEN_JOBS":            "128",
		"FUNCLEN_MAX_FILE_BYTES":  "8192",
		"FUNCLEN_ROOT":            "/work",
		"FUNCLEN_OUTPUT":          "json",
		"FUNCLEN_COLOR":           "never",
		"FUNCLEN_ALL":             "1",
		"FUNCLEN_LOG_LEVEL":       "debug",
		"FUNCLEN_LOG_FORMAT":      "json",
		"FUNCLEN_ADDR":            ":9000",
	}
	cfg, err := FromEnv(func(key string) string { return env[key] })
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.Engine.MaxLines == nil || *cfg.Engine.MaxLines != 25 {
		t.Fatalf("expected MaxLines 25, got %+v", cfg.Engine.MaxLines)
	}
	if cfg.Engine.Detect == nil || *cfg.Engine.Detect != "balanced" {
		t.Fatalf("expected Detect balanced, got %+v", cfg.Engine.Detect)
	}
	if cfg.Engine.Languages == nil || !reflect.DeepEqual(*cfg.Engine.Languages, []string{"c", "kotlin"}) {
		t.Fatalf("unexpected languages: %v", cfg.Engine.Languages)
	}
	if cfg.Engine.Excludes == nil || !reflect.DeepEqual(*cfg.Engine.Excludes, []string{"vendor", "gen"}) {
		t.Fatalf("unexpected excludes: %v", cfg.Engine.Excludes)
	}
	if cfg.Engine.ExcludeTypical == nil || !*cfg.Engine.ExcludeTypical {
		t.Fatal("expected ExcludeTypical true")
	}
	if cfg.Engine.PathRegex == nil || !reflect.DeepEqual(*cfg.Engine.PathRegex, []string{"^src/"}) {
		t.Fatalf("unexpected path_regex: %v", cfg.Engine.PathRegex)
	}
	if cfg.Engine.Jobs == nil || *cfg.Engine.Jobs != 128 {
		t.Fatalf("expected Jobs 128, got %+v", cfg.Engine.Jobs)
	}
	if cfg.Engine.MaxFileBytes == nil || *cfg.Engine.MaxFileBytes != 8192 {
		t.Fatalf("unexpected max_file_bytes: %+v", cfg.Engine.MaxFileBytes)
	}
	if ptrString(cfg.Engine.Root) != "/work" || ptrString(cfg.Engine.Output) != "json" || ptrString(cfg.Engine.Color) != "never" {
		t.Fatalf("unexpected strings: root=%s output=%s color=%s", ptrString(cfg.Engine.Root), ptrString(cfg.Engine.Output), ptrString(cfg.Engine.Color))
	}
	if cfg.Engine.All == nil || !*cfg.Engine.All {
		t.Fatal("expected All true")
	}
	if ptrString(cfg.Log.Level) != "debug" || ptrString(cfg.Log.Format) != "json" {
		t.Fatalf("unexpected log config: %+v", cfg.Log)
	}
	if ptrString(cfg.Server.Addr) != ":9000" {
		t.Fatalf("unexpected addr: %s", ptrString(cfg.Server.Addr))
	}
}

func TestFromEnvJoinsErrors(t *testing.T) {
	env := map[string]string{
		"FUNCLEN_MAX_LINES": "many",
		"FUNCLEN_ALL":       "maybe",
	}
	_, err := FromEnv(func(key string) string { return env[key] })
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "FUNCLEN_MAX_LINES") || !strings.Contains(msg, "FUNCLEN_ALL") {
		t.Fatalf("expected both variables in error: %v", err)
	}
}

func TestFromEnvNegativeThresholdIsKeptForValidation(t *testing.T) {
	cfg, err := FromEnv(func(key string) string {
		if key == "FUNCLEN_MAX_LINES" {
			return "-4"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("FromEnv returned error: %v", err)
	}
	if cfg.Engine.MaxLines == nil || *cfg.Engine.MaxLines != -4 {
		t.Fatalf("expected raw -4, got %+v", cfg.Engine.MaxLines)
	}
}

func TestLoadConfigFormats(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		".yaml": "max_lines: 30\ndetect: balanced\nexclude:\n  - gen\n  - third_party\nall: true\nmax_file_bytes: 2048\nlog:\n  level: debug\n",
		".toml": "maxFunctionLines = 25\nlanguages = [\"c\", \"cpp\"]\nexclude_typical = true\n[server]\naddr = \":9999\"\n[log]\nformat = \"json\"\n",
		".json": "{\n  \"custom-linter.maxFunctionLines\": 50,\n  \"custom-linter.excludeFolders\": [\"build\", \"/abs/out\"],\n  \"log_level\": \"warn\"\n}\n",
	}

	for ext, content := range cases {
		t.Run(ext, func(t *testing.T) {
			path := filepath.Join(dir, "config"+ext)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := Load(path)
			if err != nil {
				t.Fatalf("Load failed: %v", err)
			}
			if cfg.Engine.MaxLines == nil {
				t.Fatal("expected max_lines to be set")
			}
			switch ext {
			case ".yaml":
				if *cfg.Engine.MaxLines != 30 {
					t.Fatalf("yaml max_lines mismatch: %d", *cfg.Engine.MaxLines)
				}
				if ptrString(cfg.Engine.Detect) != "balanced" {
					t.Fatalf("yaml detect mismatch: %q", ptrString(cfg.Engine.Detect))
				}
				if cfg.Engine.Excludes == nil || !reflect.DeepEqual(*cfg.Engine.Excludes, []string{"gen", "third_party"}) {
					t.Fatalf("yaml exclude mismatch: %v", cfg.Engine.Excludes)
				}
				if cfg.Engine.All == nil || !*cfg.Engine.All {
					t.Fatal("yaml all should be true")
				}
				if ptrInt(cfg.Engine.MaxFileBytes) != 2048 {
					t.Fatalf("yaml max_file_bytes mismatch: %d", ptrInt(cfg.Engine.MaxFileBytes))
				}
				if ptrString(cfg.Log.Level) != "debug" {
					t.Fatalf("yaml log level mismatch: %q", ptrString(cfg.Log.Level))
				}
			case ".toml":
				if *cfg.Engine.MaxLines != 25 {
					t.Fatalf("toml max_lines mismatch: %d", *cfg.Engine.MaxLines)
				}
				if cfg.Engine.Languages == nil || !reflect.DeepEqual(*cfg.Engine.Languages, []string{"c", "cpp"}) {
					t.Fatalf("toml languages mismatch: %v", cfg.Engine.Languages)
				}
				if cfg.Engine.ExcludeTypical == nil || !*cfg.Engine.ExcludeTypical {
					t.Fatal("toml exclude_typical should be true")
				}
				if ptrString(cfg.Server.Addr) != ":9999" || ptrString(cfg.Log.Format) != "json" {
					t.Fatalf("toml sections mismatch: addr=%q format=%q", ptrString(cfg.Server.Addr), ptrString(cfg.Log.Format))
				}
			case ".json":
				if *cfg.Engine.MaxLines != 50 {
					t.Fatalf("json max_lines mismatch: %d", *cfg.Engine.MaxLines)
				}
				if cfg.Engine.Excludes == nil || !reflect.DeepEqual(*cfg.Engine.Excludes, []string{"build", "/abs/out"}) {
					t.Fatalf("json exclude mismatch: %v", cfg.Engine.Excludes)
				}
				if ptrString(cfg.Log.Level) != "warn" {
					t.Fatalf("json log level mismatch: %q", ptrString(cfg.Log.Level))
				}
			}
		})
	}
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown.yaml":  "unknown: value\n",
		"badint.yaml":   "max_lines: lots\n",
		"badlist.json":  "{\"exclude\": 3}\n",
		"badbool.toml":  "all = \"perhaps\"\n",
		"section.yaml":  "engine:\n  tags: [TODO]\n",
		"config.ini":    "max_lines=3\n",
		"broken.json":   "{",
		"nulltype.yaml": "detect: null\n",
	}
	for name, content := range cases {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
		if _, err := Load(path); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if cfg, err := Load(" "); err != nil || cfg.Engine.MaxLines != nil {
		t.Fatalf("blank path should load nothing: %+v %v", cfg, err)
	}
}

func TestFindOrder(t *testing.T) {
	repoRoot := filepath.Join(t.TempDir(), "repo")
	if mkErr := os.MkdirAll(filepath.Join(repoRoot, "sub", "dir"), 0o755); mkErr != nil {
		t.Fatalf("mkdir: %v", mkErr)
	}
	repoConfig := filepath.Join(repoRoot, ".funclen.yaml")
	if writeErr := os.WriteFile(repoConfig, []byte("max_lines: 10\n"), 0o644); writeErr != nil {
		t.Fatalf("write repo config: %v", writeErr)
	}
	path, where, err := Find(filepath.Join(repoRoot, "sub", "dir"), "", "", "")
	if err != nil {
		t.Fatalf("Find failed: %v", err)
	}
	if path != repoConfig || where != "cwd-up" {
		t.Fatalf("unexpected result: path=%s where=%s", path, where)
	}

	explicitDir := t.TempDir()
	explicit := filepath.Join(explicitDir, "custom.toml")
	if writeErr := os.WriteFile(explicit, []byte("max_lines = 5\n"), 0o644); writeErr != nil {
		t.Fatalf("write explicit: %v", writeErr)
	}
	path, where, err = Find(repoRoot, explicit, "", "")
	if err != nil {
		t.Fatalf("Find explicit failed: %v", err)
	}
	if path != explicit || where != "explicit" {
		t.Fatalf("expected explicit config, got path=%s where=%s", path, where)
	}
	if _, _, err := Find(repoRoot, explicitDir, "", ""); err == nil {
		t.Fatal("expected error for directory given as explicit config")
	}

	xdgHome := t.TempDir()
	if mkErr := os.MkdirAll(filepath.Join(xdgHome, "funclen"), 0o755); mkErr != nil {
		t.Fatalf("mkdir xdg: %v", mkErr)
	}
	xdgPath := filepath.Join(xdgHome, "funclen", "config.json")
	if writeErr := os.WriteFile(xdgPath, []byte("{}"), 0o644); writeErr != nil {
		t.Fatalf("write xdg: %v", writeErr)
	}
	path, where, err = Find(t.TempDir(), "", xdgHome, "")
	if err != nil {
		t.Fatalf("Find xdg failed: %v", err)
	}
	if path != xdgPath || where != "xdg" {
		t.Fatalf("expected xdg config, got path=%s where=%s", path, where)
	}

	homeDir := t.TempDir()
	homePath := filepath.Join(homeDir, ".funclen.toml")
	if writeErr := os.WriteFile(homePath, []byte("max_lines = 60\n"), 0o644); writeErr != nil {
		t.Fatalf("write home: %v", writeErr)
	}
	path, where, err = Find(t.TempDir(), "", "", homeDir)
	if err != nil {
		t.Fatalf("Find home failed: %v", err)
	}
	if path != homePath || where != "home" {
		t.Fatalf("expected home config, got path=%s where=%s", path, where)
	}
}

func TestCandidatesListsEveryConfigName(t *testing.T) {
	dir := t.TempDir()
	got := Candidates(dir)
	if len(got) != 4 {
		t.Fatalf("unexpected candidates: %v", got)
	}
	if got[0] != filepath.Join(dir, ".funclen.yaml") || got[3] != filepath.Join(dir, ".funclen.json") {
		t.Fatalf("unexpected order: %v", got)
	}
	if writeErr := os.WriteFile(got[2], []byte("max_lines = 5\n"), 0o644); writeErr != nil {
		t.Fatalf("write config: %v", writeErr)
	}
	path, _, err := Find(dir, "", "", "")
	if err != nil || path != got[2] {
		t.Fatalf("Find should pick a candidate: path=%s err=%v", path, err)
	}
}

func TestCanonicalizeColor(t *testing.T) {
	for in, want := range map[string]string{"": "auto", "ALWAYS": "always", " never ": "never"} {
		got, err := CanonicalizeColor(in)
		if err != nil || got != want {
			t.Fatalf("CanonicalizeColor(%q) = %q, %v", in, got, err)
		}
	}
	if _, err := CanonicalizeColor("rainbow"); err == nil {
		t.Fatal("expected error for invalid color")
	}
}

func TestNormalizeLog(t *testing.T) {
	got, err := NormalizeLog(LogSettings{Level: " DEBUG ", Format: ""})
	if err != nil {
		t.Fatalf("NormalizeLog error: %v", err)
	}
	if got.Level != "debug" || got.Format != "text" {
		t.Fatalf("unexpected normalized log: %+v", got)
	}
	if _, err := NormalizeLog(LogSettings{Level: "chatty"}); err == nil {
		t.Fatal("expected error for invalid level")
	}
	if _, err := NormalizeLog(LogSettings{Format: "xml"}); err == nil {
		t.Fatal("expected error for invalid format")
	}
}

func ptrString(v *string) string {
	if v == nil {
		return "<nil>"
	}
	return *v
}

func ptrInt(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
