package opts

import (
	"errors"
	"math"
	"net/url"
	"testing"

	"github.com/phyten/funclen/internal/engine"
)

func TestParseBoolVariants(t *testing.T) {
	trueVals := []string{"1", "true", "TRUE", "yes", "On"}
	falseVals := []string{"0", "false", "FALSE", "no", "OFF"}

	for _, tc := range trueVals {
		t.Run("true/"+tc, func(t *testing.T) {
			got, err := ParseBool(tc, "flag")
			if err != nil {
				t.Fatalf("ParseBool(%q) error: %v", tc, err)
			}
			if !got {
				t.Fatalf("ParseBool(%q) = false, want true", tc)
			}
		})
	}

	for _, tc := range falseVals {
		t.Run("false/"+tc, func(t *testing.T) {
			got, err := ParseBool(tc, "flag")
			if err != nil {
				t.Fatalf("ParseBool(%q) error: %v", tc, err)
			}
			if got {
				t.Fatalf("ParseBool(%q) = true, want false", tc)
			}
		})
	}

	if _, err := ParseBool("maybe", "flag"); err == nil {
		t.Fatal("ParseBool should reject unknown values")
	}
}

func TestParseIntInRange(t *testing.T) {
	got, err := ParseIntInRange("42", "jobs", 1, 64)
	if err != nil {
		t.Fatalf("ParseIntInRange error: %v", err)
	}
	if got != 42 {
		t.Fatalf("ParseIntInRange = %d, want 42", got)
	}

	if _, err := ParseIntInRange("-1", "max_file_bytes", 0, math.MinInt); err == nil {
		t.Fatal("ParseIntInRange should reject negative values when min=0")
	}

	if _, err := ParseIntInRange("65", "jobs", 1, 64); err == nil {
		t.Fatal("ParseIntInRange should reject values above max")
	}
}

func TestNormalizeAndValidate(t *testing.T) {
	o := engine.Options{MaxLines: 10, DetectMode: "BALANCED", Jobs: 8, Languages: []string{" C++ ", "cpp", "py"}}
	if err := NormalizeAndValidate(&o); err != nil {
		t.Fatalf("NormalizeAndValidate error: %v", err)
	}
	if o.DetectMode != "balanced" {
		t.Fatalf("DetectMode normalized incorrectly: %q", o.DetectMode)
	}
	if o.Root != "." {
		t.Fatalf("Root should default to '.': %q", o.Root)
	}
	if len(o.Languages) != 2 || o.Languages[0] != "cpp" || o.Languages[1] != "python" {
		t.Fatalf("Languages normalized incorrectly: %v", o.Languages)
	}

	for _, n := range []int{0, -1} {
		bad := engine.Options{MaxLines: n, Jobs: 4}
		if err := NormalizeAndValidate(&bad); !errors.Is(err, ErrInvalidThreshold) {
			t.Fatalf("max_lines=%d should fail with ErrInvalidThreshold, got %v", n, err)
		}
	}

	cases := map[string]engine.Options{
		"jobs":     {MaxLines: 40, Jobs: 1024},
		"detect":   {MaxLines: 40, Jobs: 1, DetectMode: "ast"},
		"lang":     {MaxLines: 40, Jobs: 1, Languages: []string{"go"}},
		"bytes":    {MaxLines: 40, Jobs: 1, MaxFileBytes: -1},
		"path_rgx": {MaxLines: 40, Jobs: 1, PathRegex: []string{"("}},
	}
	for name, o := range cases {
		if err := NormalizeAndValidate(&o); err == nil {
			t.Fatalf("%s: NormalizeAndValidate should fail", name)
		}
	}
}

func TestApplyWebQueryToOptions(t *testing.T) {
	def := Defaults("/repo")
	q := url.Values{}
	q.Set("max_lines", "12")
	q.Set("detect", "balanced")
	q.Set("all", "yes")
	q.Set("jobs", "4")
	q.Add("lang", "c,java")
	q.Add("exclude", "gen")
	q.Add("exclude", "third_party")

	got, err := ApplyWebQueryToOptions(def, q)
	if err != nil {
		t.Fatalf("ApplyWebQueryToOptions error: %v", err)
	}
	if got.MaxLines != 12 || got.DetectMode != "balanced" || !got.All || got.Jobs != 4 {
		t.Fatalf("unexpected options: %+v", got)
	}
	if len(got.Languages) != 2 || len(got.Excludes) != 2 {
		t.Fatalf("multi values not split: langs=%v excludes=%v", got.Languages, got.Excludes)
	}
	if got.Root != "/repo" {
		t.Fatalf("root must come from defaults: %q", got.Root)
	}

	for _, bad := range []url.Values{
		{"max_lines": {"many"}},
		{"jobs": {"0"}},
		{"all": {"maybe"}},
	} {
		if _, err := ApplyWebQueryToOptions(def, bad); err == nil {
			t.Fatalf("query %v should be rejected", bad)
		}
	}
}

func TestNormalizeOutput(t *testing.T) {
	for in, want := range map[string]string{"": "table", "JSON": "json", "md": "markdown", "ndjson": "ndjson", "csv": "csv"} {
		got, err := NormalizeOutput(in)
		if err != nil || got != want {
			t.Fatalf("NormalizeOutput(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizeOutput("xml"); err == nil {
		t.Fatal("NormalizeOutput should reject unknown formats")
	}
}

func TestSplitMulti(t *testing.T) {
	vals := []string{"a,b", " c ", "", ",d"}
	got := SplitMulti(vals)
	want := []string{"a", "b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("SplitMulti length mismatch: got=%d want=%d", len(got), len(want))
	}
	for i, v := range want {
		if got[i] != v {
			t.Fatalf("SplitMulti mismatch at %d: got=%q want=%q", i, got[i], v)
		}
	}
}
