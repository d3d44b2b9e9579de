package engine

import (
	"regexp"

	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/progress"
)

// Item は行数を計測した 1 関数を表す
type Item struct {
	File      string     `json:"file"`
	Line      int        `json:"line"`
	Lang      string     `json:"lang"`
	Span      model.Span `json:"span"`
	LineCount int        `json:"line_count"`
	MaxLines  int        `json:"max_lines"`
	Exceeded  bool       `json:"exceeded"`
	Message   string     `json:"message,omitempty"`
}

// FileResult は 1 ファイル分の走査結果
type FileResult struct {
	File     string          `json:"file"`
	Lang     string          `json:"lang"`
	Findings []model.Finding `json:"findings"`
}

// ItemError は 1 ファイルの処理に失敗した際の情報を表す
type ItemError struct {
	File    string `json:"file"`
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// Options は実行オプション
type Options struct {
	Root              string
	MaxLines          int
	DetectMode        string // regex|balanced
	Languages         []string
	Excludes          []string
	ExcludeTypical    bool
	PathRegex         []string
	PathRegexCompiled []*regexp.Regexp
	Jobs              int
	MaxFileBytes      int
	All               bool
	ProgressObserver  progress.Observer `json:"-"`
}

// Result は出力
type Result struct {
	RunID      string       `json:"run_id"`
	Root       string       `json:"root"`
	MaxLines   int          `json:"max_lines"`
	Items      []Item       `json:"items"`
	Files      int          `json:"files"`
	Functions  int          `json:"functions"`
	Exceeded   int          `json:"exceeded"`
	Total      int          `json:"total"`
	ElapsedMS  int64        `json:"elapsed_ms"`
	Errors     []ItemError  `json:"errors,omitempty"`
	ErrorCount int          `json:"error_count"`
	Scanned    []FileResult `json:"-"`
}
