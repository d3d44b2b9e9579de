// Package engine walks a workspace and measures every function it finds.
package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/phyten/funclen/internal/detect"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/metrics"
	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/pattern"
	"github.com/phyten/funclen/internal/policy"
	"github.com/phyten/funclen/internal/progress"
	"github.com/phyten/funclen/internal/scan"
)

const (
	DefaultCacheSize = 1024
	maxJobs          = 64
)

// Scanner はスキャン結果のキャッシュとメトリクスを保持し、複数回の実行で共有される。
// 並行利用して問題ない。
type Scanner struct {
	cache   *lru.Cache[string, []model.Finding]
	metrics *metrics.ScanMetrics
	logger  *slog.Logger
}

// ScannerConfig は Scanner の構成
type ScannerConfig struct {
	CacheSize int
	Metrics   *metrics.ScanMetrics
	Logger    *slog.Logger
}

// NewScanner は Scanner を生成する。CacheSize が 0 以下なら DefaultCacheSize を使う。
func NewScanner(cfg ScannerConfig) (*Scanner, error) {
	size := cfg.CacheSize
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []model.Finding](size)
	if err != nil {
		return nil, fmt.Errorf("scan cache: %w", err)
	}
	return &Scanner{
		cache:   cache,
		metrics: cfg.Metrics,
		logger:  logging.Component(cfg.Logger, "engine"),
	}, nil
}

var (
	defaultScanner     *Scanner
	defaultScannerOnce sync.Once
)

func getDefaultScanner() *Scanner {
	defaultScannerOnce.Do(func() {
		s, err := NewScanner(ScannerConfig{})
		if err != nil {
			panic("engine: default scanner: " + err.Error())
		}
		defaultScanner = s
	})
	return defaultScanner
}

// Run は既定の Scanner でワークスペースを走査する。
func Run(ctx context.Context, opts Options) (*Result, error) {
	return getDefaultScanner().Run(ctx, opts)
}

// Run は opts.Root 以下のファイルを列挙し、対応言語の関数をすべて計測して返します。
//
// 結果はファイル名、開始行の順に並びます。読み込みに失敗したファイルは
// Result.Errors に集約され、走査自体は継続します。
func (s *Scanner) Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	mode, err := pattern.ParseMode(opts.DetectMode)
	if err != nil {
		return nil, err
	}
	root, err := filepath.Abs(strings.TrimSpace(orDot(opts.Root)))
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	if opts.PathRegexCompiled == nil && len(opts.PathRegex) > 0 {
		opts.PathRegexCompiled, err = CompilePathRegex(opts.PathRegex)
		if err != nil {
			return nil, fmt.Errorf("invalid --path-regex: %w", err)
		}
	}
	fi, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	var files []string
	var errs []ItemError
	if !fi.IsDir() {
		files = []string{root}
		root = filepath.Dir(root)
	}
	pol := policy.New(root, opts.MaxLines, opts.Excludes)
	if fi.IsDir() {
		files, errs, err = discover(ctx, root, pol, opts)
		if err != nil {
			return nil, err
		}
	}

	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.NumCPU()
	}
	if jobs > maxJobs {
		jobs = maxJobs
	}

	tracker := progress.NewTracker(len(files), opts.ProgressObserver)
	scanned := make([]FileResult, len(files))
	ok := make([]bool, len(files))
	var errsMu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, path := range files {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fr, scannedOK, itemErr := s.scanPath(gctx, root, path, mode, pol.MaxLines, opts)
			if itemErr != nil {
				errsMu.Lock()
				errs = append(errs, *itemErr)
				errsMu.Unlock()
			}
			if scannedOK {
				scanned[i], ok[i] = fr, true
				tracker.Advance(len(scan.Exceeding(fr.Findings)))
			} else {
				tracker.Advance(0)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracker.Finish()

	res := &Result{
		RunID:    uuid.NewString(),
		Root:     root,
		MaxLines: pol.MaxLines,
	}
	for i := range scanned {
		if !ok[i] {
			continue
		}
		fr := scanned[i]
		res.Scanned = append(res.Scanned, fr)
		res.Files++
		res.Functions += len(fr.Findings)
		for _, f := range fr.Findings {
			if f.Exceeded {
				res.Exceeded++
			} else if !opts.All {
				continue
			}
			res.Items = append(res.Items, toItem(fr.File, f))
		}
	}
	sortItems(res.Items)
	sortErrors(errs)
	res.Errors = errs
	res.ErrorCount = len(errs)
	res.Total = len(res.Items)
	elapsed := time.Since(start)
	res.ElapsedMS = elapsed.Milliseconds()
	s.metrics.RecordRun(ctx, elapsed)
	logging.Info(ctx, s.logger, "scan finished", logging.Fields{
		"run_id":     res.RunID,
		"files":      res.Files,
		"functions":  res.Functions,
		"exceeded":   res.Exceeded,
		"errors":     res.ErrorCount,
		"elapsed_ms": res.ElapsedMS,
	})
	return res, nil
}

// ScanFile は 1 ファイルを計測する。path は絶対パスでも root からの相対パスでもよい。
// 走査と同じ条件 (除外フォルダ、スキップ対象ディレクトリ、パス正規表現) で対象外の
// ファイルや未対応言語のファイルは ok=false を返す。
func (s *Scanner) ScanFile(ctx context.Context, opts Options, path string) (FileResult, bool, error) {
	mode, err := pattern.ParseMode(opts.DetectMode)
	if err != nil {
		return FileResult{}, false, err
	}
	root, err := filepath.Abs(orDot(opts.Root))
	if err != nil {
		return FileResult{}, false, fmt.Errorf("resolve root: %w", err)
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(root, path)
	}
	path = filepath.Clean(path)
	if opts.PathRegexCompiled == nil && len(opts.PathRegex) > 0 {
		if opts.PathRegexCompiled, err = CompilePathRegex(opts.PathRegex); err != nil {
			return FileResult{}, false, fmt.Errorf("invalid --path-regex: %w", err)
		}
	}
	pol := policy.New(root, opts.MaxLines, opts.Excludes)
	if !eligible(root, path, pol, opts) {
		return FileResult{File: RelPath(root, path)}, false, nil
	}
	fr, ok, itemErr := s.scanPath(ctx, root, path, mode, pol.MaxLines, opts)
	if itemErr != nil {
		return fr, false, fmt.Errorf("%s: %s: %s", itemErr.File, itemErr.Stage, itemErr.Message)
	}
	return fr, ok, nil
}

// ScanText measures text directly, going through the scan cache.
func (s *Scanner) ScanText(ctx context.Context, mode pattern.Mode, lang, text string, maxLines int) []model.Finding {
	if maxLines < 1 {
		maxLines = scan.DefaultMaxLines
	}
	key := cacheKey(mode, lang, maxLines, text)
	if cached, ok := s.cache.Get(key); ok {
		s.metrics.RecordCache(ctx, true)
		return append([]model.Finding(nil), cached...)
	}
	s.metrics.RecordCache(ctx, false)
	findings := scan.ScanMode(mode, text, lang, maxLines)
	s.cache.Add(key, findings)
	return append([]model.Finding(nil), findings...)
}

func (s *Scanner) scanPath(ctx context.Context, root, path string, mode pattern.Mode, maxLines int, opts Options) (FileResult, bool, *ItemError) {
	rel := RelPath(root, path)
	fr := FileResult{File: rel}
	data, err := os.ReadFile(path)
	if err != nil {
		return fr, false, newItemError(rel, "read", err)
	}
	if bytes.IndexByte(data, 0) >= 0 {
		return fr, false, nil
	}
	info := detect.FromPathAndContent(path, data)
	lang := detect.NormalizeLangName(info.Name)
	if !pattern.Supported(lang) || !detect.MatchesLang(info, opts.Languages) {
		return fr, false, nil
	}
	if opts.MaxFileBytes > 0 && len(data) > opts.MaxFileBytes {
		return fr, false, newItemError(rel, "size", fmt.Errorf("file is %d bytes, limit is %d", len(data), opts.MaxFileBytes))
	}
	fr.Lang = lang
	fr.Findings = s.ScanText(ctx, mode, lang, string(data), maxLines)
	s.metrics.RecordFile(ctx, lang, len(fr.Findings), len(scan.Exceeding(fr.Findings)))
	return fr, true, nil
}

// discover lists candidate files below root in lexical order.
func discover(ctx context.Context, root string, pol *policy.Policy, opts Options) ([]string, []ItemError, error) {
	var files []string
	var errs []ItemError
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if path == root {
				return err
			}
			errs = append(errs, *newItemError(RelPath(root, path), "walk", err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && (skipDirName(d.Name(), opts.ExcludeTypical) || pol.Excluded(path)) {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !eligible(root, path, pol, opts) {
			return nil
		}
		// extensionless files may still carry a shebang
		if lang := detect.FromPath(path); lang == "" && filepath.Ext(path) != "" {
			return nil
		}
		files = append(files, path)
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return files, errs, nil
}

func toItem(file string, f model.Finding) Item {
	it := Item{
		File:      file,
		Line:      f.Span.StartLine,
		Lang:      f.Lang,
		Span:      f.Span,
		LineCount: f.LineCount,
		MaxLines:  f.MaxLines,
		Exceeded:  f.Exceeded,
	}
	if f.Exceeded {
		it.Message = scan.Message(f)
	}
	return it
}

func sortItems(items []Item) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].File == items[j].File {
			if items[i].Span.StartLine == items[j].Span.StartLine {
				return items[i].Span.StartCol < items[j].Span.StartCol
			}
			return items[i].Span.StartLine < items[j].Span.StartLine
		}
		return items[i].File < items[j].File
	})
}

func sortErrors(errs []ItemError) {
	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].File == errs[j].File {
			return errs[i].Stage < errs[j].Stage
		}
		return errs[i].File < errs[j].File
	})
}

func newItemError(file, stage string, err error) *ItemError {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = "unknown error"
	}
	return &ItemError{File: file, Stage: stage, Message: msg}
}

func cacheKey(mode pattern.Mode, lang string, maxLines int, text string) string {
	h := sha256.New()
	h.Write([]byte(mode))
	h.Write([]byte{0})
	h.Write([]byte(lang))
	h.Write([]byte{0})
	h.Write([]byte(strconv.Itoa(maxLines)))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// RelPath returns path relative to root in slash form. Paths outside root
// are returned as is.
func RelPath(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

func orDot(p string) string {
	if strings.TrimSpace(p) == "" {
		return "."
	}
	return p
}
