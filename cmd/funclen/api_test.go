package main

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/engine"
	engineopts "github.com/phyten/funclen/internal/engine/opts"
	"github.com/phyten/funclen/internal/host"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/metrics"
)

func newTestServer(t *testing.T, root string) *server {
	t.Helper()
	opts := engineopts.Defaults(root)
	if err := engineopts.NormalizeAndValidate(&opts); err != nil {
		t.Fatalf("既定オプションが不正です: %v", err)
	}
	collector, err := metrics.NewCollector()
	if err != nil {
		t.Fatalf("メトリクスの初期化に失敗しました: %v", err)
	}
	t.Cleanup(func() { _ = collector.Shutdown(context.Background()) })
	sc, err := engine.NewScanner(engine.ScannerConfig{Metrics: collector.Scan, Logger: logging.Discard()})
	if err != nil {
		t.Fatalf("Scanner の初期化に失敗しました: %v", err)
	}
	return &server{base: opts, scanner: sc, metrics: collector, store: diagstore.New(), logger: logging.Discard()}
}

func writeSource(t *testing.T, dir, name, body string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("ディレクトリ作成に失敗しました: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("ファイル書き込みに失敗しました: %v", err)
	}
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestAPIScanはJSONをエスケープせず返す(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "a<b>.c", longC)
	s := newTestServer(t, root)

	rr := serve(s.routes(), http.MethodGet, "/api/scan?max_lines=2", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d body=%s", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Fatalf("Content-Type が一致しません: %q", ct)
	}
	if rr.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("セキュリティヘッダがありません: %v", rr.Header())
	}
	body := rr.Body.String()
	if !strings.Contains(body, `"file":"a<b>.c"`) || strings.Contains(body, `\u003c`) {
		t.Fatalf("ファイル名がそのまま出力されていません: %s", body)
	}

	var res engine.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if res.Exceeded != 1 || len(res.Items) != 1 {
		t.Fatalf("結果が一致しません: %+v", res)
	}
	if res.Items[0].Message != "Function exceeds 2 lines. Current line count: 5" {
		t.Fatalf("メッセージが一致しません: %q", res.Items[0].Message)
	}
	if res.MaxLines != 2 {
		t.Fatalf("max_lines が反映されていません: %d", res.MaxLines)
	}
}

func TestAPIScanは不正なクエリで400を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	for _, query := range []string{
		"jobs=0",
		"jobs=foo",
		"max_lines=0",
		"max_lines=abc",
		"lang=go",
		"detect=ast",
		"all=maybe",
		"path_regex=[",
	} {
		t.Run(query, func(t *testing.T) {
			rr := serve(s.routes(), http.MethodGet, "/api/scan?"+query, "")
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("ステータスが一致しません: %d body=%s", rr.Code, rr.Body.String())
			}
			var payload map[string]string
			if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil || payload["error"] == "" {
				t.Fatalf("エラー本文が不正です: %s", rr.Body.String())
			}
		})
	}
}

func TestAPIScanはルートを変更させない(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	writeSource(t, other, "big.c", longC)
	s := newTestServer(t, root)

	rr := serve(s.routes(), http.MethodGet, "/api/scan?max_lines=2&root="+other, "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
	var res engine.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if res.Files != 0 || len(res.Items) != 0 {
		t.Fatalf("別ディレクトリが走査されています: %+v", res)
	}
}

func TestAPIScanStreamはprogressとresultを送る(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "big.c", longC)
	writeSource(t, root, "sub/small.py", "def f():\n    pass\n")
	s := newTestServer(t, root)

	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/api/scan/stream?max_lines=2", nil)
	if err != nil {
		t.Fatalf("リクエスト生成に失敗しました: %v", err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("ストリームの呼び出しに失敗しました: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("Content-Type が一致しません: %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var (
		event     string
		data      []string
		stages    []string
		gotResult bool
	)
	flush := func() {
		payload := strings.Join(data, "\n")
		switch event {
		case "progress":
			var p progressEvent
			if err := json.Unmarshal([]byte(payload), &p); err != nil {
				t.Fatalf("progress の解析に失敗しました: %v (%s)", err, payload)
			}
			stages = append(stages, p.Stage)
		case "result":
			var res engine.Result
			if err := json.Unmarshal([]byte(payload), &res); err != nil {
				t.Fatalf("result の解析に失敗しました: %v (%s)", err, payload)
			}
			if res.Files != 2 || res.Exceeded != 1 {
				t.Fatalf("結果が一致しません: %+v", res)
			}
			gotResult = true
		case "error":
			t.Fatalf("error イベントを受信しました: %s", payload)
		}
		event = ""
		data = data[:0]
	}
	for sc.Scan() {
		line := sc.Text()
		switch {
		case line == "":
			flush()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(line[len("event:"):])
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimSpace(line[len("data:"):]))
		}
		if gotResult {
			break
		}
	}
	if !gotResult {
		t.Fatalf("result イベントを受信していません")
	}
	if len(stages) == 0 {
		t.Fatalf("progress イベントを受信していません")
	}
	for _, st := range stages {
		switch st {
		case "scan", "done":
		default:
			t.Fatalf("未知のステージです: %q", st)
		}
	}
}

func TestAPIScanStreamは不正なクエリで400を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	rr := serve(s.routes(), http.MethodGet, "/api/scan/stream?jobs=0", "")
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
}

func TestAPICheckは超過した関数を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	body := `{"text":"int foo() {\nline1\nline2\n}","language_id":"c","max_lines":2}`
	rr := serve(s.routes(), http.MethodPost, "/api/check", body)
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d body=%s", rr.Code, rr.Body.String())
	}
	var resp checkResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if !resp.Supported || resp.MaxLines != 2 || resp.Exceeded != 1 || len(resp.Findings) != 1 {
		t.Fatalf("応答が一致しません: %+v", resp)
	}
	f := resp.Findings[0]
	if f.LineCount != 4 || f.Span.StartLine != 1 || f.Span.EndLine != 4 {
		t.Fatalf("検出内容が一致しません: %+v", f)
	}
	if f.Message != "Function exceeds 2 lines. Current line count: 4" {
		t.Fatalf("メッセージが一致しません: %q", f.Message)
	}
}

func TestAPICheckは既定の閾値と範囲内の関数を扱う(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	rr := serve(s.routes(), http.MethodPost, "/api/check", `{"text":"def f():\n    pass\n","language_id":"python"}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
	var resp checkResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if resp.MaxLines != 40 || resp.Exceeded != 0 || len(resp.Findings) != 1 {
		t.Fatalf("応答が一致しません: %+v", resp)
	}
	if resp.Findings[0].Message != "" || resp.Findings[0].Exceeded {
		t.Fatalf("範囲内の関数にメッセージが付いています: %+v", resp.Findings[0])
	}
}

func TestAPICheckは未対応言語で空の結果を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	rr := serve(s.routes(), http.MethodPost, "/api/check", `{"text":"func main() {\n}\n","language_id":"go","max_lines":1}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"findings":[]`) {
		t.Fatalf("findings が空配列ではありません: %s", rr.Body.String())
	}
	var resp checkResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if resp.Supported || resp.LanguageID != "go" {
		t.Fatalf("応答が一致しません: %+v", resp)
	}
}

func TestAPICheckは不正なリクエストで400を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	for name, body := range map[string]string{
		"zero threshold":     `{"text":"","language_id":"c","max_lines":0}`,
		"negative threshold": `{"text":"","language_id":"c","max_lines":-5}`,
		"broken json":        `{"text":`,
		"unknown field":      `{"text":"","language_id":"c","lines":3}`,
		"bad detect":         `{"text":"","language_id":"c","detect":"ast"}`,
	} {
		t.Run(name, func(t *testing.T) {
			rr := serve(s.routes(), http.MethodPost, "/api/check", body)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("ステータスが一致しません: %d body=%s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestAPICheckは大きすぎる本文で413を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	body := `{"text":"` + strings.Repeat("a", maxCheckBody+1) + `","language_id":"c"}`
	rr := serve(s.routes(), http.MethodPost, "/api/check", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
}

func TestAPIDiagnosticsはストアの内容を返す(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "big.c", longC)
	s := newTestServer(t, root)

	rr := serve(s.routes(), http.MethodGet, "/api/diagnostics", "")
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), `"entries":[]`) {
		t.Fatalf("空のストアの応答が一致しません: %d %s", rr.Code, rr.Body.String())
	}

	opts := s.base
	opts.MaxLines = 2
	h, err := host.New(s.scanner, s.store, opts, logging.Discard())
	if err != nil {
		t.Fatalf("ホストの初期化に失敗しました: %v", err)
	}
	if _, err := h.ScanAll(context.Background()); err != nil {
		t.Fatalf("ScanAll に失敗しました: %v", err)
	}

	rr = serve(s.routes(), http.MethodGet, "/api/diagnostics", "")
	var resp diagnosticsResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if resp.Files != 1 || len(resp.Entries) != 1 || resp.Entries[0].File != "big.c" {
		t.Fatalf("応答が一致しません: %+v", resp)
	}
	if len(resp.Entries[0].Findings) != 1 || !resp.Entries[0].Findings[0].Exceeded {
		t.Fatalf("検出内容が一致しません: %+v", resp.Entries[0].Findings)
	}
}

func TestAPIMetricsは走査の計測値を返す(t *testing.T) {
	root := t.TempDir()
	writeSource(t, root, "big.c", longC)
	writeSource(t, root, "small.c", "int f() {\n}\n")
	s := newTestServer(t, root)
	h := s.routes()

	var before metrics.Snapshot
	rr := serve(h, http.MethodGet, "/api/metrics", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d body=%s", rr.Code, rr.Body.String())
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &before); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if before.FilesScanned != 0 || before.Runs != 0 {
		t.Fatalf("走査前の計測値が 0 ではありません: %+v", before)
	}

	if rr := serve(h, http.MethodGet, "/api/scan?max_lines=2", ""); rr.Code != http.StatusOK {
		t.Fatalf("走査に失敗しました: %d %s", rr.Code, rr.Body.String())
	}
	if rr := serve(h, http.MethodPost, "/api/check", `{"text":"int g() {\n}\n","language_id":"c"}`); rr.Code != http.StatusOK {
		t.Fatalf("check に失敗しました: %d %s", rr.Code, rr.Body.String())
	}

	rr = serve(h, http.MethodGet, "/api/metrics", "")
	var snap metrics.Snapshot
	if err := json.Unmarshal(rr.Body.Bytes(), &snap); err != nil {
		t.Fatalf("JSON の解析に失敗しました: %v", err)
	}
	if snap.FilesScanned != 2 || snap.FunctionsFound != 2 || snap.FunctionsExceeded != 1 {
		t.Fatalf("ファイル単位の計測値が一致しません: %+v", snap)
	}
	if snap.Runs != 1 || snap.ScanSeconds <= 0 {
		t.Fatalf("走査回数が記録されていません: %+v", snap)
	}
	if snap.CacheMisses != 3 {
		t.Fatalf("キャッシュ参照が記録されていません: %+v", snap)
	}
	if got := snap.Languages["c"]; got.Files != 2 || got.Exceeded != 1 {
		t.Fatalf("言語別の計測値が一致しません: %+v", snap.Languages)
	}
	if !strings.Contains(rr.Body.String(), `"files_scanned":2`) {
		t.Fatalf("JSON のキーが一致しません: %s", rr.Body.String())
	}
}

func TestAPIMetricsは収集していなければ503を返す(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	s.metrics = nil
	if rr := serve(s.routes(), http.MethodGet, "/api/metrics", ""); rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
}

func TestIndexはセキュリティヘッダ付きで返る(t *testing.T) {
	s := newTestServer(t, t.TempDir())
	rr := serve(s.routes(), http.MethodGet, "/", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("ステータスが一致しません: %d", rr.Code)
	}
	if csp := rr.Header().Get("Content-Security-Policy"); csp == "" {
		t.Fatalf("CSP ヘッダがありません")
	}
	if rr.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("X-Frame-Options が一致しません: %q", rr.Header().Get("X-Frame-Options"))
	}
	if rr := serve(s.routes(), http.MethodGet, "/nope", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("未知のパスが 404 になりません: %d", rr.Code)
	}
}
