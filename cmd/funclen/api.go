package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/phyten/funclen/internal/diagstore"
	"github.com/phyten/funclen/internal/engine"
	engineopts "github.com/phyten/funclen/internal/engine/opts"
	"github.com/phyten/funclen/internal/logging"
	"github.com/phyten/funclen/internal/metrics"
	"github.com/phyten/funclen/internal/model"
	"github.com/phyten/funclen/internal/pattern"
	"github.com/phyten/funclen/internal/progress"
	"github.com/phyten/funclen/internal/scan"
	"github.com/phyten/funclen/internal/web"
)

const maxCheckBody = 4 << 20

// server bundles what the HTTP handlers share.
type server struct {
	mu      sync.RWMutex
	base    engine.Options
	scanner *engine.Scanner
	metrics *metrics.Collector
	store   *diagstore.Store
	logger  *slog.Logger
}

// options returns the server defaults. They change when the workspace
// configuration is reloaded.
func (s *server) options() engine.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.base
}

func (s *server) setOptions(opts engine.Options) {
	s.mu.Lock()
	s.base = opts
	s.mu.Unlock()
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	web.UI{Threshold: func() int { return s.options().MaxLines }}.Register(mux)
	mux.HandleFunc("GET /api/scan", s.apiScan)
	mux.HandleFunc("GET /api/scan/stream", s.apiScanStream)
	mux.HandleFunc("POST /api/check", s.apiCheck)
	mux.HandleFunc("GET /api/diagnostics", s.apiDiagnostics)
	mux.HandleFunc("GET /api/metrics", s.apiMetrics)
	mux.Handle("GET /ws", web.NewHub(s.store, s.logger))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	web.SecurityHeaders(w.Header())
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// scanOptions layers the query string over the server defaults.
func (s *server) scanOptions(r *http.Request) (engine.Options, error) {
	base := s.options()
	opts, err := engineopts.ApplyWebQueryToOptions(base, r.URL.Query())
	if err != nil {
		return opts, err
	}
	// The workspace is fixed by the server; clients cannot point it elsewhere.
	opts.Root = base.Root
	if err := engineopts.NormalizeAndValidate(&opts); err != nil {
		return opts, err
	}
	return opts, nil
}

func (s *server) apiScan(w http.ResponseWriter, r *http.Request) {
	opts, err := s.scanOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	res, err := s.scanner.Run(r.Context(), opts)
	if err != nil {
		logging.ErrorWithError(r.Context(), s.logger, err, "scan failed", nil)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type progressEvent struct {
	Stage     string `json:"stage"`
	Total     int    `json:"total"`
	Done      int    `json:"done"`
	Exceeded  int    `json:"exceeded"`
	ElapsedMS int64  `json:"elapsed_ms"`
}

// sseWriter serializes server-sent events; progress arrives from scan workers.
type sseWriter struct {
	mu sync.Mutex
	w  http.ResponseWriter
	f  http.Flusher
}

func (s *sseWriter) send(event string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "event: %s\ndata: %s\n\n", event, data)
	s.f.Flush()
}

func (s *sseWriter) Publish(snap progress.Snapshot) { s.send("progress", toProgressEvent(snap)) }
func (s *sseWriter) Done(snap progress.Snapshot)    { s.send("progress", toProgressEvent(snap)) }

func toProgressEvent(s progress.Snapshot) progressEvent {
	return progressEvent{
		Stage:     string(s.Stage),
		Total:     s.Total,
		Done:      s.Done,
		Exceeded:  s.Exceeded,
		ElapsedMS: s.Elapsed.Milliseconds(),
	}
}

// apiScanStream runs a scan and streams progress events followed by one
// result (or error) event.
func (s *server) apiScanStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, errors.New("streaming unsupported"))
		return
	}
	opts, err := s.scanOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(http.StatusOK)

	sse := &sseWriter{w: w, f: flusher}
	opts.ProgressObserver = sse
	res, err := s.scanner.Run(r.Context(), opts)
	if err != nil {
		sse.send("error", map[string]string{"error": err.Error()})
		return
	}
	sse.send("result", res)
}

type checkRequest struct {
	Text       string `json:"text"`
	LanguageID string `json:"language_id"`
	MaxLines   *int   `json:"max_lines,omitempty"`
	Detect     string `json:"detect,omitempty"`
}

type checkFinding struct {
	model.Finding
	Message string `json:"message,omitempty"`
}

type checkResponse struct {
	LanguageID string         `json:"language_id"`
	Supported  bool           `json:"supported"`
	MaxLines   int            `json:"max_lines"`
	Findings   []checkFinding `json:"findings"`
	Exceeded   int            `json:"exceeded"`
}

// apiCheck measures a document sent in the request body. Unknown languages
// yield an empty finding list.
func (s *server) apiCheck(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxCheckBody)
	var req checkRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	base := s.options()
	maxLines := base.MaxLines
	if req.MaxLines != nil {
		if *req.MaxLines < 1 {
			writeError(w, http.StatusBadRequest, engineopts.ErrInvalidThreshold)
			return
		}
		maxLines = *req.MaxLines
	}
	detect := req.Detect
	if detect == "" {
		detect = base.DetectMode
	}
	mode, err := pattern.ParseMode(detect)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	lang := strings.TrimSpace(req.LanguageID)
	start := time.Now()
	findings := s.scanner.ScanText(r.Context(), mode, lang, req.Text, maxLines)
	resp := checkResponse{
		LanguageID: lang,
		Supported:  pattern.Supported(lang),
		MaxLines:   maxLines,
		Findings:   make([]checkFinding, 0, len(findings)),
	}
	for _, f := range findings {
		cf := checkFinding{Finding: f}
		if f.Exceeded {
			cf.Message = scan.Message(f)
			resp.Exceeded++
		}
		resp.Findings = append(resp.Findings, cf)
	}
	logging.Debug(r.Context(), s.logger, "check", logging.Fields{
		"language_id": lang,
		"bytes":       len(req.Text),
		"findings":    len(findings),
		"elapsed_ms":  time.Since(start).Milliseconds(),
	})
	writeJSON(w, http.StatusOK, resp)
}

type diagnosticsResponse struct {
	Files   int               `json:"files"`
	Entries []diagstore.Entry `json:"entries"`
}

func (s *server) apiDiagnostics(w http.ResponseWriter, _ *http.Request) {
	entries := s.store.Snapshot()
	if entries == nil {
		entries = []diagstore.Entry{}
	}
	writeJSON(w, http.StatusOK, diagnosticsResponse{Files: len(entries), Entries: entries})
}

func (s *server) apiMetrics(w http.ResponseWriter, r *http.Request) {
	if s.metrics == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("metrics are not collected"))
		return
	}
	snap, err := s.metrics.Snapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
