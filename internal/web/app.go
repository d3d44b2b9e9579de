// Package web serves the browser UI and the diagnostics WebSocket.
package web

import (
	_ "embed"
	"html/template"
	"net/http"
	"sync"
)

const (
	stylesPath = "/assets/styles.css"
	scriptPath = "/assets/ui.js"
)

var (
	//go:embed templates/index.html
	indexHTML string
	indexOnce sync.Once
	indexTmpl *template.Template

	//go:embed assets/styles.css
	stylesCSS string

	//go:embed assets/ui.js
	scriptJS string
)

// Script returns the embedded UI script.
func Script() string {
	return scriptJS
}

type indexData struct {
	StylesPath string
	ScriptPath string
	MaxLines   int
}

// UI renders the index page with the server's default threshold.
// Threshold, when set, is asked on every request and wins over MaxLines.
type UI struct {
	MaxLines  int
	Threshold func() int
}

// Register attaches the page and its assets to mux.
func (u UI) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", u.index)
	mux.HandleFunc("GET "+stylesPath, asset("text/css; charset=utf-8", stylesCSS))
	mux.HandleFunc("GET "+scriptPath, asset("application/javascript; charset=utf-8", scriptJS))
}

// SecurityHeaders sets the headers every page and API response carries.
func SecurityHeaders(h http.Header) {
	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("Referrer-Policy", "no-referrer")
	h.Set("X-Frame-Options", "DENY")
	h.Set("Content-Security-Policy", "default-src 'none'; style-src 'self'; script-src 'self'; img-src 'self'; connect-src 'self'; form-action 'self'; base-uri 'none'")
}

func (u UI) index(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	SecurityHeaders(w.Header())
	maxLines := u.MaxLines
	if u.Threshold != nil {
		maxLines = u.Threshold()
	}
	data := indexData{StylesPath: stylesPath, ScriptPath: scriptPath, MaxLines: maxLines}
	if err := loadTemplate().Execute(w, data); err != nil {
		http.Error(w, "template rendering failed", http.StatusInternalServerError)
	}
}

func asset(contentType, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=86400")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		_, _ = w.Write([]byte(body))
	}
}

func loadTemplate() *template.Template {
	indexOnce.Do(func() {
		indexTmpl = template.Must(template.New("index").Parse(indexHTML))
	})
	return indexTmpl
}
