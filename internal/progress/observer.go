package progress

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// Observer は走査の進捗を受け取る
type Observer interface {
	Publish(Snapshot)
	Done(Snapshot)
}

type NoopObserver struct{}

func (NoopObserver) Publish(Snapshot) {}
func (NoopObserver) Done(Snapshot)    {}

// ObserverFunc adapts a function to Observer. Done is ignored.
type ObserverFunc func(Snapshot)

func (f ObserverFunc) Publish(s Snapshot) { f(s) }
func (ObserverFunc) Done(Snapshot)        {}

// ShouldShowProgress decides whether progress is rendered. no wins over force;
// otherwise progress is shown only when stderr is a terminal.
func ShouldShowProgress(force, no bool) bool {
	if no {
		return false
	}
	if force {
		return true
	}
	return isTTY(os.Stderr)
}

type ttyObserver struct {
	w  io.Writer
	mu sync.Mutex
}

type lineObserver struct {
	w  io.Writer
	mu sync.Mutex
}

// NewAutoObserver renders an in-place status line on terminals and one
// key=value line per update elsewhere.
func NewAutoObserver(w io.Writer) Observer {
	if w == nil {
		w = os.Stderr
	}
	if f, ok := w.(*os.File); ok && isTTY(f) {
		return &ttyObserver{w: w}
	}
	return &lineObserver{w: w}
}

func (o *ttyObserver) Publish(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintf(o.w, "\r\033[K[%s] %3d%% %d/%d files, %d exceeding", s.Stage, percent(s.Done, s.Total), s.Done, s.Total, s.Exceeded)
}

func (o *ttyObserver) Done(Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprint(o.w, "\r\033[K")
}

func (o *lineObserver) Publish(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, _ = fmt.Fprintln(o.w, renderLine(s))
}

func (o *lineObserver) Done(Snapshot) {}

func renderLine(s Snapshot) string {
	return fmt.Sprintf("progress stage=%s total=%d done=%d exceeded=%d elapsed_ms=%d", s.Stage, s.Total, s.Done, s.Exceeded, s.Elapsed.Milliseconds())
}

func percent(a, b int) int {
	if b <= 0 {
		if a <= 0 {
			return 0
		}
		return 100
	}
	if a <= 0 {
		return 0
	}
	p := a * 100 / b
	if p > 100 {
		return 100
	}
	return p
}

func isTTY(f *os.File) bool {
	if f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}
