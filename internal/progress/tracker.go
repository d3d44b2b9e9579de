// Package progress reports how far a workspace scan has come.
package progress

import (
	"sync"
	"time"
)

type Stage string

const (
	StageScan Stage = "scan"
	StageDone Stage = "done"
)

// Snapshot は進捗のある時点の状態
type Snapshot struct {
	Stage    Stage
	Total    int
	Done     int
	Exceeded int
	Elapsed  time.Duration
}

const defaultInterval = 100 * time.Millisecond

// Tracker counts scanned files and forwards throttled snapshots to an
// Observer. It is safe for concurrent use by scan workers.
type Tracker struct {
	mu       sync.Mutex
	obs      Observer
	total    int
	done     int
	exceeded int
	start    time.Time
	last     time.Time
	interval time.Duration
	now      func() time.Time
}

func NewTracker(total int, obs Observer) *Tracker {
	if obs == nil {
		obs = NoopObserver{}
	}
	t := &Tracker{obs: obs, total: total, interval: defaultInterval, now: time.Now}
	t.start = t.now()
	return t
}

// Advance records one scanned file and the number of exceeding functions in it.
func (t *Tracker) Advance(exceeded int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done++
	t.exceeded += exceeded
	now := t.now()
	if t.done < t.total && now.Sub(t.last) < t.interval {
		return
	}
	t.last = now
	t.obs.Publish(t.snapshotLocked(StageScan, now))
}

// Finish publishes the final snapshot.
func (t *Tracker) Finish() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.snapshotLocked(StageDone, t.now())
	t.obs.Done(s)
	return s
}

func (t *Tracker) snapshotLocked(stage Stage, now time.Time) Snapshot {
	return Snapshot{
		Stage:    stage,
		Total:    t.total,
		Done:     t.done,
		Exceeded: t.exceeded,
		Elapsed:  now.Sub(t.start),
	}
}
