// Package diagstore keeps the latest findings per file and notifies
// subscribers when they change.
package diagstore

import (
	"sort"
	"sync"

	"github.com/phyten/funclen/internal/model"
)

type ChangeKind string

const (
	ChangeSet    ChangeKind = "set"
	ChangeDelete ChangeKind = "delete"
	ChangeClear  ChangeKind = "clear"
)

// Change describes one store mutation. File is empty for ChangeClear.
type Change struct {
	Kind     ChangeKind      `json:"kind"`
	File     string          `json:"file,omitempty"`
	Findings []model.Finding `json:"findings,omitempty"`
}

// Entry is a file and its findings as returned by Snapshot.
type Entry struct {
	File     string          `json:"file"`
	Findings []model.Finding `json:"findings"`
}

const subscriberBuffer = 64

// Store maps file identity to its findings. Entries are replaced wholesale.
type Store struct {
	mu      sync.RWMutex
	entries map[string][]model.Finding
	subs    map[int]chan Change
	nextID  int
}

func New() *Store {
	return &Store{
		entries: make(map[string][]model.Finding),
		subs:    make(map[int]chan Change),
	}
}

// Set replaces the findings recorded for file.
func (s *Store) Set(file string, findings []model.Finding) {
	cp := cloneFindings(findings)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[file] = cp
	s.publishLocked(Change{Kind: ChangeSet, File: file, Findings: cloneFindings(cp)})
}

// Get returns a copy of the findings for file.
func (s *Store) Get(file string) ([]model.Finding, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.entries[file]
	if !ok {
		return nil, false
	}
	return cloneFindings(f), true
}

// Delete drops file. Deleting an unknown file is a no-op.
func (s *Store) Delete(file string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[file]; !ok {
		return
	}
	delete(s.entries, file)
	s.publishLocked(Change{Kind: ChangeDelete, File: file})
}

// Rename drops the entry under oldFile and stores findings under newFile.
func (s *Store) Rename(oldFile, newFile string, findings []model.Finding) {
	cp := cloneFindings(findings)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[oldFile]; ok && oldFile != newFile {
		delete(s.entries, oldFile)
		s.publishLocked(Change{Kind: ChangeDelete, File: oldFile})
	}
	s.entries[newFile] = cp
	s.publishLocked(Change{Kind: ChangeSet, File: newFile, Findings: cloneFindings(cp)})
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string][]model.Finding)
	s.publishLocked(Change{Kind: ChangeClear})
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Snapshot returns every entry sorted by file.
func (s *Store) Snapshot() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for file, findings := range s.entries {
		out = append(out, Entry{File: file, Findings: cloneFindings(findings)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].File < out[j].File })
	return out
}

// Subscribe returns a channel of changes and a cancel func that closes it.
// A subscriber that falls behind loses changes rather than blocking writers.
func (s *Store) Subscribe() (<-chan Change, func()) {
	ch := make(chan Change, subscriberBuffer)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

func (s *Store) publishLocked(c Change) {
	for _, ch := range s.subs {
		select {
		case ch <- c:
		default:
		}
	}
}

func cloneFindings(in []model.Finding) []model.Finding {
	if in == nil {
		return []model.Finding{}
	}
	out := make([]model.Finding, len(in))
	copy(out, in)
	return out
}
