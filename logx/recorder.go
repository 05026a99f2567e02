package logx

import (
	"strings"
	"sync"
)

// Entry is a single message captured by a [Recorder].
type Entry struct {
	Level   Level
	Logger  string
	Message string
}

var _ Sink = (*Recorder)(nil)

// Recorder is a [Sink] that keeps every message in memory.
// It's mostly useful for asserting on log output in tests.
type Recorder struct {
	mux     sync.Mutex
	entries []Entry
}

func NewRecorder() *Recorder {
	return new(Recorder)
}

func (r *Recorder) Log(level Level, logger, msg string) {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.entries = append(r.entries, Entry{Level: level, Logger: logger, Message: msg})
}

// Entries returns a copy of all captured entries.
func (r *Recorder) Entries() []Entry {
	r.mux.Lock()
	defer r.mux.Unlock()
	return append([]Entry(nil), r.entries...)
}

// Count returns the number of entries at the given level whose message contains substr.
// An empty substr matches everything.
func (r *Recorder) Count(level Level, substr string) int {
	r.mux.Lock()
	defer r.mux.Unlock()
	count := 0
	for _, entry := range r.entries {
		if entry.Level == level && strings.Contains(entry.Message, substr) {
			count++
		}
	}
	return count
}

// Contains reports whether any entry, at any level, contains substr.
func (r *Recorder) Contains(substr string) bool {
	r.mux.Lock()
	defer r.mux.Unlock()
	for _, entry := range r.entries {
		if strings.Contains(entry.Message, substr) {
			return true
		}
	}
	return false
}

func (r *Recorder) Reset() {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.entries = nil
}
