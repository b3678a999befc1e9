package utils

import (
	"sort"
	"sync"
	"time"
)

// Latency labels recorded by the service.
const (
	LatencyRun    = "run"
	LatencyDetect = "detect"
)

// LatencyTracker keeps a bounded window of recent durations per label
// (run, detect) and computes percentiles over each window.
type LatencyTracker struct {
	mu      sync.RWMutex
	windows map[string]*latencyWindow
	maxSize int
}

// latencyWindow is a ring buffer; next is the slot the next sample overwrites.
type latencyWindow struct {
	samples []time.Duration
	next    int
}

// NewLatencyTracker keeps up to maxSize samples for each label.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{windows: make(map[string]*latencyWindow), maxSize: maxSize}
}

// Observe records d under label, evicting that label's oldest sample when full.
func (l *LatencyTracker) Observe(label string, d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[label]
	if !ok {
		w = &latencyWindow{samples: make([]time.Duration, 0, l.maxSize)}
		l.windows[label] = w
	}
	if len(w.samples) < l.maxSize {
		w.samples = append(w.samples, d)
		return
	}
	w.samples[w.next] = d
	w.next = (w.next + 1) % l.maxSize
}

// Percentile returns the p-th (0-100) percentile for label, zero without samples.
func (l *LatencyTracker) Percentile(label string, p float64) time.Duration {
	l.mu.RLock()
	w, ok := l.windows[label]
	var sorted []time.Duration
	if ok {
		sorted = append(sorted, w.samples...)
	}
	l.mu.RUnlock()

	if len(sorted) == 0 {
		return 0
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	switch {
	case p <= 0:
		return sorted[0]
	case p >= 100:
		return sorted[len(sorted)-1]
	}
	return sorted[int((p/100.0)*float64(len(sorted)-1))]
}

// Count returns the number of samples held for label.
func (l *LatencyTracker) Count(label string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if w, ok := l.windows[label]; ok {
		return len(w.samples)
	}
	return 0
}
