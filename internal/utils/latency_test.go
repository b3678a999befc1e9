package utils

import (
	"testing"
	"time"
)

func TestLatencyTrackerPercentilePerLabel(t *testing.T) {
	tracker := NewLatencyTracker(10)
	for i := 1; i <= 5; i++ {
		tracker.Observe(LatencyRun, time.Duration(i*10)*time.Millisecond)
	}
	tracker.Observe(LatencyDetect, 2*time.Second)

	if got := tracker.Count(LatencyRun); got != 5 {
		t.Fatalf("expected 5 run samples, got %d", got)
	}
	if p95 := tracker.Percentile(LatencyRun, 95); p95 < 40*time.Millisecond || p95 > 50*time.Millisecond {
		t.Fatalf("run p95 leaked detect samples: %v", p95)
	}
	if p50 := tracker.Percentile(LatencyDetect, 50); p50 != 2*time.Second {
		t.Fatalf("unexpected detect p50 %v", p50)
	}
	if tracker.Percentile("unknown", 95) != 0 || tracker.Count("unknown") != 0 {
		t.Fatalf("unknown label should be empty")
	}
}

func TestLatencyTrackerEvictsOldest(t *testing.T) {
	tracker := NewLatencyTracker(3)
	for i := 0; i < 10; i++ {
		tracker.Observe(LatencyRun, time.Duration(i)*time.Millisecond)
	}
	if tracker.Count(LatencyRun) != 3 {
		t.Fatalf("expected window size 3, got %d", tracker.Count(LatencyRun))
	}
	if min := tracker.Percentile(LatencyRun, 0); min != 7*time.Millisecond {
		t.Fatalf("expected oldest samples evicted, min=%v", min)
	}
	if max := tracker.Percentile(LatencyRun, 100); max != 9*time.Millisecond {
		t.Fatalf("unexpected max %v", max)
	}
}
