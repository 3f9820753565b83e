package utils

import (
	"errors"
	"testing"
	"time"
)

func TestLatencyTrackerPercentile(t *testing.T) {
	lt := NewLatencyTracker(100)
	for i := 1; i <= 100; i++ {
		lt.Observe(time.Duration(i) * time.Millisecond)
	}

	if got := lt.Count(); got != 100 {
		t.Fatalf("Count=%d, want 100", got)
	}
	if got := lt.Percentile(0); got != 1*time.Millisecond {
		t.Fatalf("p0=%v", got)
	}
	if got := lt.Percentile(100); got != 100*time.Millisecond {
		t.Fatalf("p100=%v", got)
	}
	if got := lt.Percentile(50); got < 40*time.Millisecond || got > 60*time.Millisecond {
		t.Fatalf("p50=%v, want near the median", got)
	}
}

func TestLatencyTrackerBoundsSamples(t *testing.T) {
	lt := NewLatencyTracker(10)
	for i := 0; i < 25; i++ {
		lt.Observe(time.Duration(i) * time.Second)
	}
	if got := lt.Count(); got != 10 {
		t.Fatalf("Count=%d, want bounded at 10", got)
	}
	// oldest samples dropped, so the minimum is from the tail of the stream
	if got := lt.Percentile(0); got != 15*time.Second {
		t.Fatalf("p0=%v, want 15s", got)
	}
}

func TestLatencyTrackerEmpty(t *testing.T) {
	lt := NewLatencyTracker(0)
	if got := lt.Percentile(95); got != 0 {
		t.Fatalf("empty percentile=%v, want 0", got)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	base := errors.New("connection refused")
	err := NewAppError("hub.publish", "posting run report", base)

	if !errors.Is(err, base) {
		t.Fatal("wrapped error lost")
	}
	want := "hub.publish: posting run report: connection refused"
	if err.Error() != want {
		t.Fatalf("Error()=%q, want %q", err.Error(), want)
	}

	bare := NewAppError("catalog.load", "no rules", nil)
	if bare.Error() != "catalog.load: no rules" {
		t.Fatalf("Error()=%q", bare.Error())
	}
}
