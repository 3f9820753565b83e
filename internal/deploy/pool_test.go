package deploy

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/engine"
	"github.com/remedystack/remedy-engine/internal/models"
)

type fakeRunner struct {
	mu         sync.Mutex
	active     int32
	maxActive  int32
	delay      time.Duration
	seenEvents []int
}

func (f *fakeRunner) Run(ctx context.Context, events []models.Event, opts engine.RunOptions) models.RunReport {
	current := atomic.AddInt32(&f.active, 1)
	defer atomic.AddInt32(&f.active, -1)

	f.mu.Lock()
	if current > f.maxActive {
		f.maxActive = current
	}
	f.seenEvents = append(f.seenEvents, len(events))
	f.mu.Unlock()

	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	return models.RunReport{RunID: "r", Status: models.RunCompleted}
}

func TestRunAllPreservesBatchOrder(t *testing.T) {
	runner := &fakeRunner{}
	pool := NewPool(runner, 2, nil)

	batches := []Batch{
		{Name: "host-a", Events: make([]models.Event, 1)},
		{Name: "host-b", Events: make([]models.Event, 2)},
		{Name: "host-c", Events: make([]models.Event, 3)},
	}

	results, err := pool.RunAll(context.Background(), batches, engine.RunOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for i, want := range []string{"host-a", "host-b", "host-c"} {
		if results[i].Name != want {
			t.Fatalf("results out of order: %+v", results)
		}
	}
}

func TestRunAllHonorsLimit(t *testing.T) {
	runner := &fakeRunner{delay: 20 * time.Millisecond}
	pool := NewPool(runner, 2, nil)

	batches := make([]Batch, 6)
	for i := range batches {
		batches[i] = Batch{Name: "b"}
	}

	if _, err := pool.RunAll(context.Background(), batches, engine.RunOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.maxActive > 2 {
		t.Fatalf("max concurrent runs = %d, limit was 2", runner.maxActive)
	}
}

func TestRunAllCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pool := NewPool(&fakeRunner{}, 1, nil)
	if _, err := pool.RunAll(ctx, []Batch{{Name: "b"}}, engine.RunOptions{}); err == nil {
		t.Fatal("expected context error")
	}
}
