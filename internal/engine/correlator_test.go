package engine

import (
	"testing"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

func correlationEvent(id string, at time.Time) models.Event {
	return models.Event{"EventId": id, "TimeCreated": at}
}

func TestCorrelateSymmetricWindow(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		correlationEvent("7034", base),
		correlationEvent("6008", base.Add(3*time.Second)),
		correlationEvent("7034", base.Add(10*time.Second)),
		correlationEvent("6008", base.Add(12*time.Second)),
		correlationEvent("6008", base.Add(60*time.Second)),
	}

	pairs := NewCorrelator(nil).Correlate(events, CorrelatorOptions{
		WindowSeconds: 10,
		PrimaryID:     "7034",
	})
	if len(pairs) != 1 {
		t.Fatalf("expected 1 pair, got %d: %+v", len(pairs), pairs)
	}
	pair := pairs[0]
	if pair.FirstID != "6008" || pair.SecondID != "7034" {
		t.Fatalf("pair ids not sorted lexicographically: %+v", pair)
	}
	if pair.Count != 2 {
		t.Fatalf("count = %d, want 2", pair.Count)
	}
}

func TestCorrelateIdentityExcludesAnchorInstanceOnly(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		correlationEvent("7034", base),
		correlationEvent("7034", base),
	}

	pairs := NewCorrelator(nil).Correlate(events, CorrelatorOptions{WindowSeconds: 10, PrimaryID: "7034"})
	if len(pairs) != 1 {
		t.Fatalf("expected self-pair for distinct instances, got %d pairs", len(pairs))
	}
	if pairs[0].FirstID != "7034" || pairs[0].SecondID != "7034" || pairs[0].Count != 2 {
		t.Fatalf("unexpected self-pair: %+v", pairs[0])
	}
}

func TestCorrelateDropsUnidentifiableEvents(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		correlationEvent("7034", base),
		{"EventId": "6008"},
		{"TimeCreated": base},
		correlationEvent("6008", base.Add(time.Second)),
	}

	pairs := NewCorrelator(nil).Correlate(events, CorrelatorOptions{WindowSeconds: 10, PrimaryID: "7034"})
	if len(pairs) != 1 || pairs[0].Count != 1 {
		t.Fatalf("expected single pair with count 1, got %+v", pairs)
	}
}

func TestCorrelateMinCountFilters(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		correlationEvent("7034", base),
		correlationEvent("6008", base.Add(time.Second)),
	}

	pairs := NewCorrelator(nil).Correlate(events, CorrelatorOptions{
		WindowSeconds: 10,
		PrimaryID:     "7034",
		MinCount:      2,
	})
	if len(pairs) != 0 {
		t.Fatalf("pairs below min count must be dropped, got %+v", pairs)
	}
}

func TestCorrelatePicksMostFrequentPrimary(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	events := []models.Event{
		correlationEvent("6008", base),
		correlationEvent("6008", base.Add(time.Second)),
		correlationEvent("6008", base.Add(2*time.Second)),
		correlationEvent("7034", base.Add(3*time.Second)),
	}

	pairs := NewCorrelator(nil).Correlate(events, CorrelatorOptions{WindowSeconds: 20})
	for _, pair := range pairs {
		if pair.FirstID != "6008" && pair.SecondID != "6008" {
			t.Fatalf("primary should be most frequent id 6008, got %+v", pair)
		}
	}
	if len(pairs) == 0 {
		t.Fatal("expected at least one pair")
	}
}
