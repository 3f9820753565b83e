package engine

import (
	"log/slog"
	"sort"
	"time"

	"github.com/remedystack/remedy-engine/internal/models"
)

const correlationSampleLimit = 5

// CorrelatorOptions tunes time-window co-occurrence detection.
type CorrelatorOptions struct {
	// WindowSeconds is the full width of the symmetric interval opened
	// around each primary occurrence.
	WindowSeconds float64
	// PrimaryID selects the anchor identifier; empty picks the most
	// frequent identifier in the batch.
	PrimaryID string
	// MinCount drops pairs whose summed co-occurrence stays below it.
	MinCount int
	// IDField and TimeField name the event fields carrying identity and
	// timestamp. Defaults: EventId, TimeCreated.
	IDField   string
	TimeField string
}

// Correlator finds time-windowed co-occurrence between event identifiers.
type Correlator struct {
	logger *slog.Logger
}

// NewCorrelator constructs a Correlator.
func NewCorrelator(logger *slog.Logger) *Correlator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Correlator{logger: logger}
}

type occurrence struct {
	index int
	id    string
	at    time.Time
}

// Correlate opens a symmetric window around every occurrence of the primary
// identifier and counts every other event instance falling inside it. Pairs
// are keyed by the two identifiers sorted lexicographically and returned
// sorted by count descending.
func (c *Correlator) Correlate(events []models.Event, opts CorrelatorOptions) []models.CorrelationPair {
	if opts.IDField == "" {
		opts.IDField = "EventId"
	}
	if opts.TimeField == "" {
		opts.TimeField = "TimeCreated"
	}
	if opts.WindowSeconds <= 0 {
		opts.WindowSeconds = 300
	}
	if opts.MinCount < 1 {
		opts.MinCount = 1
	}

	occurrences := make([]occurrence, 0, len(events))
	for i, event := range events {
		id, okID := event.String(opts.IDField)
		at, okTime := event.Time(opts.TimeField)
		if !okID || id == "" || !okTime {
			c.logger.Warn("dropping event without identity or timestamp",
				slog.Int("index", i), slog.String("id_field", opts.IDField), slog.String("time_field", opts.TimeField))
			continue
		}
		occurrences = append(occurrences, occurrence{index: i, id: id, at: at})
	}
	if len(occurrences) == 0 {
		return nil
	}

	primary := opts.PrimaryID
	if primary == "" {
		primary = mostFrequentID(occurrences)
	}

	half := time.Duration(opts.WindowSeconds * float64(time.Second) / 2)
	counts := make(map[string]int)
	samples := make(map[string][]time.Time)

	for _, anchor := range occurrences {
		if anchor.id != primary {
			continue
		}
		windowStart := anchor.at.Add(-half)
		windowEnd := anchor.at.Add(half)

		for _, other := range occurrences {
			// Identity comparison: the anchor instance never counts
			// against itself, equal-valued instances still do.
			if other.index == anchor.index {
				continue
			}
			if other.at.Before(windowStart) || other.at.After(windowEnd) {
				continue
			}
			key := pairKey(primary, other.id)
			counts[key]++
			if len(samples[key]) < correlationSampleLimit {
				samples[key] = append(samples[key], anchor.at)
			}
		}
	}

	pairs := make([]models.CorrelationPair, 0, len(counts))
	for key, count := range counts {
		if count < opts.MinCount {
			continue
		}
		first, second := splitPairKey(key)
		pairs = append(pairs, models.CorrelationPair{
			FirstID:       first,
			SecondID:      second,
			Count:         count,
			WindowSeconds: opts.WindowSeconds,
			SampleTimes:   samples[key],
		})
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].Count != pairs[j].Count {
			return pairs[i].Count > pairs[j].Count
		}
		if pairs[i].FirstID != pairs[j].FirstID {
			return pairs[i].FirstID < pairs[j].FirstID
		}
		return pairs[i].SecondID < pairs[j].SecondID
	})

	return pairs
}

func mostFrequentID(occurrences []occurrence) string {
	freq := make(map[string]int)
	for _, occ := range occurrences {
		freq[occ.id]++
	}
	best := ""
	bestCount := 0
	for id, count := range freq {
		if count > bestCount || (count == bestCount && id < best) {
			best = id
			bestCount = count
		}
	}
	return best
}

func pairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "\x00" + b
}

func splitPairKey(key string) (string, string) {
	for i := 0; i < len(key); i++ {
		if key[i] == 0 {
			return key[:i], key[i+1:]
		}
	}
	return key, ""
}
