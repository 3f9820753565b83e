package models

import "time"

// CorrelationPair records time-windowed co-occurrence between two event
// identifiers. Identifiers are order-normalized (lexicographically) so the
// pair (A,B) and (B,A) aggregate into one record.
type CorrelationPair struct {
	FirstID       string
	SecondID      string
	Count         int
	WindowSeconds float64
	SampleTimes   []time.Time
}
