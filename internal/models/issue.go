package models

import (
	"regexp"
	"time"
)

// Operator enumerates signature comparison operators.
type Operator string

const (
	OperatorEquals       Operator = "Equals"
	OperatorNotEquals    Operator = "NotEquals"
	OperatorContains     Operator = "Contains"
	OperatorGreaterThan  Operator = "GreaterThan"
	OperatorLessThan     Operator = "LessThan"
	OperatorMatchesRegex Operator = "MatchesRegex"
)

// KnownOperator reports whether op is part of the closed operator set.
func KnownOperator(op Operator) bool {
	switch op {
	case OperatorEquals, OperatorNotEquals, OperatorContains,
		OperatorGreaterThan, OperatorLessThan, OperatorMatchesRegex:
		return true
	}
	return false
}

// Signature is one field condition of a pattern rule.
type Signature struct {
	Field    string   `yaml:"field"`
	Operator Operator `yaml:"operator"`
	Value    any      `yaml:"value"`

	// Compiled holds the regex for MatchesRegex signatures, compiled once
	// at catalog load.
	Compiled *regexp.Regexp `yaml:"-"`
}

// KeywordRule is the keyword variant of a pattern rule: every keyword must
// be a case-insensitive substring of the named field.
type KeywordRule struct {
	Field          string   `yaml:"field"`
	Keywords       []string `yaml:"keywords"`
	MinOccurrences int      `yaml:"minOccurrences"`
}

// PatternRule classifies events into a named issue category. A rule carries
// either Signatures (conjunction) or a Keyword variant.
type PatternRule struct {
	ID              string       `yaml:"id"`
	Description     string       `yaml:"description"`
	Severity        Severity     `yaml:"severity"`
	SuggestedAction string       `yaml:"suggestedAction"`
	Signatures      []Signature  `yaml:"signatures"`
	Keyword         *KeywordRule `yaml:"keyword"`
}

// MatchedIssue is one event satisfying one pattern rule. Read-only once
// produced by the matcher.
type MatchedIssue struct {
	PatternID       string
	Description     string
	Event           Event
	Severity        Severity
	SuggestedAction string
	Timestamp       time.Time
}
