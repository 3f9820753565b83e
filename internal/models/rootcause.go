package models

// RootCauseRule maps a matched issue pattern to a hypothesized cause.
// Confidence is a static weight assigned by the rule author.
type RootCauseRule struct {
	ID               string              `yaml:"id"`
	AppliesToPattern string              `yaml:"appliesToPattern"`
	Description      string              `yaml:"description"`
	Confidence       float64             `yaml:"confidence"`
	EvidenceKeywords map[string][]string `yaml:"evidenceKeywords"`
}

// RootCauseCandidate is a ranked hypothesis for one matched issue.
// Confidence is copied verbatim from the rule; evidence inspection only
// annotates the candidate.
type RootCauseCandidate struct {
	RuleID           string
	Description      string
	Confidence       float64
	EvidenceFound    bool
	EvidenceSummary  string
	NeedsDiagnostics bool
}

// IssueCauses groups the ranked candidates derived for one issue.
type IssueCauses struct {
	Issue      MatchedIssue
	Candidates []RootCauseCandidate
}
