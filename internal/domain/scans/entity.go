package scans

import (
	"fmt"
	"strings"
)

// SessionID identifies one wizard run.
type SessionID string

// ResultID identifies one persisted ScanResult.
type ResultID string

// Step enum. Steps are strictly ordered; a session only moves one step at a
// time.
type Step int

const (
	StepUploadImage Step = iota
	StepAnalyzing
	StepSelectSymptoms
	StepResults
)

var stepNames = [...]string{
	StepUploadImage:    "upload_image",
	StepAnalyzing:      "analyzing",
	StepSelectSymptoms: "select_symptoms",
	StepResults:        "results",
}

// StepTitles are the labels shown in the progress bar.
var StepTitles = [...]string{
	StepUploadImage:    "Upload Medical Image",
	StepAnalyzing:      "Analyze Image",
	StepSelectSymptoms: "Select Symptoms",
	StepResults:        "Final Results",
}

func (s Step) String() string {
	if s < StepUploadImage || s > StepResults {
		return fmt.Sprintf("step(%d)", int(s))
	}
	return stepNames[s]
}

func (s Step) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Step) UnmarshalText(b []byte) error {
	for i, name := range stepNames {
		if name == string(b) {
			*s = Step(i)
			return nil
		}
	}
	return fmt.Errorf("unknown step %q", b)
}

// RiskLevel enum
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
)

// Rank orders risk levels for sorting; unknown levels rank lowest.
func (r RiskLevel) Rank() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskModerate:
		return 2
	case RiskLow:
		return 1
	default:
		return 0
	}
}

func (r RiskLevel) Valid() bool { return r.Rank() > 0 }

// ParseRiskLevel accepts the level names case-insensitively.
func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("invalid risk level: %q (allowed: low, moderate, high)", s)
	}
	return r, nil
}
