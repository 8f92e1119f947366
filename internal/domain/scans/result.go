package scans

import (
	"time"
)

// ScanResult is one completed screening. It is only ever appended to the
// owner's history, never edited in place.
type ScanResult struct {
	ID              ResultID  `json:"id,omitempty"`
	SessionID       SessionID `json:"sessionId,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	ImageMatch      bool      `json:"imageMatch"`
	SymptomScore    int       `json:"symptomScore"`
	Symptoms        []string  `json:"symptoms"`
	RiskLevel       RiskLevel `json:"riskLevel"`
	Verdict         string    `json:"verdict"`
	Recommendations []string  `json:"recommendations"`
	ImageRef        string    `json:"imageRef,omitempty"`

	// LegacyDate is the "date" field older records carry instead of
	// timestamp. It is folded into Timestamp by ApplyDefaults.
	LegacyDate string `json:"date,omitempty"`
}

// NewResult classifies and builds a result. symptomScore is always
// len(symptoms).
func NewResult(id ResultID, session SessionID, at time.Time, imageMatch bool, symptoms []string, imageRef string) ScanResult {
	syms := make([]string, len(symptoms))
	copy(syms, symptoms)
	a := Classify(imageMatch, len(syms))
	return ScanResult{
		ID:              id,
		SessionID:       session,
		Timestamp:       at.UTC(),
		ImageMatch:      imageMatch,
		SymptomScore:    len(syms),
		Symptoms:        syms,
		RiskLevel:       a.Level,
		Verdict:         a.Verdict,
		Recommendations: a.Recommendations,
		ImageRef:        imageRef,
	}
}

var legacyDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"1/2/2006, 3:04:05 PM",
	"1/2/2006",
}

// ApplyDefaults fills fields missing from older records.
func (r *ScanResult) ApplyDefaults() {
	if r.Symptoms == nil {
		r.Symptoms = []string{}
	}
	r.SymptomScore = len(r.Symptoms)
	if r.Timestamp.IsZero() && r.LegacyDate != "" {
		for _, layout := range legacyDateLayouts {
			if t, err := time.Parse(layout, r.LegacyDate); err == nil {
				r.Timestamp = t.UTC()
				break
			}
		}
	}
	r.LegacyDate = ""

	if !r.RiskLevel.Valid() {
		a := Classify(r.ImageMatch, r.SymptomScore)
		r.RiskLevel = a.Level
		r.Verdict = a.Verdict
		r.Recommendations = a.Recommendations
		return
	}
	if r.Verdict == "" || len(r.Recommendations) == 0 {
		a := AssessmentFor(r.RiskLevel)
		if r.Verdict == "" {
			r.Verdict = a.Verdict
		}
		if len(r.Recommendations) == 0 {
			r.Recommendations = a.Recommendations
		}
	}
}

// Summary counts results per risk level.
type Summary struct {
	Total    int `json:"total"`
	High     int `json:"high"`
	Moderate int `json:"moderate"`
	Low      int `json:"low"`
}

// Summarize counts results per risk level.
func Summarize(results []ScanResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.RiskLevel {
		case RiskHigh:
			s.High++
		case RiskModerate:
			s.Moderate++
		default:
			s.Low++
		}
	}
	return s
}
