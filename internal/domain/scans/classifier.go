package scans

// HighRiskSymptomThreshold is the symptom count at which symptoms alone
// count as a risk signal.
const HighRiskSymptomThreshold = 3

// Assessment is the classifier output.
type Assessment struct {
	Level           RiskLevel `json:"riskLevel"`
	Verdict         string    `json:"verdict"`
	Recommendations []string  `json:"recommendations"`
}

var assessments = map[RiskLevel]Assessment{
	RiskHigh: {
		Level:   RiskHigh,
		Verdict: "High Risk: Consult a doctor immediately.",
		Recommendations: []string{
			"Schedule an appointment with an oncologist within 48 hours",
			"Bring all medical records and this scan result",
			"Consider getting a second opinion",
			"Avoid self-medication until professional consultation",
		},
	},
	RiskModerate: {
		Level:   RiskModerate,
		Verdict: "Moderate Risk: Further tests recommended.",
		Recommendations: []string{
			"Schedule a consultation with your primary care physician",
			"Request additional diagnostic tests",
			"Monitor symptoms closely",
			"Maintain a symptom diary",
		},
	},
	RiskLow: {
		Level:   RiskLow,
		Verdict: "Low Risk: likely safe.",
		Recommendations: []string{
			"Continue regular health check-ups",
			"Maintain a healthy lifestyle",
			"Monitor for any new symptoms",
			"Schedule routine screening as recommended",
		},
	},
}

// Classify maps an oracle match and a symptom count to a risk assessment.
// First match wins:
//
//	match && count >= 3   -> high
//	match != (count >= 3) -> moderate
//	otherwise             -> low
func Classify(imageMatch bool, symptomCount int) Assessment {
	manySymptoms := symptomCount >= HighRiskSymptomThreshold

	switch {
	case imageMatch && manySymptoms:
		return AssessmentFor(RiskHigh)
	case imageMatch != manySymptoms:
		return AssessmentFor(RiskModerate)
	default:
		return AssessmentFor(RiskLow)
	}
}

// AssessmentFor returns the fixed verdict and recommendations of a level.
// Unknown levels get the low assessment.
func AssessmentFor(level RiskLevel) Assessment {
	a, ok := assessments[level]
	if !ok {
		a = assessments[RiskLow]
	}
	recs := make([]string, len(a.Recommendations))
	copy(recs, a.Recommendations)
	a.Recommendations = recs
	return a
}
