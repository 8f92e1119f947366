package prompt

import (
	"encoding/json"
	"fmt"
	"strings"
)

// GetSystemPrompt provides strict directions and schema for JSON output.
func GetSystemPrompt() string {
	return `You are a medical imaging screening assistant. You look at one image and decide whether it shows a pattern that warrants further cancer screening. You are not giving a diagnosis.

Requirements:
- Output must be a single JSON object, no markdown, no commentary, no code fences.
- "match" is true only when the image shows a pattern worth following up.
- "confidence" is a number between 0 and 1.
- If the image is unreadable or not a medical image, answer match=false with low confidence.

Schema:
{"match": <boolean>, "confidence": <number>}`
}

// GetUserPrompt builds a compact user message around the uploaded file name.
func GetUserPrompt(name string) string {
	if name == "" {
		name = "unnamed"
	}
	return fmt.Sprintf("Screen the attached image (file: %s) and respond with the JSON per schema.", name)
}

// Verdict is the structure the system prompt asks for.
type Verdict struct {
	Match      bool    `json:"match"`
	Confidence float64 `json:"confidence"`
}

// ParseVerdict reads the model reply. Code fences around the JSON are
// tolerated.
func ParseVerdict(content string) (Verdict, error) {
	s := strings.TrimSpace(content)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)

	var raw struct {
		Match      *bool   `json:"match"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(s), &raw); err != nil {
		return Verdict{}, fmt.Errorf("failed to parse verdict: %w", err)
	}
	if raw.Match == nil {
		return Verdict{}, fmt.Errorf("verdict is missing \"match\"")
	}
	return Verdict{Match: *raw.Match, Confidence: raw.Confidence}, nil
}
