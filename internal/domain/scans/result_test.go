package scans

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestNewResultScoreMatchesSymptoms(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	r := NewResult("r1", "s1", at, true, []string{"Chronic cough", "Skin changes", "Unusual lumps"}, "")
	if r.SymptomScore != 3 {
		t.Fatalf("symptomScore = %d", r.SymptomScore)
	}
	if r.RiskLevel != RiskHigh {
		t.Fatalf("riskLevel = %s", r.RiskLevel)
	}
	if !r.Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v", r.Timestamp)
	}
}

func TestApplyDefaultsOnLegacyRecord(t *testing.T) {
	raw := `{"date":"2024-05-01T10:00:00.000Z","imageMatch":false,"symptomScore":0,"symptoms":["Chronic cough","Skin changes","Persistent pain","Unusual lumps"]}`
	var r ScanResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r.ApplyDefaults()

	if r.SymptomScore != 4 {
		t.Errorf("symptomScore = %d, want 4", r.SymptomScore)
	}
	if r.RiskLevel != RiskModerate {
		t.Errorf("riskLevel = %s, want moderate", r.RiskLevel)
	}
	if r.Verdict != "Moderate Risk: Further tests recommended." {
		t.Errorf("verdict = %q", r.Verdict)
	}
	want := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	if !r.Timestamp.Equal(want) {
		t.Errorf("timestamp = %v, want %v", r.Timestamp, want)
	}
	if r.LegacyDate != "" {
		t.Errorf("legacy date not cleared")
	}
}

func TestApplyDefaultsScoreFollowsSymptoms(t *testing.T) {
	raw := `{"imageMatch":true,"symptomScore":3,"symptoms":[],"riskLevel":"high"}`
	var r ScanResult
	if err := json.Unmarshal([]byte(raw), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	r.ApplyDefaults()
	if r.SymptomScore != len(r.Symptoms) || r.SymptomScore != 0 {
		t.Fatalf("symptomScore = %d, symptoms = %v", r.SymptomScore, r.Symptoms)
	}

	r = ScanResult{SymptomScore: 5}
	r.ApplyDefaults()
	if r.SymptomScore != 0 {
		t.Fatalf("score without symptoms = %d", r.SymptomScore)
	}
	if r.RiskLevel != RiskLow {
		t.Fatalf("riskLevel = %s, want low", r.RiskLevel)
	}
}

func TestApplyDefaultsKeepsStoredVerdict(t *testing.T) {
	r := ScanResult{RiskLevel: RiskHigh, Verdict: "custom", Symptoms: nil}
	r.ApplyDefaults()
	if r.Verdict != "custom" {
		t.Fatalf("verdict overwritten: %q", r.Verdict)
	}
	if r.Symptoms == nil || len(r.Recommendations) == 0 {
		t.Fatalf("defaults not applied: %#v", r)
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize([]ScanResult{{RiskLevel: RiskHigh}, {RiskLevel: RiskLow}, {RiskLevel: RiskLow}, {RiskLevel: RiskModerate}})
	if s.Total != 4 || s.High != 1 || s.Moderate != 1 || s.Low != 2 {
		t.Fatalf("unexpected summary %#v", s)
	}
}

func TestNewPaginatedResult(t *testing.T) {
	items := make([]ScanResult, 45)
	p := NewPaginatedResult(items, 3, 20)
	if len(p.Data) != 5 || p.TotalPages != 3 || p.Total != 45 {
		t.Fatalf("unexpected page %#v", p)
	}
	p = NewPaginatedResult(items, 9, 20)
	if len(p.Data) != 0 {
		t.Fatalf("page past end should be empty, got %d", len(p.Data))
	}
}

func TestNewPaginatedResultHugeValues(t *testing.T) {
	items := make([]ScanResult, 45)
	p := NewPaginatedResult(items, 1<<62, 20)
	if len(p.Data) != 0 || p.Page != 1<<62 || p.TotalPages != 3 {
		t.Fatalf("huge page: %#v", p)
	}
	maxInt := int(^uint(0) >> 1)
	p = NewPaginatedResult(items, 1, maxInt)
	if len(p.Data) != 45 || p.TotalPages != 1 {
		t.Fatalf("huge page size: len=%d pages=%d", len(p.Data), p.TotalPages)
	}
	p = NewPaginatedResult(items, maxInt, maxInt)
	if len(p.Data) != 0 {
		t.Fatalf("huge page and size: len=%d", len(p.Data))
	}
}

func TestImageValidate(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)

	img := Image{Name: "scan.png", Data: png}
	if err := img.Validate(0); err != nil {
		t.Fatalf("valid png rejected: %v", err)
	}
	if img.ContentType != "image/png" {
		t.Fatalf("contentType = %q", img.ContentType)
	}

	if err := (&Image{}).Validate(0); !errors.Is(err, ErrEmptyImage) {
		t.Fatalf("expected ErrEmptyImage, got %v", err)
	}
	if err := (&Image{Data: []byte("hello, world")}).Validate(0); !errors.Is(err, ErrNotAnImage) {
		t.Fatalf("expected ErrNotAnImage, got %v", err)
	}
	if err := (&Image{Data: png}).Validate(8); !errors.Is(err, ErrImageTooLarge) {
		t.Fatalf("expected ErrImageTooLarge, got %v", err)
	}
}

func TestSymptomSet(t *testing.T) {
	var ss SymptomSet
	if !ss.Toggle("Unusual lumps") || !ss.Toggle("Sudden weight loss") {
		t.Fatal("toggle on should report selected")
	}
	if got := ss.Slice(); len(got) != 2 || got[0] != "Sudden weight loss" {
		t.Fatalf("expected vocabulary order, got %v", got)
	}
	if ss.Toggle("Unusual lumps") {
		t.Fatal("toggle off should report unselected")
	}
	if ss.Len() != 1 || ss.Has("Unusual lumps") {
		t.Fatalf("unexpected set %v", ss.Slice())
	}
	if _, ok := NormalizeSymptom("  Chronic cough "); !ok {
		t.Fatal("trimmed symptom not recognised")
	}
	if _, ok := NormalizeSymptom("Headache"); ok {
		t.Fatal("unknown symptom accepted")
	}
	if len(Symptoms()) != 10 {
		t.Fatalf("vocabulary size %d", len(Symptoms()))
	}
}
