package scans

import (
	"encoding/json"
	"sort"
	"strings"
)

var symptomVocabulary = []string{
	"Sudden weight loss",
	"Persistent fatigue",
	"Unusual lumps",
	"Chronic cough",
	"Skin changes",
	"Frequent infections",
	"Unexplained bleeding",
	"Persistent pain",
	"Difficulty swallowing",
	"Changes in bladder habits",
}

var symptomOrder = func() map[string]int {
	m := make(map[string]int, len(symptomVocabulary))
	for i, s := range symptomVocabulary {
		m[s] = i
	}
	return m
}()

// Symptoms returns the screening vocabulary in display order.
func Symptoms() []string {
	out := make([]string, len(symptomVocabulary))
	copy(out, symptomVocabulary)
	return out
}

// NormalizeSymptom trims s and reports whether it is in the vocabulary.
func NormalizeSymptom(s string) (string, bool) {
	s = strings.TrimSpace(s)
	_, ok := symptomOrder[s]
	return s, ok
}

// SymptomSet is a set of vocabulary symptoms. The zero value is empty and
// ready to use.
type SymptomSet struct {
	m map[string]struct{}
}

// Toggle flips s and reports whether it is now selected. Callers validate s.
func (ss *SymptomSet) Toggle(s string) bool {
	if ss.m == nil {
		ss.m = make(map[string]struct{})
	}
	if _, ok := ss.m[s]; ok {
		delete(ss.m, s)
		return false
	}
	ss.m[s] = struct{}{}
	return true
}

// Replace swaps the whole selection. Duplicates collapse.
func (ss *SymptomSet) Replace(symptoms []string) {
	ss.m = make(map[string]struct{}, len(symptoms))
	for _, s := range symptoms {
		ss.m[s] = struct{}{}
	}
}

func (ss SymptomSet) Has(s string) bool {
	_, ok := ss.m[s]
	return ok
}

func (ss SymptomSet) Len() int { return len(ss.m) }

// Slice returns the selection in vocabulary order.
func (ss SymptomSet) Slice() []string {
	out := make([]string, 0, len(ss.m))
	for s := range ss.m {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		oi, iok := symptomOrder[out[i]]
		oj, jok := symptomOrder[out[j]]
		if iok && jok {
			return oi < oj
		}
		if iok != jok {
			return iok
		}
		return out[i] < out[j]
	})
	return out
}

func (ss SymptomSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(ss.Slice())
}
