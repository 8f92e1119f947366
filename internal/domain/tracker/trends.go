package tracker

import (
	"sort"
	"time"
)

// DefaultTrendDays is the trend window when none is given.
const DefaultTrendDays = 30

// SevereThreshold is the severity from which an entry counts as a severe
// episode.
const SevereThreshold = 7

type SymptomCount struct {
	Symptom string `json:"symptom"`
	Count   int    `json:"count"`
}

// Trends summarises the symptom diary.
type Trends struct {
	Days []string `json:"days"`
	// Daily marks, per symptom, which days of Days it was logged on.
	Daily           map[string][]int `json:"daily"`
	TotalEntries    int              `json:"totalEntries"`
	AverageSeverity float64          `json:"averageSeverity"`
	SevereEpisodes  int              `json:"severeEpisodes"`
	MostCommon      []SymptomCount   `json:"mostCommon"`
	// SeverityAlert is set when more than three severe episodes were logged.
	SeverityAlert bool `json:"severityAlert"`
}

// ComputeTrends builds the day grid ending at today (inclusive). Totals
// cover every entry, the grid only the window.
func ComputeTrends(entries []SymptomEntry, today time.Time, days int) Trends {
	if days <= 0 {
		days = DefaultTrendDays
	}
	t := Trends{
		Days:       make([]string, days),
		Daily:      make(map[string][]int),
		MostCommon: []SymptomCount{},
	}
	index := make(map[string]int, days)
	for i := 0; i < days; i++ {
		d := today.AddDate(0, 0, i-days+1).Format(DateLayout)
		t.Days[i] = d
		index[d] = i
	}

	counts := make(map[string]int)
	total := 0
	for _, e := range entries {
		total += e.Severity
		if e.Severity >= SevereThreshold {
			t.SevereEpisodes++
		}
		day, inWindow := index[e.Date]
		for _, s := range e.Symptoms {
			counts[s]++
			if !inWindow {
				continue
			}
			row, ok := t.Daily[s]
			if !ok {
				row = make([]int, days)
				t.Daily[s] = row
			}
			row[day] = 1
		}
	}

	t.TotalEntries = len(entries)
	if len(entries) > 0 {
		t.AverageSeverity = float64(total) / float64(len(entries))
	}
	t.SeverityAlert = t.SevereEpisodes > 3

	for s, c := range counts {
		t.MostCommon = append(t.MostCommon, SymptomCount{Symptom: s, Count: c})
	}
	sort.Slice(t.MostCommon, func(i, j int) bool {
		if t.MostCommon[i].Count != t.MostCommon[j].Count {
			return t.MostCommon[i].Count > t.MostCommon[j].Count
		}
		return t.MostCommon[i].Symptom < t.MostCommon[j].Symptom
	})
	if len(t.MostCommon) > 5 {
		t.MostCommon = t.MostCommon[:5]
	}
	return t
}
