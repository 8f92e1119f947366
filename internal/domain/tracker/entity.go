package tracker

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar-day format used by every tracker date.
const DateLayout = "2006-01-02"

var (
	ErrInvalidEntry  = errors.New("invalid entry")
	ErrEntryNotFound = errors.New("entry not found")
)

// CommonSymptoms are the day-to-day symptoms offered by the symptom diary.
var CommonSymptoms = []string{
	"Headache", "Fatigue", "Nausea", "Dizziness", "Chest pain",
	"Shortness of breath", "Abdominal pain", "Back pain", "Joint pain", "Muscle aches",
	"Fever", "Cough", "Sore throat", "Skin rash", "Sleep problems",
	"Anxiety", "Depression", "Memory issues", "Vision problems", "Hearing problems",
}

type Medication struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate,omitempty"`
	Notes     string `json:"notes,omitempty"`
	Reminders bool   `json:"reminders"`
}

func (m Medication) EntryID() string { return m.ID }

// Validate trims fields and fills startDate with today when empty.
func (m *Medication) Validate(today time.Time) error {
	m.Name = strings.TrimSpace(m.Name)
	m.Dosage = strings.TrimSpace(m.Dosage)
	m.Frequency = strings.TrimSpace(m.Frequency)
	if m.Name == "" || m.Dosage == "" || m.Frequency == "" {
		return fmt.Errorf("%w: name, dosage and frequency are required", ErrInvalidEntry)
	}
	if m.StartDate == "" {
		m.StartDate = today.Format(DateLayout)
	}
	start, err := time.Parse(DateLayout, m.StartDate)
	if err != nil {
		return fmt.Errorf("%w: startDate %q", ErrInvalidEntry, m.StartDate)
	}
	if m.EndDate != "" {
		end, err := time.Parse(DateLayout, m.EndDate)
		if err != nil {
			return fmt.Errorf("%w: endDate %q", ErrInvalidEntry, m.EndDate)
		}
		if end.Before(start) {
			return fmt.Errorf("%w: endDate before startDate", ErrInvalidEntry)
		}
	}
	return nil
}

type AllergySeverity string

const (
	AllergyMild     AllergySeverity = "mild"
	AllergyModerate AllergySeverity = "moderate"
	AllergySevere   AllergySeverity = "severe"
)

type Allergy struct {
	ID       string          `json:"id"`
	Allergen string          `json:"allergen"`
	Reaction string          `json:"reaction"`
	Severity AllergySeverity `json:"severity"`
	Notes    string          `json:"notes,omitempty"`
}

func (a Allergy) EntryID() string { return a.ID }

func (a *Allergy) ApplyDefaults() {
	if a.Severity == "" {
		a.Severity = AllergyMild
	}
}

func (a *Allergy) Validate() error {
	a.Allergen = strings.TrimSpace(a.Allergen)
	a.Reaction = strings.TrimSpace(a.Reaction)
	if a.Allergen == "" || a.Reaction == "" {
		return fmt.Errorf("%w: allergen and reaction are required", ErrInvalidEntry)
	}
	a.ApplyDefaults()
	switch a.Severity {
	case AllergyMild, AllergyModerate, AllergySevere:
		return nil
	default:
		return fmt.Errorf("%w: severity %q (allowed: mild, moderate, severe)", ErrInvalidEntry, a.Severity)
	}
}

// SymptomEntry is one day's diary entry.
type SymptomEntry struct {
	ID       string   `json:"id"`
	Date     string   `json:"date"`
	Symptoms []string `json:"symptoms"`
	Severity int      `json:"severity"`
	Notes    string   `json:"notes,omitempty"`
	Triggers string   `json:"triggers,omitempty"`
}

func (e SymptomEntry) EntryID() string { return e.ID }

func (e *SymptomEntry) ApplyDefaults() {
	if e.Symptoms == nil {
		e.Symptoms = []string{}
	}
	if e.Severity < 1 {
		e.Severity = 1
	}
	if e.Severity > 10 {
		e.Severity = 10
	}
}

func (e *SymptomEntry) Validate(today time.Time) error {
	clean := make([]string, 0, len(e.Symptoms))
	seen := make(map[string]bool, len(e.Symptoms))
	for _, s := range e.Symptoms {
		s = strings.TrimSpace(s)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		clean = append(clean, s)
	}
	if len(clean) == 0 {
		return fmt.Errorf("%w: at least one symptom is required", ErrInvalidEntry)
	}
	e.Symptoms = clean
	if e.Severity < 1 || e.Severity > 10 {
		return fmt.Errorf("%w: severity %d (allowed: 1-10)", ErrInvalidEntry, e.Severity)
	}
	if e.Date == "" {
		e.Date = today.Format(DateLayout)
	}
	if _, err := time.Parse(DateLayout, e.Date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidEntry, e.Date)
	}
	return nil
}

// SeverityLabel names a 1-10 severity.
func SeverityLabel(severity int) string {
	switch {
	case severity <= 2:
		return "Mild"
	case severity <= 4:
		return "Moderate"
	case severity <= 6:
		return "Severe"
	default:
		return "Very Severe"
	}
}
