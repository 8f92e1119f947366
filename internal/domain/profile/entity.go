package profile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNoProfile      = errors.New("no profile")
	ErrInvalidProfile = errors.New("invalid profile")
)

type Theme string

const (
	ThemeLight Theme = "light"
	ThemeDark  Theme = "dark"
)

type FontSize string

const (
	FontSmall  FontSize = "small"
	FontMedium FontSize = "medium"
	FontLarge  FontSize = "large"
)

type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address"`
}

type MedicalEvent struct {
	Date      string `json:"date"`
	Condition string `json:"condition"`
	Treatment string `json:"treatment"`
	Doctor    string `json:"doctor"`
}

// UserProfile is the owner's singleton profile record.
type UserProfile struct {
	Email             string         `json:"email"`
	Name              string         `json:"name"`
	Age               string         `json:"age"`
	Area              string         `json:"area"`
	Medications       string         `json:"medications,omitempty"`
	Allergies         string         `json:"allergies,omitempty"`
	EmergencyContacts string         `json:"emergencyContacts,omitempty"`
	HomeLocation      *Location      `json:"homeLocation,omitempty"`
	Theme             Theme          `json:"theme"`
	FontSize          FontSize       `json:"fontSize"`
	MedicalHistory    []MedicalEvent `json:"medicalHistory,omitempty"`
}

func (p *UserProfile) ApplyDefaults() {
	if p.Theme == "" {
		p.Theme = ThemeLight
	}
	if p.FontSize == "" {
		p.FontSize = FontMedium
	}
}

// Validate checks the profile is well formed. There are no credentials.
func (p *UserProfile) Validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Email = strings.TrimSpace(p.Email)
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	}
	if at := strings.Index(p.Email, "@"); at <= 0 || at == len(p.Email)-1 {
		return fmt.Errorf("%w: email %q is not valid", ErrInvalidProfile, p.Email)
	}
	switch p.Theme {
	case "", ThemeLight, ThemeDark:
	default:
		return fmt.Errorf("%w: theme %q (allowed: light, dark)", ErrInvalidProfile, p.Theme)
	}
	switch p.FontSize {
	case "", FontSmall, FontMedium, FontLarge:
	default:
		return fmt.Errorf("%w: fontSize %q (allowed: small, medium, large)", ErrInvalidProfile, p.FontSize)
	}
	if loc := p.HomeLocation; loc != nil {
		if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
			return fmt.Errorf("%w: home location out of range", ErrInvalidProfile)
		}
	}
	return nil
}

// ProfileUpdate carries a partial update; nil fields are left alone.
type ProfileUpdate struct {
	Email             *string         `json:"email,omitempty"`
	Name              *string         `json:"name,omitempty"`
	Age               *string         `json:"age,omitempty"`
	Area              *string         `json:"area,omitempty"`
	Medications       *string         `json:"medications,omitempty"`
	Allergies         *string         `json:"allergies,omitempty"`
	EmergencyContacts *string         `json:"emergencyContacts,omitempty"`
	HomeLocation      *Location       `json:"homeLocation,omitempty"`
	Theme             *Theme          `json:"theme,omitempty"`
	FontSize          *FontSize       `json:"fontSize,omitempty"`
	MedicalHistory    *[]MedicalEvent `json:"medicalHistory,omitempty"`
}

// Apply merges u into a copy of p.
func (u ProfileUpdate) Apply(p UserProfile) UserProfile {
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&p.Email, u.Email)
	set(&p.Name, u.Name)
	set(&p.Age, u.Age)
	set(&p.Area, u.Area)
	set(&p.Medications, u.Medications)
	set(&p.Allergies, u.Allergies)
	set(&p.EmergencyContacts, u.EmergencyContacts)
	if u.HomeLocation != nil {
		loc := *u.HomeLocation
		p.HomeLocation = &loc
	}
	if u.Theme != nil {
		p.Theme = *u.Theme
	}
	if u.FontSize != nil {
		p.FontSize = *u.FontSize
	}
	if u.MedicalHistory != nil {
		p.MedicalHistory = append([]MedicalEvent(nil), (*u.MedicalHistory)...)
	}
	return p
}
