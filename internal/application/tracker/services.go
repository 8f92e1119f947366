package tracker

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"github.com/bryanwahyu/canscan/internal/application"
	"github.com/bryanwahyu/canscan/internal/domain/records"
	domain "github.com/bryanwahyu/canscan/internal/domain/tracker"
)

// Service implements the medication, allergy and symptom diaries.
type Service struct {
	store records.Store
	clock application.Clock
	log   logr.Logger
}

func NewService(store records.Store, clock application.Clock, log logr.Logger) *Service {
	if clock == nil {
		clock = application.SystemClock{}
	}
	return &Service{store: store, clock: clock, log: log}
}

type entry interface {
	EntryID() string
}

func add[T any](ctx context.Context, s *Service, owner string, key records.Key, item T) error {
	if err := records.Append(ctx, s.store, s.log, owner, key, item); err != nil {
		return err
	}
	s.log.V(1).Info("entry added", "owner", owner, "key", key)
	return nil
}

func remove[T entry](ctx context.Context, s *Service, owner string, key records.Key, id string, confirm bool) error {
	if !confirm {
		return application.ErrConfirmationRequired
	}
	err := records.Modify(ctx, s.store, s.log, owner, key, func(items []T) ([]T, error) {
		for i, it := range items {
			if it.EntryID() == id {
				return append(items[:i], items[i+1:]...), nil
			}
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrEntryNotFound, id)
	})
	if err != nil {
		return err
	}
	s.log.Info("entry removed", "owner", owner, "key", key, "id", id)
	return nil
}

func (s *Service) AddMedication(ctx context.Context, owner string, m domain.Medication) (domain.Medication, error) {
	if err := m.Validate(s.clock.Now()); err != nil {
		return domain.Medication{}, err
	}
	m.ID = uuid.NewString()
	if err := add(ctx, s, owner, records.KeyMedications, m); err != nil {
		return domain.Medication{}, err
	}
	return m, nil
}

func (s *Service) Medications(ctx context.Context, owner string) ([]domain.Medication, error) {
	return records.LoadList[domain.Medication](ctx, s.store, s.log, owner, records.KeyMedications)
}

func (s *Service) RemoveMedication(ctx context.Context, owner, id string, confirm bool) error {
	return remove[domain.Medication](ctx, s, owner, records.KeyMedications, id, confirm)
}

func (s *Service) AddAllergy(ctx context.Context, owner string, a domain.Allergy) (domain.Allergy, error) {
	if err := a.Validate(); err != nil {
		return domain.Allergy{}, err
	}
	a.ID = uuid.NewString()
	if err := add(ctx, s, owner, records.KeyAllergies, a); err != nil {
		return domain.Allergy{}, err
	}
	return a, nil
}

func (s *Service) Allergies(ctx context.Context, owner string) ([]domain.Allergy, error) {
	return records.LoadList[domain.Allergy](ctx, s.store, s.log, owner, records.KeyAllergies)
}

func (s *Service) RemoveAllergy(ctx context.Context, owner, id string, confirm bool) error {
	return remove[domain.Allergy](ctx, s, owner, records.KeyAllergies, id, confirm)
}

func (s *Service) AddSymptomEntry(ctx context.Context, owner string, e domain.SymptomEntry) (domain.SymptomEntry, error) {
	if err := e.Validate(s.clock.Now()); err != nil {
		return domain.SymptomEntry{}, err
	}
	e.ID = uuid.NewString()
	if err := add(ctx, s, owner, records.KeySymptoms, e); err != nil {
		return domain.SymptomEntry{}, err
	}
	return e, nil
}

// SymptomEntries returns the diary, newest day first.
func (s *Service) SymptomEntries(ctx context.Context, owner string) ([]domain.SymptomEntry, error) {
	items, err := records.LoadList[domain.SymptomEntry](ctx, s.store, s.log, owner, records.KeySymptoms)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Date > items[j].Date })
	return items, nil
}

func (s *Service) RemoveSymptomEntry(ctx context.Context, owner, id string, confirm bool) error {
	return remove[domain.SymptomEntry](ctx, s, owner, records.KeySymptoms, id, confirm)
}

// Trends summarises the diary over the last days (default 30).
func (s *Service) Trends(ctx context.Context, owner string, days int) (domain.Trends, error) {
	items, err := records.LoadList[domain.SymptomEntry](ctx, s.store, s.log, owner, records.KeySymptoms)
	if err != nil {
		return domain.Trends{}, err
	}
	return domain.ComputeTrends(items, s.clock.Now(), days), nil
}
