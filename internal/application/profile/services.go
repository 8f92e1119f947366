package profile

import (
	"context"

	"github.com/go-logr/logr"

	domain "github.com/bryanwahyu/canscan/internal/domain/profile"
	"github.com/bryanwahyu/canscan/internal/domain/records"
)

// Service owns the user profile. Callers pass the owner explicitly.
type Service struct {
	store records.Store
	log   logr.Logger
}

func NewService(store records.Store, log logr.Logger) *Service {
	return &Service{store: store, log: log}
}

// Login stores a well-formed profile, replacing any previous one.
func (s *Service) Login(ctx context.Context, owner string, p domain.UserProfile) (domain.UserProfile, error) {
	if err := p.Validate(); err != nil {
		return domain.UserProfile{}, err
	}
	p.ApplyDefaults()
	if err := records.SaveObject(ctx, s.store, owner, records.KeyProfile, &p); err != nil {
		return domain.UserProfile{}, err
	}
	s.log.Info("profile saved", "owner", owner)
	return p, nil
}

func (s *Service) Get(ctx context.Context, owner string) (domain.UserProfile, error) {
	p, err := records.LoadObject[domain.UserProfile](ctx, s.store, s.log, owner, records.KeyProfile)
	if err != nil {
		return domain.UserProfile{}, err
	}
	if p == nil {
		return domain.UserProfile{}, domain.ErrNoProfile
	}
	return *p, nil
}

// Update merges the non-nil fields of u into the stored profile.
func (s *Service) Update(ctx context.Context, owner string, u domain.ProfileUpdate) (domain.UserProfile, error) {
	var out domain.UserProfile
	err := records.ModifyObject(ctx, s.store, s.log, owner, records.KeyProfile, func(current *domain.UserProfile) (*domain.UserProfile, error) {
		if current == nil {
			return nil, domain.ErrNoProfile
		}
		next := u.Apply(*current)
		if err := next.Validate(); err != nil {
			return nil, err
		}
		next.ApplyDefaults()
		out = next
		return &next, nil
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return out, nil
}

// Logout removes the profile. Logging out twice is fine.
func (s *Service) Logout(ctx context.Context, owner string) error {
	if err := records.Clear(ctx, s.store, owner, records.KeyProfile); err != nil {
		return err
	}
	s.log.Info("profile removed", "owner", owner)
	return nil
}
