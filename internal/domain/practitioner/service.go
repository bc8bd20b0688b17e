package practitioner

import (
	"context"
	"errors"
	"strings"

	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/pkg/brdoc"
)

type Service struct {
	repo ProfileRepository
}

func NewService(repo ProfileRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetProfile(ctx context.Context, practitionerID string) (*Profile, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.Get(ctx, practitionerID)
}

// SaveProfile creates or replaces the caller's profile. The stored email is
// always the one carried by the token.
func (s *Service) SaveProfile(ctx context.Context, practitionerID, email string, in ProfileInput) (*Profile, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	p := &Profile{
		PractitionerID:        practitionerID,
		Name:                  strings.TrimSpace(in.Name),
		RegistrationNumber:    strings.TrimSpace(in.RegistrationNumber),
		RegistrationRegion:    strings.TrimSpace(in.RegistrationRegion),
		SecondaryRegistration: strings.TrimSpace(in.SecondaryRegistration),
		Phone:                 strings.TrimSpace(in.Phone),
		Email:                 strings.TrimSpace(email),
		ClinicName:            strings.TrimSpace(in.ClinicName),
		Specialty:             strings.TrimSpace(in.Specialty),
		Address:               in.Address,
	}

	ve := &apperr.ValidationError{}
	if p.Phone != "" {
		phone, err := brdoc.NormalizePhone(p.Phone)
		if err != nil {
			ve.Add("phone", "must be a valid phone number")
		}
		p.Phone = phone
	}
	if p.RegistrationRegion != "" {
		uf, ok := brdoc.NormalizeUF(p.RegistrationRegion)
		if !ok {
			ve.Add("registration_region", "must be a two-letter state code")
		}
		p.RegistrationRegion = uf
	}
	for _, field := range p.Address.Normalize() {
		ve.Add("address."+field, "is malformed")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Status reports whether the caller may issue documents. A practitioner
// without a stored profile is simply incomplete.
func (s *Service) Status(ctx context.Context, practitionerID string) (Status, error) {
	p, err := s.GetProfile(ctx, practitionerID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return Status{}, err
	}
	missing := MissingFields(p)
	return Status{Complete: len(missing) == 0, MissingFields: missing}, nil
}
