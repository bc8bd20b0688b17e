package patient

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/apperr"
)

// TutorSource resolves the owning tutor of a patient.
type TutorSource interface {
	Get(ctx context.Context, practitionerID string, id uuid.UUID) (*tutor.Tutor, error)
}

type Service struct {
	repo   PatientRepository
	tutors TutorSource
	now    func() time.Time
}

func NewService(repo PatientRepository, tutors TutorSource) *Service {
	return &Service{repo: repo, tutors: tutors, now: time.Now}
}

func (s *Service) Count(ctx context.Context, practitionerID string) (int, error) {
	if practitionerID == "" {
		return 0, apperr.ErrUnauthenticated
	}
	return s.repo.Count(ctx, practitionerID)
}

// ListByTutor returns the tutor's patients ordered by name. A non-blank q
// keeps those whose name, breed or species matches it.
func (s *Service) ListByTutor(ctx context.Context, practitionerID string, tutorID uuid.UUID, q string) ([]*Patient, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if _, err := s.tutors.Get(ctx, practitionerID, tutorID); err != nil {
		return nil, err
	}
	f := ListFilter{Query: strings.TrimSpace(q)}
	if f.Query != "" {
		f.Species, _ = NormalizeSpecies(f.Query)
	}
	items, err := s.repo.ListByTutor(ctx, practitionerID, tutorID, f)
	if err != nil {
		return nil, err
	}
	now := s.now()
	for _, p := range items {
		p.Age = DisplayAge(p, now)
	}
	return items, nil
}

func (s *Service) Create(ctx context.Context, practitionerID string, tutorID uuid.UUID, in PatientInput) (*Patient, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if _, err := s.tutors.Get(ctx, practitionerID, tutorID); err != nil {
		return nil, err
	}
	p, err := build(in)
	if err != nil {
		return nil, err
	}
	p.PractitionerID = practitionerID
	p.TutorID = tutorID
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}
	p.Age = DisplayAge(p, s.now())
	return p, nil
}

func (s *Service) Get(ctx context.Context, practitionerID string, id uuid.UUID) (*Patient, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := s.repo.GetByID(ctx, practitionerID, id)
	if err != nil {
		return nil, err
	}
	p.Age = DisplayAge(p, s.now())
	return p, nil
}

// Update replaces the patient's clinical fields. The owning tutor never
// changes.
func (s *Service) Update(ctx context.Context, practitionerID string, id uuid.UUID, in PatientInput) (*Patient, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	p, err := build(in)
	if err != nil {
		return nil, err
	}
	p.ID = id
	p.PractitionerID = practitionerID
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	p.Age = DisplayAge(p, s.now())
	return p, nil
}

// Delete refuses with ErrConflict while issued documents reference the
// patient. Appointments go with it.
func (s *Service) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	if practitionerID == "" {
		return apperr.ErrUnauthenticated
	}
	if _, err := s.repo.GetByID(ctx, practitionerID, id); err != nil {
		return err
	}
	issued, err := s.repo.HasIssuedDocuments(ctx, practitionerID, id)
	if err != nil {
		return err
	}
	if issued {
		return apperr.ErrConflict
	}
	return s.repo.Delete(ctx, practitionerID, id)
}

func build(in PatientInput) (*Patient, error) {
	p := &Patient{
		Name:      strings.TrimSpace(in.Name),
		Breed:     strings.TrimSpace(in.Breed),
		Sex:       strings.ToLower(strings.TrimSpace(in.Sex)),
		AgeText:   strings.TrimSpace(in.AgeText),
		WeightKg:  in.WeightKg,
		CoatColor: strings.TrimSpace(in.CoatColor),
		Microchip: strings.TrimSpace(in.Microchip),
		Neutered:  in.Neutered,
		Notes:     strings.TrimSpace(in.Notes),
	}

	ve := &apperr.ValidationError{}
	switch n := utf8.RuneCountInString(p.Name); {
	case n == 0:
		ve.Add("name", "is required")
	case n < 2:
		ve.Add("name", "must have at least 2 characters")
	}
	if strings.TrimSpace(in.Species) == "" {
		ve.Add("species", "is required")
	} else if species, ok := NormalizeSpecies(in.Species); !ok {
		ve.Add("species", "must be one of canine, feline, bovine, equine, reptile, avian, other")
	} else {
		p.Species = species
	}
	if !validSexes[p.Sex] {
		ve.Add("sex", "must be male, female or unknown")
	}
	if bd := strings.TrimSpace(in.BirthDate); bd != "" {
		t, err := time.Parse("2006-01-02", bd)
		if err != nil {
			ve.Add("birth_date", "must be a date in YYYY-MM-DD format")
		} else {
			p.BirthDate = &t
		}
	}
	if p.WeightKg != nil && *p.WeightKg <= 0 {
		ve.Add("weight_kg", "must be greater than zero")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return p, nil
}
