package tutor

import (
	"context"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/db"
	"github.com/rdv/rdv/pkg/brdoc"
)

const minNameLength = 3

type Service struct {
	repo TutorRepository
	tx   db.Transactor
}

// NewService wires the registry. A nil transactor runs deletes without a
// surrounding transaction.
func NewService(repo TutorRepository, tx db.Transactor) *Service {
	return &Service{repo: repo, tx: tx}
}

func (s *Service) List(ctx context.Context, practitionerID, q string, limit, offset int) ([]*Tutor, int, error) {
	if practitionerID == "" {
		return nil, 0, apperr.ErrUnauthenticated
	}
	return s.repo.List(ctx, practitionerID, q, limit, offset)
}

func (s *Service) Count(ctx context.Context, practitionerID string) (int, error) {
	if practitionerID == "" {
		return 0, apperr.ErrUnauthenticated
	}
	return s.repo.Count(ctx, practitionerID)
}

func (s *Service) Create(ctx context.Context, practitionerID string, in TutorInput) (*Tutor, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	t, err := build(in)
	if err != nil {
		return nil, err
	}
	t.PractitionerID = practitionerID
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) Get(ctx context.Context, practitionerID string, id uuid.UUID) (*Tutor, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	return s.repo.GetByID(ctx, practitionerID, id)
}

func (s *Service) Update(ctx context.Context, practitionerID string, id uuid.UUID, in TutorInput) (*Tutor, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	t, err := build(in)
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.PractitionerID = practitionerID
	if err := s.repo.Update(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes the tutor together with the tutor's patients. It refuses
// with ErrConflict once any of them appears on an issued document.
func (s *Service) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	if practitionerID == "" {
		return apperr.ErrUnauthenticated
	}
	return s.withTx(ctx, func(ctx context.Context) error {
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
		if _, err := s.repo.DeletePatients(ctx, practitionerID, id); err != nil {
			return err
		}
		return s.repo.Delete(ctx, practitionerID, id)
	})
}

func (s *Service) withTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx == nil {
		return fn(ctx)
	}
	return s.tx.WithTx(ctx, fn)
}

// build validates in and returns the normalized tutor. Every offending
// field is reported at once.
func build(in TutorInput) (*Tutor, error) {
	t := &Tutor{
		Name:    strings.TrimSpace(in.Name),
		Phone:   strings.TrimSpace(in.Phone),
		Email:   strings.TrimSpace(in.Email),
		CPF:     strings.TrimSpace(in.CPF),
		Address: in.Address,
	}

	ve := &apperr.ValidationError{}
	if utf8.RuneCountInString(t.Name) < minNameLength {
		ve.Add("name", "must have at least 3 characters")
	}
	if t.Phone == "" {
		ve.Add("phone", "is required")
	} else if phone, err := brdoc.NormalizePhone(t.Phone); err != nil {
		ve.Add("phone", "must be a valid phone number")
	} else {
		t.Phone = phone
	}
	if t.Email != "" {
		addr, err := mail.ParseAddress(t.Email)
		if err != nil || addr.Address != t.Email {
			ve.Add("email", "must be a valid email address")
		}
	}
	if t.CPF != "" {
		cpf, err := brdoc.NormalizeCPF(t.CPF)
		if err != nil {
			ve.Add("cpf", "invalid CPF")
		} else {
			t.CPF = cpf
		}
	}
	for _, field := range t.Address.Normalize() {
		ve.Add("address."+field, "is malformed")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}
	return t, nil
}
