package medication

import (
	"context"
	"strings"

	"github.com/rdv/rdv/internal/platform/apperr"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 100
)

type Service struct {
	catalog CatalogRepository
}

func NewService(catalog CatalogRepository) *Service {
	return &Service{catalog: catalog}
}

// Search matches q against name and active ingredient. A non-positive limit
// means the default.
func (s *Service) Search(ctx context.Context, practitionerID, q, category string, limit int) ([]*Entry, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}
	return s.catalog.Search(ctx, practitionerID, strings.TrimSpace(q), strings.TrimSpace(category), limit)
}

// Add stores a private entry for the practitioner.
func (s *Service) Add(ctx context.Context, practitionerID string, in EntryInput) (*Entry, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Invalid("name", "is required")
	}
	owner := practitionerID
	e := &Entry{
		PractitionerID:   &owner,
		Name:             name,
		ActiveIngredient: strings.TrimSpace(in.ActiveIngredient),
		Category:         strings.ToLower(strings.TrimSpace(in.Category)),
		Presentation:     strings.TrimSpace(in.Presentation),
		DefaultDosage:    strings.TrimSpace(in.DefaultDosage),
	}
	if err := s.catalog.Create(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}
