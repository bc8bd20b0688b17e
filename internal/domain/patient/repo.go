package patient

import (
	"context"

	"github.com/google/uuid"
)

// ListFilter narrows a tutor's patients. Query matches name, breed or
// species; Species is set when Query names a known species.
type ListFilter struct {
	Query   string
	Species string
}

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, practitionerID string, id uuid.UUID) error
	ListByTutor(ctx context.Context, practitionerID string, tutorID uuid.UUID, f ListFilter) ([]*Patient, error)
	HasIssuedDocuments(ctx context.Context, practitionerID string, id uuid.UUID) (bool, error)
	Count(ctx context.Context, practitionerID string) (int, error)
}
