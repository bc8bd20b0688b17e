package tutor

import (
	"context"

	"github.com/google/uuid"
)

type TutorRepository interface {
	Create(ctx context.Context, t *Tutor) error
	GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Tutor, error)
	Update(ctx context.Context, t *Tutor) error
	List(ctx context.Context, practitionerID, q string, limit, offset int) ([]*Tutor, int, error)
	Count(ctx context.Context, practitionerID string) (int, error)

	// HasIssuedDocuments reports whether any document names the tutor or
	// one of the tutor's patients.
	HasIssuedDocuments(ctx context.Context, practitionerID string, id uuid.UUID) (bool, error)
	DeletePatients(ctx context.Context, practitionerID string, id uuid.UUID) (int64, error)
	Delete(ctx context.Context, practitionerID string, id uuid.UUID) error
}
