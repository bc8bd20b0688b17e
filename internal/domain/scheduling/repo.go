package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Appointment, error)
	Delete(ctx context.Context, practitionerID string, id uuid.UUID) error
	// ListBetween returns appointments starting in [from, to), ascending.
	ListBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]*Appointment, error)
	CountBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error)
}
