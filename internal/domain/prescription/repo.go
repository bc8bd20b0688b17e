package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DocumentRepository is append-only.
type DocumentRepository interface {
	Insert(ctx context.Context, r *Record) error
	GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Record, error)
	GetByPublicCode(ctx context.Context, code string) (*Record, error)
	ExistsDraft(ctx context.Context, draftID uuid.UUID) (bool, error)
	List(ctx context.Context, practitionerID string, f Filter, limit, offset int) ([]*Record, int, error)
	// CountCreatedBetween counts documents recorded in [from, to).
	CountCreatedBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error)
}
