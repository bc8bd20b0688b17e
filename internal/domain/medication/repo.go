package medication

import (
	"context"
)

type CatalogRepository interface {
	Create(ctx context.Context, e *Entry) error
	// Search returns shared entries plus those owned by practitionerID.
	Search(ctx context.Context, practitionerID, q, category string, limit int) ([]*Entry, error)
}
