package practitioner

import "context"

type ProfileRepository interface {
	Get(ctx context.Context, practitionerID string) (*Profile, error)
	Upsert(ctx context.Context, p *Profile) error
}
