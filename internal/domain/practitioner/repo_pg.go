package practitioner

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rdv/rdv/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository {
	return &profileRepoPG{pool: pool}
}

func (r *profileRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const profileCols = `practitioner_id, name, registration_number, registration_region,
	secondary_registration, phone, email, clinic_name, specialty,
	postal_code, street, number, neighborhood, city, state,
	created_at, updated_at`

func (r *profileRepoPG) scanRow(row pgx.Row) (*Profile, error) {
	var p Profile
	err := row.Scan(&p.PractitionerID, &p.Name, &p.RegistrationNumber, &p.RegistrationRegion,
		&p.SecondaryRegistration, &p.Phone, &p.Email, &p.ClinicName, &p.Specialty,
		&p.Address.PostalCode, &p.Address.Street, &p.Address.Number, &p.Address.Neighborhood,
		&p.Address.City, &p.Address.State,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &p, nil
}

func (r *profileRepoPG) Get(ctx context.Context, practitionerID string) (*Profile, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+profileCols+` FROM practitioner_profiles WHERE practitioner_id = $1`, practitionerID))
}

func (r *profileRepoPG) Upsert(ctx context.Context, p *Profile) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO practitioner_profiles (practitioner_id, name, registration_number, registration_region,
			secondary_registration, phone, email, clinic_name, specialty,
			postal_code, street, number, neighborhood, city, state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
		ON CONFLICT (practitioner_id) DO UPDATE SET
			name=EXCLUDED.name, registration_number=EXCLUDED.registration_number,
			registration_region=EXCLUDED.registration_region,
			secondary_registration=EXCLUDED.secondary_registration,
			phone=EXCLUDED.phone, email=EXCLUDED.email, clinic_name=EXCLUDED.clinic_name,
			specialty=EXCLUDED.specialty, postal_code=EXCLUDED.postal_code, street=EXCLUDED.street,
			number=EXCLUDED.number, neighborhood=EXCLUDED.neighborhood, city=EXCLUDED.city,
			state=EXCLUDED.state, updated_at=NOW()
		RETURNING created_at, updated_at`,
		p.PractitionerID, p.Name, p.RegistrationNumber, p.RegistrationRegion,
		p.SecondaryRegistration, p.Phone, p.Email, p.ClinicName, p.Specialty,
		p.Address.PostalCode, p.Address.Street, p.Address.Number, p.Address.Neighborhood,
		p.Address.City, p.Address.State).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err)
}
