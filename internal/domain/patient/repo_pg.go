package patient

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patientCols = `id, practitioner_id, tutor_id, name, species, breed, sex,
	birth_date, age_text, weight_kg, coat_color, microchip, neutered, notes,
	created_at, updated_at`

func (r *patientRepoPG) scanRow(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.PractitionerID, &p.TutorID, &p.Name, &p.Species, &p.Breed, &p.Sex,
		&p.BirthDate, &p.AgeText, &p.WeightKg, &p.CoatColor, &p.Microchip, &p.Neutered, &p.Notes,
		&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (id, practitioner_id, tutor_id, name, species, breed, sex,
			birth_date, age_text, weight_kg, coat_color, microchip, neutered, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		p.ID, p.PractitionerID, p.TutorID, p.Name, p.Species, p.Breed, p.Sex,
		p.BirthDate, p.AgeText, p.WeightKg, p.CoatColor, p.Microchip, p.Neutered, p.Notes,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Patient, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND practitioner_id = $2`, id, practitionerID))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE patients SET name=$3, species=$4, breed=$5, sex=$6, birth_date=$7, age_text=$8,
			weight_kg=$9, coat_color=$10, microchip=$11, neutered=$12, notes=$13, updated_at=NOW()
		WHERE id = $1 AND practitioner_id = $2
		RETURNING tutor_id, created_at, updated_at`,
		p.ID, p.PractitionerID, p.Name, p.Species, p.Breed, p.Sex, p.BirthDate, p.AgeText,
		p.WeightKg, p.CoatColor, p.Microchip, p.Neutered, p.Notes,
	).Scan(&p.TutorID, &p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err)
}

func (r *patientRepoPG) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM patients WHERE id = $1 AND practitioner_id = $2`, id, practitionerID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) ListByTutor(ctx context.Context, practitionerID string, tutorID uuid.UUID, f ListFilter) ([]*Patient, error) {
	qb := db.NewQuery("patients", patientCols).
		AddEq("tutor_id", tutorID).
		AddEq("practitioner_id", practitionerID).
		OrderBy("lower(name) ASC, id")
	if f.Query != "" {
		pattern := db.ContainsPattern(f.Query)
		qb.Add("(name ILIKE ? OR breed ILIKE ? OR species ILIKE ? OR species = ?)", pattern, pattern, pattern, f.Species)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.SQL(), qb.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Patient{}
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *patientRepoPG) Count(ctx context.Context, practitionerID string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE practitioner_id = $1`, practitionerID).Scan(&n)
	return n, err
}

func (r *patientRepoPG) HasIssuedDocuments(ctx context.Context, practitionerID string, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE practitioner_id = $1 AND patient_id = $2)`,
		practitionerID, id).Scan(&exists)
	return exists, err
}
