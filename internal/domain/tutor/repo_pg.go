package tutor

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

type tutorRepoPG struct{ pool *pgxpool.Pool }

func NewTutorRepoPG(pool *pgxpool.Pool) TutorRepository {
	return &tutorRepoPG{pool: pool}
}

func (r *tutorRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const tutorCols = `id, practitioner_id, name, phone, email, cpf,
	postal_code, street, number, neighborhood, city, state,
	created_at, updated_at`

func (r *tutorRepoPG) scanRow(row pgx.Row) (*Tutor, error) {
	var t Tutor
	err := row.Scan(&t.ID, &t.PractitionerID, &t.Name, &t.Phone, &t.Email, &t.CPF,
		&t.Address.PostalCode, &t.Address.Street, &t.Address.Number, &t.Address.Neighborhood,
		&t.Address.City, &t.Address.State,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &t, nil
}

func (r *tutorRepoPG) Create(ctx context.Context, t *Tutor) error {
	t.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO tutors (id, practitioner_id, name, phone, email, cpf,
			postal_code, street, number, neighborhood, city, state)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING created_at, updated_at`,
		t.ID, t.PractitionerID, t.Name, t.Phone, t.Email, t.CPF,
		t.Address.PostalCode, t.Address.Street, t.Address.Number, t.Address.Neighborhood,
		t.Address.City, t.Address.State).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err)
}

func (r *tutorRepoPG) GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Tutor, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+tutorCols+` FROM tutors WHERE id = $1 AND practitioner_id = $2`, id, practitionerID))
}

func (r *tutorRepoPG) Update(ctx context.Context, t *Tutor) error {
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE tutors SET name=$3, phone=$4, email=$5, cpf=$6,
			postal_code=$7, street=$8, number=$9, neighborhood=$10, city=$11, state=$12,
			updated_at=NOW()
		WHERE id = $1 AND practitioner_id = $2
		RETURNING created_at, updated_at`,
		t.ID, t.PractitionerID, t.Name, t.Phone, t.Email, t.CPF,
		t.Address.PostalCode, t.Address.Street, t.Address.Number, t.Address.Neighborhood,
		t.Address.City, t.Address.State).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err)
}

func (r *tutorRepoPG) List(ctx context.Context, practitionerID, q string, limit, offset int) ([]*Tutor, int, error) {
	qb := db.NewQuery("tutors", tutorCols).
		AddEq("practitioner_id", practitionerID).
		AddContains(q, "name", "phone", "email", "cpf").
		OrderBy("lower(name) ASC, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Tutor{}
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *tutorRepoPG) Count(ctx context.Context, practitionerID string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM tutors WHERE practitioner_id = $1`, practitionerID).Scan(&n)
	return n, err
}

func (r *tutorRepoPG) HasIssuedDocuments(ctx context.Context, practitionerID string, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM documents
			WHERE practitioner_id = $1
			  AND (tutor_id = $2 OR patient_id IN (SELECT id FROM patients WHERE tutor_id = $2))
		)`, practitionerID, id).Scan(&exists)
	return exists, err
}

func (r *tutorRepoPG) DeletePatients(ctx context.Context, practitionerID string, id uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM patients WHERE tutor_id = $1 AND practitioner_id = $2`, id, practitionerID)
	if err != nil {
		return 0, db.MapError(err)
	}
	return tag.RowsAffected(), nil
}

func (r *tutorRepoPG) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM tutors WHERE id = $1 AND practitioner_id = $2`, id, practitionerID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}
