package prescription

import (
	"context"
	"time"

	"github.com/google/uuid"
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

type documentRepoPG struct{ pool *pgxpool.Pool }

func NewDocumentRepoPG(pool *pgxpool.Pool) DocumentRepository {
	return &documentRepoPG{pool: pool}
}

func (r *documentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const documentCols = `id, public_code, draft_id, type, practitioner_id, patient_id, tutor_id,
	issued_at, purpose, medications, attestation_text, status,
	patient_snapshot, tutor_snapshot, practitioner_snapshot, created_at`

func (r *documentRepoPG) scanRow(row pgx.Row) (*Record, error) {
	var d Record
	err := row.Scan(&d.ID, &d.PublicCode, &d.DraftID, &d.Type, &d.PractitionerID, &d.PatientID, &d.TutorID,
		&d.IssuedAt, &d.Purpose, &d.Medications, &d.AttestationText, &d.Status,
		&d.Patient, &d.Tutor, &d.Practitioner, &d.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &d, nil
}

// Insert stores an issued document. The id, public code and status are
// expected to be set by the caller.
func (r *documentRepoPG) Insert(ctx context.Context, d *Record) error {
	if d.Medications == nil {
		d.Medications = []Medication{}
	}
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO documents (id, public_code, draft_id, type, practitioner_id, patient_id, tutor_id,
			issued_at, purpose, medications, attestation_text, status,
			patient_snapshot, tutor_snapshot, practitioner_snapshot, patient_name, tutor_name)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)
		RETURNING created_at`,
		d.ID, d.PublicCode, d.DraftID, d.Type, d.PractitionerID, d.PatientID, d.TutorID,
		d.IssuedAt, d.Purpose, d.Medications, d.AttestationText, d.Status,
		d.Patient, d.Tutor, d.Practitioner, d.Patient.Name, d.Tutor.Name,
	).Scan(&d.CreatedAt)
	return db.MapError(err)
}

func (r *documentRepoPG) GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Record, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = $1 AND practitioner_id = $2`, id, practitionerID))
}

func (r *documentRepoPG) GetByPublicCode(ctx context.Context, code string) (*Record, error) {
	return r.scanRow(r.conn(ctx).QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE public_code = $1`, code))
}

func (r *documentRepoPG) ExistsDraft(ctx context.Context, draftID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM documents WHERE draft_id = $1)`, draftID).Scan(&exists)
	return exists, err
}

func (r *documentRepoPG) List(ctx context.Context, practitionerID string, f Filter, limit, offset int) ([]*Record, int, error) {
	qb := db.NewQuery("documents", documentCols).AddEq("practitioner_id", practitionerID)
	if f.Type != "" {
		qb.AddEq("type", f.Type)
	}
	if f.PatientID != nil {
		qb.AddEq("patient_id", *f.PatientID)
	}
	if f.From != nil {
		qb.Add("issued_at >= ?", *f.From)
	}
	if f.To != nil {
		qb.Add("issued_at < ?", *f.To)
	}
	qb.AddContains(f.Query, "patient_name", "tutor_name", "public_code")
	qb.OrderBy("issued_at DESC, id")

	var total int
	if err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.Args()...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items := []*Record{}
	for rows.Next() {
		d, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

func (r *documentRepoPG) CountCreatedBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM documents
		WHERE practitioner_id = $1 AND created_at >= $2 AND created_at < $3`,
		practitionerID, from, to).Scan(&n)
	return n, err
}
