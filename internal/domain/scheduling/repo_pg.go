package scheduling

import (
	"context"
	"time"

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

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const (
	appointmentFrom = `appointments a
	JOIN tutors t ON t.id = a.tutor_id
	JOIN patients p ON p.id = a.patient_id`
	appointmentCols = `a.id, a.practitioner_id, a.tutor_id, a.patient_id, a.starts_at, a.ends_at,
	a.reason, a.notes, a.created_at, t.name, p.name`
)

func (r *appointmentRepoPG) scanRow(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PractitionerID, &a.TutorID, &a.PatientID, &a.StartsAt, &a.EndsAt,
		&a.Reason, &a.Notes, &a.CreatedAt, &a.TutorName, &a.PatientName)
	if err != nil {
		return nil, db.MapError(err)
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	a.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (id, practitioner_id, tutor_id, patient_id, starts_at, ends_at, reason, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		RETURNING created_at`,
		a.ID, a.PractitionerID, a.TutorID, a.PatientID, a.StartsAt, a.EndsAt, a.Reason, a.Notes,
	).Scan(&a.CreatedAt)
	return db.MapError(err)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Appointment, error) {
	qb := db.NewQuery(appointmentFrom, appointmentCols).
		AddEq("a.id", id).
		AddEq("a.practitioner_id", practitionerID)
	return r.scanRow(r.conn(ctx).QueryRow(ctx, qb.SQL(), qb.Args()...))
}

func (r *appointmentRepoPG) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`DELETE FROM appointments WHERE id = $1 AND practitioner_id = $2`, id, practitionerID)
	if err != nil {
		return db.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

func (r *appointmentRepoPG) ListBetween(ctx context.Context, practitionerID string, from, to time.Time) ([]*Appointment, error) {
	qb := db.NewQuery(appointmentFrom, appointmentCols).
		AddEq("a.practitioner_id", practitionerID).
		Add("a.starts_at >= ? AND a.starts_at < ?", from, to).
		OrderBy("a.starts_at ASC, a.id")

	rows, err := r.conn(ctx).Query(ctx, qb.SQL(), qb.Args()...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Appointment{}
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (r *appointmentRepoPG) CountBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error) {
	qb := db.NewQuery("appointments a", "a.id").
		AddEq("a.practitioner_id", practitionerID).
		Add("a.starts_at >= ? AND a.starts_at < ?", from, to)
	var n int
	err := r.conn(ctx).QueryRow(ctx, qb.CountSQL(), qb.Args()...).Scan(&n)
	return n, err
}
