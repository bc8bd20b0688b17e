package medication

import (
	"context"

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

type catalogRepoPG struct{ pool *pgxpool.Pool }

func NewCatalogRepoPG(pool *pgxpool.Pool) CatalogRepository {
	return &catalogRepoPG{pool: pool}
}

func (r *catalogRepoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const entryCols = `id, practitioner_id, name, active_ingredient, category,
	presentation, default_dosage, created_at`

func (r *catalogRepoPG) scanRow(row pgx.Row) (*Entry, error) {
	var e Entry
	err := row.Scan(&e.ID, &e.PractitionerID, &e.Name, &e.ActiveIngredient, &e.Category,
		&e.Presentation, &e.DefaultDosage, &e.CreatedAt)
	if err != nil {
		return nil, db.MapError(err)
	}
	e.Shared = e.PractitionerID == nil
	return &e, nil
}

func (r *catalogRepoPG) Create(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO medication_catalog (id, practitioner_id, name, active_ingredient,
			category, presentation, default_dosage)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		e.ID, e.PractitionerID, e.Name, e.ActiveIngredient,
		e.Category, e.Presentation, e.DefaultDosage).Scan(&e.CreatedAt)
	return db.MapError(err)
}

func (r *catalogRepoPG) Search(ctx context.Context, practitionerID, q, category string, limit int) ([]*Entry, error) {
	qb := db.NewQuery("medication_catalog", entryCols).
		Add("(practitioner_id IS NULL OR practitioner_id = ?)", practitionerID).
		AddContains(q, "name", "active_ingredient").
		OrderBy("lower(name) ASC, id")
	if category != "" {
		qb.Add("lower(category) = lower(?)", category)
	}

	rows, err := r.conn(ctx).Query(ctx, qb.DataSQL(), qb.DataArgs(limit, 0)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []*Entry{}
	for rows.Next() {
		e, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, e)
	}
	return items, rows.Err()
}
