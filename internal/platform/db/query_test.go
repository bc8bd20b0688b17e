package db

import "testing"

func TestQuery_Build(t *testing.T) {
	q := NewQuery("documents", "id, type").
		AddEq("practitioner_id", "auth0|vet").
		AddContains("rex", "patient_name", "tutor_name").
		Add("issued_at >= ?", "2025-01-01").
		OrderBy("issued_at DESC")

	wantCount := "SELECT COUNT(*) FROM documents WHERE 1=1 AND practitioner_id = $1 AND (patient_name ILIKE $2 OR tutor_name ILIKE $2) AND issued_at >= $3"
	if got := q.CountSQL(); got != wantCount {
		t.Errorf("CountSQL:\n got %s\nwant %s", got, wantCount)
	}
	wantData := "SELECT id, type FROM documents WHERE 1=1 AND practitioner_id = $1 AND (patient_name ILIKE $2 OR tutor_name ILIKE $2) AND issued_at >= $3 ORDER BY issued_at DESC LIMIT $4 OFFSET $5"
	if got := q.DataSQL(); got != wantData {
		t.Errorf("DataSQL:\n got %s\nwant %s", got, wantData)
	}
	args := q.DataArgs(20, 40)
	if len(args) != 5 || args[1] != "%rex%" || args[3] != 20 || args[4] != 40 {
		t.Errorf("unexpected args %v", args)
	}
}

func TestQuery_AddContainsBlankIgnored(t *testing.T) {
	q := NewQuery("tutors", "id").AddContains("   ", "name")
	if len(q.Args()) != 0 {
		t.Errorf("expected no args, got %v", q.Args())
	}
	if q.SQL() != "SELECT id FROM tutors WHERE 1=1" {
		t.Errorf("unexpected sql %s", q.SQL())
	}
}

func TestQuery_EscapesLikeWildcards(t *testing.T) {
	q := NewQuery("tutors", "id").AddContains("50%_off", "name")
	if got := q.Args()[0]; got != `%50\%\_off%` {
		t.Errorf("unexpected pattern %v", got)
	}
}

func TestQuery_MultiArgClause(t *testing.T) {
	q := NewQuery("appointments", "id").Add("starts_at >= ? AND starts_at < ?", 1, 2)
	want := "SELECT id FROM appointments WHERE 1=1 AND starts_at >= $1 AND starts_at < $2"
	if q.SQL() != want {
		t.Errorf("got %s", q.SQL())
	}
}
