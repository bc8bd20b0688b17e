package scheduling

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/domain/patient"
	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/notification"
)

// =========== Mock Repository ===========

type mockAppointmentRepo struct {
	store map[uuid.UUID]*Appointment
}

func newMockAppointmentRepo() *mockAppointmentRepo {
	return &mockAppointmentRepo{store: make(map[uuid.UUID]*Appointment)}
}

func (m *mockAppointmentRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	cp := *a
	m.store[a.ID] = &cp
	return nil
}

func (m *mockAppointmentRepo) GetByID(_ context.Context, practitionerID string, id uuid.UUID) (*Appointment, error) {
	a, ok := m.store[id]
	if !ok || a.PractitionerID != practitionerID {
		return nil, apperr.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockAppointmentRepo) Delete(_ context.Context, practitionerID string, id uuid.UUID) error {
	a, ok := m.store[id]
	if !ok || a.PractitionerID != practitionerID {
		return apperr.ErrNotFound
	}
	delete(m.store, id)
	return nil
}

func (m *mockAppointmentRepo) ListBetween(_ context.Context, practitionerID string, from, to time.Time) ([]*Appointment, error) {
	var items []*Appointment
	for _, a := range m.store {
		if a.PractitionerID == practitionerID && !a.StartsAt.Before(from) && a.StartsAt.Before(to) {
			cp := *a
			items = append(items, &cp)
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].StartsAt.Before(items[j].StartsAt) })
	return items, nil
}

func (m *mockAppointmentRepo) CountBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error) {
	items, err := m.ListBetween(ctx, practitionerID, from, to)
	return len(items), err
}

// =========== Mock Sources ===========

type mockTutors struct {
	store map[uuid.UUID]*tutor.Tutor
}

func (m *mockTutors) Get(_ context.Context, practitionerID string, id uuid.UUID) (*tutor.Tutor, error) {
	t, ok := m.store[id]
	if !ok || t.PractitionerID != practitionerID {
		return nil, apperr.ErrNotFound
	}
	return t, nil
}

type mockPatients struct {
	store map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) Get(_ context.Context, practitionerID string, id uuid.UUID) (*patient.Patient, error) {
	p, ok := m.store[id]
	if !ok || p.PractitionerID != practitionerID {
		return nil, apperr.ErrNotFound
	}
	return p, nil
}

const vet = "auth0|vet"

type fixture struct {
	svc        *Service
	sender     *notification.MockEmailSender
	tutorID    uuid.UUID
	patientID  uuid.UUID
	strangerID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	saoPaulo, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatal(err)
	}
	f := &fixture{
		sender:     &notification.MockEmailSender{},
		tutorID:    uuid.New(),
		patientID:  uuid.New(),
		strangerID: uuid.New(),
	}
	otherTutor := uuid.New()
	tutors := &mockTutors{store: map[uuid.UUID]*tutor.Tutor{
		f.tutorID:  {ID: f.tutorID, PractitionerID: vet, Name: "Maria Oliveira", Email: "maria@example.com"},
		otherTutor: {ID: otherTutor, PractitionerID: vet, Name: "João Lima"},
	}}
	patients := &mockPatients{store: map[uuid.UUID]*patient.Patient{
		f.patientID:  {ID: f.patientID, PractitionerID: vet, TutorID: f.tutorID, Name: "Rex"},
		f.strangerID: {ID: f.strangerID, PractitionerID: vet, TutorID: otherTutor, Name: "Tom"},
	}}
	notifier := notification.NewNotifier(f.sender, notification.NewTemplateEngine())
	f.svc = NewService(newMockAppointmentRepo(), tutors, patients, Options{
		Location: saoPaulo,
		Notifier: notifier,
		Logger:   zerolog.Nop(),
	})
	return f
}

func at(s string) *time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func (f *fixture) input(start, end string) AppointmentInput {
	return AppointmentInput{
		TutorID:   f.tutorID,
		PatientID: f.patientID,
		StartsAt:  at(start),
		EndsAt:    at(end),
		Reason:    "Vacinação",
	}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	a, err := f.svc.Create(context.Background(), vet, f.input("2025-06-10T09:00:00-03:00", "2025-06-10T09:30:00-03:00"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.ID == uuid.Nil || a.PatientName != "Rex" {
		t.Errorf("unexpected appointment %+v", a)
	}
	calls := f.sender.Calls()
	if len(calls) != 1 || calls[0].To != "maria@example.com" {
		t.Fatalf("expected one confirmation to the tutor, got %+v", calls)
	}
	if want := "10/06/2025 às 09:00"; !strings.Contains(calls[0].Body, want) {
		t.Errorf("expected body to mention %q in clinic time, got %q", want, calls[0].Body)
	}
}

func TestCreate_Validation(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Create(context.Background(), vet, AppointmentInput{})
	ve, ok := apperr.AsValidation(err)
	if !ok {
		t.Fatalf("expected validation error, got %v", err)
	}
	for _, field := range []string{"tutor_id", "patient_id", "starts_at", "ends_at"} {
		if !ve.Has(field) {
			t.Errorf("expected %s to be reported, got %+v", field, ve.Fields)
		}
	}
}

func TestCreate_EndBeforeStart(t *testing.T) {
	f := newFixture(t)
	for _, in := range []AppointmentInput{
		f.input("2025-06-10T10:00:00Z", "2025-06-10T09:00:00Z"),
		f.input("2025-06-10T10:00:00Z", "2025-06-10T10:00:00Z"),
	} {
		_, err := f.svc.Create(context.Background(), vet, in)
		ve, ok := apperr.AsValidation(err)
		if !ok || !ve.Has("ends_at") {
			t.Errorf("expected ends_at validation error, got %v", err)
		}
	}
}

func TestCreate_UnknownTutor(t *testing.T) {
	f := newFixture(t)
	in := f.input("2025-06-10T09:00:00Z", "2025-06-10T10:00:00Z")
	in.TutorID = uuid.New()
	if _, err := f.svc.Create(context.Background(), vet, in); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCreate_PatientOfAnotherTutor(t *testing.T) {
	f := newFixture(t)
	in := f.input("2025-06-10T09:00:00Z", "2025-06-10T10:00:00Z")
	in.PatientID = f.strangerID
	_, err := f.svc.Create(context.Background(), vet, in)
	ve, ok := apperr.AsValidation(err)
	if !ok || !ve.Has("patient_id") {
		t.Errorf("expected patient_id validation error, got %v", err)
	}
}

func TestCreate_OverlapAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := f.input("2025-06-10T09:00:00Z", "2025-06-10T10:00:00Z")
	if _, err := f.svc.Create(ctx, vet, in); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.Create(ctx, vet, in); err != nil {
		t.Errorf("overlapping appointments must be accepted: %v", err)
	}
}

func TestListByDate_UsesClinicZone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	// 23:30 in São Paulo on the 10th is already the 11th in UTC.
	f.svc.Create(ctx, vet, f.input("2025-06-10T23:30:00-03:00", "2025-06-11T00:00:00-03:00"))
	f.svc.Create(ctx, vet, f.input("2025-06-10T08:00:00-03:00", "2025-06-10T08:30:00-03:00"))
	f.svc.Create(ctx, vet, f.input("2025-06-11T08:00:00-03:00", "2025-06-11T08:30:00-03:00"))

	items, err := f.svc.ListByDate(ctx, vet, "2025-06-10", "")
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 appointments on the 10th, got %d", len(items))
	}
	if !items[0].StartsAt.Before(items[1].StartsAt) {
		t.Error("expected ascending order")
	}

	utc, _ := f.svc.ListByDate(ctx, vet, "2025-06-10", "UTC")
	if len(utc) != 1 {
		t.Errorf("expected 1 appointment on the 10th in UTC, got %d", len(utc))
	}
}

func TestListByDate_BadInput(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.ListByDate(context.Background(), vet, "10/06/2025", ""); err == nil {
		t.Error("expected error for malformed date")
	}
	if _, err := f.svc.ListByDate(context.Background(), vet, "2025-06-10", "Mars/Base"); err == nil {
		t.Error("expected error for unknown zone")
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a, _ := f.svc.Create(ctx, vet, f.input("2025-06-10T09:00:00Z", "2025-06-10T10:00:00Z"))

	if err := f.svc.Delete(ctx, "auth0|other", a.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another practitioner, got %v", err)
	}
	if err := f.svc.Delete(ctx, vet, a.ID); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
