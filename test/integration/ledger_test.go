package integration

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rdv/rdv/internal/domain/medication"
	"github.com/rdv/rdv/internal/domain/patient"
	"github.com/rdv/rdv/internal/domain/prescription"
	"github.com/rdv/rdv/internal/domain/scheduling"
	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/apperr"
)

const vet = "auth0|vet-integration"

func TestLedgerFlow(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	_, err := a.docs.ComposeDraft(ctx, vet, prescriptionInput(uuid.New()))
	require.ErrorIs(t, err, apperr.ErrProfileIncomplete)

	a.completeProfile(t, vet)
	tut := a.createTutor(t, vet, "Maria Oliveira")
	rex := a.createPatient(t, vet, tut.ID, "Rex")

	rec, err := a.docs.ComposeAndIssue(ctx, vet, prescriptionInput(rex.ID))
	require.NoError(t, err)
	require.Equal(t, prescription.StatusIssued, rec.Status)
	require.Equal(t, "CRMV-SP 12345", rec.Practitioner.Registration)
	require.Equal(t, "Rex", rec.Patient.Name)
	require.Len(t, a.events.Events(), 1)

	t.Run("PublicLookup", func(t *testing.T) {
		view, err := a.docs.GetByPublicCode(ctx, rec.PublicCode)
		require.NoError(t, err)
		require.Equal(t, rec.PublicCode, view.PublicCode)
		require.Equal(t, "Maria Oliveira", view.Tutor.Name)

		_, err = a.docs.GetByPublicCode(ctx, uuid.NewString())
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("Ownership", func(t *testing.T) {
		_, err := a.docs.GetByID(ctx, "auth0|someone-else", rec.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
		_, err = a.tutors.Get(ctx, "auth0|someone-else", tut.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("ListFilters", func(t *testing.T) {
		att := prescription.DraftInput{
			PatientID:       rex.ID,
			Type:            prescription.TypeAttestation,
			AttestationText: "Atesto que o animal encontra-se saudável.",
		}
		_, err := a.docs.ComposeAndIssue(ctx, vet, att)
		require.NoError(t, err)

		items, total, err := a.docs.List(ctx, vet, prescription.Filter{Type: prescription.TypeAttestation}, 20, 0)
		require.NoError(t, err)
		require.Equal(t, 1, total)
		require.Len(t, items, 1)

		items, total, err = a.docs.List(ctx, vet, prescription.Filter{Query: "maria"}, 20, 0)
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, items, 2)

		history, total, err := a.docs.ListByPatient(ctx, vet, rex.ID, 20, 0)
		require.NoError(t, err)
		require.Equal(t, 2, total)
		require.Len(t, history, 2)
	})

	t.Run("DeletesBlockedByIssuedDocuments", func(t *testing.T) {
		require.ErrorIs(t, a.patients.Delete(ctx, vet, rex.ID), apperr.ErrConflict)
		require.ErrorIs(t, a.tutors.Delete(ctx, vet, tut.ID), apperr.ErrConflict)

		_, err := a.patients.Get(ctx, vet, rex.ID)
		require.NoError(t, err, "patient must survive a rejected tutor delete")
	})
}

func TestIssue_DraftIsIdempotent(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	a.completeProfile(t, vet)
	tut := a.createTutor(t, vet, "Carlos Pereira")
	mel := a.createPatient(t, vet, tut.ID, "Mel")

	in := prescriptionInput(mel.ID)
	draftID := uuid.New()
	in.DraftID = &draftID

	_, err := a.docs.ComposeAndIssue(ctx, vet, in)
	require.NoError(t, err)
	_, err = a.docs.ComposeAndIssue(ctx, vet, in)
	require.ErrorIs(t, err, apperr.ErrConflict)

	_, total, err := a.docs.List(ctx, vet, prescription.Filter{}, 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
}

func TestIssue_ConcurrentCodesAreDistinct(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	a.completeProfile(t, vet)
	tut := a.createTutor(t, vet, "Beatriz Nunes")
	bob := a.createPatient(t, vet, tut.ID, "Bob")

	const n = 12
	recs := make([]*prescription.Record, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			recs[i], errs[i] = a.docs.ComposeAndIssue(ctx, vet, prescriptionInput(bob.ID))
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, n)
	for i, rec := range recs {
		require.NoError(t, errs[i])
		require.False(t, seen[rec.PublicCode], "duplicate public code %s", rec.PublicCode)
		seen[rec.PublicCode] = true
	}
	_, total, err := a.docs.List(ctx, vet, prescription.Filter{}, 50, 0)
	require.NoError(t, err)
	require.Equal(t, n, total)

	// The unique index rejects a second record reusing an issued code.
	repo := prescription.NewDocumentRepoPG(a.pool)
	existing, err := a.docs.GetByID(ctx, vet, recs[0].ID)
	require.NoError(t, err)
	dup := *existing
	dup.ID = uuid.New()
	dup.DraftID = uuid.New()
	require.ErrorIs(t, repo.Insert(ctx, &dup), apperr.ErrConflict)
}

func TestTutorDelete_RemovesPatients(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	tut := a.createTutor(t, vet, "João Lima")
	tom := a.createPatient(t, vet, tut.ID, "Tom")
	a.createPatient(t, vet, tut.ID, "Nina")

	require.NoError(t, a.tutors.Delete(ctx, vet, tut.ID))

	_, err := a.tutors.Get(ctx, vet, tut.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
	_, err = a.patients.Get(ctx, vet, tom.ID)
	require.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestTutorList_SearchAndPaging(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	for _, name := range []string{"Bruna Alves", "Bruno Costa", "Carla Dias"} {
		a.createTutor(t, vet, name)
	}
	a.createTutor(t, "auth0|other", "Bruno Outro")

	items, total, err := a.tutors.List(ctx, vet, "brun", 1, 0)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	require.Len(t, items, 1)
	require.Equal(t, "Bruna Alves", items[0].Name)

	items, _, err = a.tutors.List(ctx, vet, "brun", 1, 1)
	require.NoError(t, err)
	require.Equal(t, "Bruno Costa", items[0].Name)

	_, err = a.tutors.Create(ctx, vet, tutor.TutorInput{
		Name:  "Helena Rocha",
		Phone: "11 93456-7890",
		Email: "helena@petmail.com",
	})
	require.NoError(t, err)
	items, total, err = a.tutors.List(ctx, vet, "PETMAIL", 20, 0)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, "Helena Rocha", items[0].Name)

	items, total, err = a.tutors.List(ctx, vet, "ninguém", 20, 0)
	require.NoError(t, err)
	require.Zero(t, total)
	require.NotNil(t, items)
}

func TestPatientList_Query(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	tut := a.createTutor(t, vet, "Maria Oliveira")
	a.createPatient(t, vet, tut.ID, "Rex")
	_, err := a.patients.Create(ctx, vet, tut.ID, patient.PatientInput{
		Name:    "Mimi",
		Species: "felino",
		Breed:   "Siamês",
	})
	require.NoError(t, err)

	items, err := a.patients.ListByTutor(ctx, vet, tut.ID, "siam")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Mimi", items[0].Name)

	items, err = a.patients.ListByTutor(ctx, vet, tut.ID, "Canino")
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, "Rex", items[0].Name)

	items, err = a.patients.ListByTutor(ctx, vet, tut.ID, "")
	require.NoError(t, err)
	require.Len(t, items, 2)
}

func TestAppointments_DayView(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	tut := a.createTutor(t, vet, "Maria Oliveira")
	rex := a.createPatient(t, vet, tut.ID, "Rex")

	book := func(start time.Time) {
		end := start.Add(30 * time.Minute)
		_, err := a.appointments.Create(ctx, vet, scheduling.AppointmentInput{
			TutorID:   tut.ID,
			PatientID: rex.ID,
			StartsAt:  &start,
			EndsAt:    &end,
			Reason:    "Consulta",
		})
		require.NoError(t, err)
	}
	book(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	book(time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC))
	book(time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC))

	items, err := a.appointments.ListByDate(ctx, vet, "2025-06-10", "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "Rex", items[0].PatientName)
	require.Equal(t, "Maria Oliveira", items[0].TutorName)

	require.NoError(t, a.appointments.Delete(ctx, vet, items[0].ID))
	items, err = a.appointments.ListByDate(ctx, vet, "2025-06-10", "")
	require.NoError(t, err)
	require.Len(t, items, 1)
}

func TestMedicationCatalog_SharedAndPrivate(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)

	shared, err := a.catalog.Search(ctx, vet, "cefalex", "", 0)
	require.NoError(t, err)
	require.NotEmpty(t, shared)
	require.True(t, shared[0].Shared)

	_, err = a.catalog.Add(ctx, vet, medication.EntryInput{Name: "Gabapentina", Category: "analgesico"})
	require.NoError(t, err)

	mine, err := a.catalog.Search(ctx, vet, "gaba", "", 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)

	theirs, err := a.catalog.Search(ctx, "auth0|other", "gaba", "", 0)
	require.NoError(t, err)
	require.Empty(t, theirs)
}

func TestDashboard_Counts(t *testing.T) {
	ctx := context.Background()
	a := newApp(t)
	a.completeProfile(t, vet)
	tut := a.createTutor(t, vet, "Paula Ramos")
	luna := a.createPatient(t, vet, tut.ID, "Luna")
	a.createPatient(t, vet, tut.ID, "Thor")
	a.createTutor(t, "auth0|other", "Outro Tutor")

	_, err := a.docs.ComposeAndIssue(ctx, vet, prescriptionInput(luna.ID))
	require.NoError(t, err)

	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	for _, start := range []time.Time{today.Add(10 * time.Hour), today.Add(34 * time.Hour)} {
		end := start.Add(30 * time.Minute)
		_, err := a.appointments.Create(ctx, vet, scheduling.AppointmentInput{
			TutorID:   tut.ID,
			PatientID: luna.ID,
			StartsAt:  &start,
			EndsAt:    &end,
		})
		require.NoError(t, err)
	}

	got, err := a.dashboard.Summary(ctx, vet, "")
	require.NoError(t, err)
	require.Equal(t, today.Format("2006-01-02"), got.Date)
	require.Equal(t, 1, got.Tutors)
	require.Equal(t, 2, got.Patients)
	require.Equal(t, 1, got.DocumentsToday)
	require.Equal(t, 1, got.AppointmentsToday)
}
