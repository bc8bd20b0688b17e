package scheduling

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/domain/patient"
	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/notification"
)

type TutorSource interface {
	Get(ctx context.Context, practitionerID string, id uuid.UUID) (*tutor.Tutor, error)
}

type PatientSource interface {
	Get(ctx context.Context, practitionerID string, id uuid.UUID) (*patient.Patient, error)
}

// Notifier sends the booking confirmation to the tutor.
type Notifier interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string, attachments ...notification.Attachment) (*notification.Delivery, error)
}

type Options struct {
	// Location is the clinic's default time zone for day views.
	Location *time.Location
	Notifier Notifier
	Logger   zerolog.Logger
}

type Service struct {
	appointments AppointmentRepository
	tutors       TutorSource
	patients     PatientSource
	opts         Options
}

func NewService(appts AppointmentRepository, tutors TutorSource, patients PatientSource, opts Options) *Service {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &Service{appointments: appts, tutors: tutors, patients: patients, opts: opts}
}

// ListByDate returns the appointments starting on date (YYYY-MM-DD) in the
// given IANA zone, or the clinic's zone when tz is empty.
func (s *Service) ListByDate(ctx context.Context, practitionerID, date, tz string) ([]*Appointment, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	loc := s.opts.Location
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, apperr.Invalid("tz", "unknown time zone")
		}
		loc = l
	}
	day, err := time.ParseInLocation("2006-01-02", date, loc)
	if err != nil {
		return nil, apperr.Invalid("date", "must be a date in YYYY-MM-DD format")
	}
	return s.appointments.ListBetween(ctx, practitionerID, day, day.AddDate(0, 0, 1))
}

// CountBetween counts appointments starting in [from, to).
func (s *Service) CountBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error) {
	if practitionerID == "" {
		return 0, apperr.ErrUnauthenticated
	}
	return s.appointments.CountBetween(ctx, practitionerID, from, to)
}

// Create books an appointment. Overlapping appointments are allowed.
func (s *Service) Create(ctx context.Context, practitionerID string, in AppointmentInput) (*Appointment, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	ve := &apperr.ValidationError{}
	if in.TutorID == uuid.Nil {
		ve.Add("tutor_id", "is required")
	}
	if in.PatientID == uuid.Nil {
		ve.Add("patient_id", "is required")
	}
	if in.StartsAt == nil || in.StartsAt.IsZero() {
		ve.Add("starts_at", "is required")
	}
	if in.EndsAt == nil || in.EndsAt.IsZero() {
		ve.Add("ends_at", "is required")
	}
	if !ve.Has("starts_at") && !ve.Has("ends_at") && !in.StartsAt.Before(*in.EndsAt) {
		ve.Add("ends_at", "must be after starts_at")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	tut, err := s.tutors.Get(ctx, practitionerID, in.TutorID)
	if err != nil {
		return nil, err
	}
	pat, err := s.patients.Get(ctx, practitionerID, in.PatientID)
	if err != nil {
		return nil, err
	}
	if pat.TutorID != tut.ID {
		return nil, apperr.Invalid("patient_id", "patient does not belong to the tutor")
	}

	a := &Appointment{
		PractitionerID: practitionerID,
		TutorID:        tut.ID,
		PatientID:      pat.ID,
		StartsAt:       in.StartsAt.UTC(),
		EndsAt:         in.EndsAt.UTC(),
		Reason:         strings.TrimSpace(in.Reason),
		Notes:          strings.TrimSpace(in.Notes),
		TutorName:      tut.Name,
		PatientName:    pat.Name,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return nil, err
	}
	s.confirm(ctx, a, tut)
	return a, nil
}

// confirm emails the tutor when both an address and a sender exist.
// Failures are logged only.
func (s *Service) confirm(ctx context.Context, a *Appointment, t *tutor.Tutor) {
	if s.opts.Notifier == nil || t.Email == "" {
		return
	}
	local := a.StartsAt.In(s.opts.Location)
	_, err := s.opts.Notifier.SendFromTemplate(ctx, notification.TemplateAppointmentScheduled, map[string]string{
		"tutor_name":   t.Name,
		"patient_name": a.PatientName,
		"date":         local.Format("02/01/2006"),
		"time":         local.Format("15:04"),
	}, t.Email)
	if err != nil {
		s.opts.Logger.Warn().Err(err).Str("appointment_id", a.ID.String()).Msg("appointment confirmation")
	}
}

func (s *Service) Delete(ctx context.Context, practitionerID string, id uuid.UUID) error {
	if practitionerID == "" {
		return apperr.ErrUnauthenticated
	}
	return s.appointments.Delete(ctx, practitionerID, id)
}
