// Package dashboard aggregates the practitioner's home-screen counters.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"github.com/rdv/rdv/internal/platform/apperr"
)

// Summary is the home-screen view. Daily counters cover Date in TimeZone.
type Summary struct {
	Date              string `json:"date"`
	TimeZone          string `json:"time_zone"`
	Tutors            int    `json:"tutors"`
	Patients          int    `json:"patients"`
	DocumentsToday    int    `json:"documents_today"`
	AppointmentsToday int    `json:"appointments_today"`
}

type Counter interface {
	Count(ctx context.Context, practitionerID string) (int, error)
}

type DocumentCounter interface {
	CountIssuedBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error)
}

type AppointmentCounter interface {
	CountBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error)
}

type Service struct {
	tutors       Counter
	patients     Counter
	documents    DocumentCounter
	appointments AppointmentCounter
	loc          *time.Location
	now          func() time.Time
}

// NewService counts "today" in loc unless a request names another zone.
func NewService(tutors, patients Counter, documents DocumentCounter, appointments AppointmentCounter, loc *time.Location) *Service {
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		tutors:       tutors,
		patients:     patients,
		documents:    documents,
		appointments: appointments,
		loc:          loc,
		now:          time.Now,
	}
}

func (s *Service) Summary(ctx context.Context, practitionerID, tz string) (*Summary, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	loc := s.loc
	if tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, apperr.Invalid("tz", "unknown time zone")
		}
		loc = l
	}
	now := s.now().In(loc)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	next := day.AddDate(0, 0, 1)

	out := &Summary{Date: day.Format("2006-01-02"), TimeZone: loc.String()}
	var err error
	if out.Tutors, err = s.tutors.Count(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("count tutors: %w", err)
	}
	if out.Patients, err = s.patients.Count(ctx, practitionerID); err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	if out.DocumentsToday, err = s.documents.CountIssuedBetween(ctx, practitionerID, day, next); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if out.AppointmentsToday, err = s.appointments.CountBetween(ctx, practitionerID, day, next); err != nil {
		return nil, fmt.Errorf("count appointments: %w", err)
	}
	return out, nil
}
