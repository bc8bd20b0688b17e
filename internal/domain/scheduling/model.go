package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Appointment is a booked visit. Appointments are created and deleted,
// never edited.
type Appointment struct {
	ID             uuid.UUID `json:"id"`
	PractitionerID string    `json:"-"`
	TutorID        uuid.UUID `json:"tutor_id"`
	PatientID      uuid.UUID `json:"patient_id"`
	StartsAt       time.Time `json:"starts_at"`
	EndsAt         time.Time `json:"ends_at"`
	Reason         string    `json:"reason"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"created_at"`

	// Display names, filled on reads.
	TutorName   string `json:"tutor_name,omitempty"`
	PatientName string `json:"patient_name,omitempty"`
}

type AppointmentInput struct {
	TutorID   uuid.UUID  `json:"tutor_id"`
	PatientID uuid.UUID  `json:"patient_id"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	Reason    string     `json:"reason"`
	Notes     string     `json:"notes"`
}
