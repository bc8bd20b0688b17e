package prescription

import (
	"time"

	"github.com/google/uuid"

	"github.com/rdv/rdv/pkg/brdoc"
)

const (
	TypePrescription = "prescription"
	TypeAttestation  = "attestation"

	StatusIssued = "issued"
)

var validTypes = map[string]bool{
	TypePrescription: true,
	TypeAttestation:  true,
}

type Medication struct {
	Name      string `json:"name"`
	Dosage    string `json:"dosage"`
	Frequency string `json:"frequency"`
	Duration  string `json:"duration"`
}

// PatientSnapshot freezes the patient as it was at issue time. Age is the
// display age on that day.
type PatientSnapshot struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Species  string    `json:"species"`
	Breed    string    `json:"breed"`
	Sex      string    `json:"sex"`
	Age      string    `json:"age"`
	WeightKg *float64  `json:"weight_kg,omitempty"`
}

type TutorSnapshot struct {
	ID      uuid.UUID     `json:"id"`
	Name    string        `json:"name"`
	Phone   string        `json:"phone"`
	Email   string        `json:"email"`
	CPF     string        `json:"cpf"`
	Address brdoc.Address `json:"address"`
}

type PractitionerSnapshot struct {
	Name                  string        `json:"name"`
	Registration          string        `json:"registration"`
	SecondaryRegistration string        `json:"secondary_registration"`
	Phone                 string        `json:"phone"`
	Email                 string        `json:"email"`
	ClinicName            string        `json:"clinic_name"`
	Specialty             string        `json:"specialty"`
	Address               brdoc.Address `json:"address"`
}

type DraftInput struct {
	DraftID         *uuid.UUID   `json:"draft_id"`
	PatientID       uuid.UUID    `json:"patient_id"`
	Type            string       `json:"type"`
	IssuedAt        *time.Time   `json:"issued_at"`
	Purpose         string       `json:"purpose"`
	Medications     []Medication `json:"medications"`
	AttestationText string       `json:"attestation_text"`
}

// Draft is a composed, validated document that has not been persisted.
// Issuing the same draft twice is rejected.
type Draft struct {
	DraftID         uuid.UUID            `json:"draft_id"`
	Type            string               `json:"type"`
	PractitionerID  string               `json:"-"`
	PatientID       uuid.UUID            `json:"patient_id"`
	TutorID         uuid.UUID            `json:"tutor_id"`
	IssuedAt        time.Time            `json:"issued_at"`
	Purpose         string               `json:"purpose"`
	Medications     []Medication         `json:"medications"`
	AttestationText string               `json:"attestation_text"`
	Patient         PatientSnapshot      `json:"patient"`
	Tutor           TutorSnapshot        `json:"tutor"`
	Practitioner    PractitionerSnapshot `json:"practitioner"`
}

// Record is an issued document. Records are never updated or deleted.
type Record struct {
	ID              uuid.UUID            `json:"id"`
	PublicCode      string               `json:"public_code"`
	DraftID         uuid.UUID            `json:"draft_id"`
	Type            string               `json:"type"`
	PractitionerID  string               `json:"-"`
	PatientID       uuid.UUID            `json:"patient_id"`
	TutorID         uuid.UUID            `json:"tutor_id"`
	IssuedAt        time.Time            `json:"issued_at"`
	Purpose         string               `json:"purpose"`
	Medications     []Medication         `json:"medications"`
	AttestationText string               `json:"attestation_text"`
	Status          string               `json:"status"`
	Patient         PatientSnapshot      `json:"patient"`
	Tutor           TutorSnapshot        `json:"tutor"`
	Practitioner    PractitionerSnapshot `json:"practitioner"`
	CreatedAt       time.Time            `json:"created_at"`
	VerifyURL       string               `json:"verify_url,omitempty"`
}

// PublicView is what an unauthenticated verifier sees. It carries no
// internal identifiers and no tutor contact data.
type PublicView struct {
	PublicCode      string       `json:"public_code"`
	Type            string       `json:"type"`
	IssuedAt        time.Time    `json:"issued_at"`
	Purpose         string       `json:"purpose"`
	Medications     []Medication `json:"medications,omitempty"`
	AttestationText string       `json:"attestation_text,omitempty"`
	Patient         struct {
		Name     string   `json:"name"`
		Species  string   `json:"species"`
		Breed    string   `json:"breed"`
		Age      string   `json:"age"`
		WeightKg *float64 `json:"weight_kg,omitempty"`
	} `json:"patient"`
	Tutor struct {
		Name string `json:"name"`
	} `json:"tutor"`
	Practitioner struct {
		Name         string `json:"name"`
		Registration string `json:"registration"`
	} `json:"practitioner"`
}

// Filter narrows List. Zero values match everything.
type Filter struct {
	Type      string
	From      *time.Time
	To        *time.Time
	Query     string
	PatientID *uuid.UUID
}

type ShareLinks struct {
	VerifyURL   string `json:"verify_url"`
	WhatsAppURL string `json:"whatsapp_url"`
	PDFURL      string `json:"pdf_url,omitempty"`
}

func (r *Record) publicView() *PublicView {
	v := &PublicView{
		PublicCode:      r.PublicCode,
		Type:            r.Type,
		IssuedAt:        r.IssuedAt,
		Purpose:         r.Purpose,
		AttestationText: r.AttestationText,
	}
	if r.Type == TypePrescription {
		v.Medications = r.Medications
	}
	v.Patient.Name = r.Patient.Name
	v.Patient.Species = r.Patient.Species
	v.Patient.Breed = r.Patient.Breed
	v.Patient.Age = r.Patient.Age
	v.Patient.WeightKg = r.Patient.WeightKg
	v.Tutor.Name = r.Tutor.Name
	v.Practitioner.Name = r.Practitioner.Name
	v.Practitioner.Registration = r.Practitioner.Registration
	return v
}
