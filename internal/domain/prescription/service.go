package prescription

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/domain/patient"
	"github.com/rdv/rdv/internal/domain/practitioner"
	"github.com/rdv/rdv/internal/domain/tutor"
	"github.com/rdv/rdv/internal/platform/apperr"
	"github.com/rdv/rdv/internal/platform/blobstore"
	"github.com/rdv/rdv/internal/platform/events"
	"github.com/rdv/rdv/internal/platform/render"
	"github.com/rdv/rdv/internal/platform/telemetry"
	"github.com/rdv/rdv/pkg/brdoc"
)

const (
	publicViewTTL = 24 * time.Hour
	presignTTL    = 24 * time.Hour
)

type ProfileSource interface {
	GetProfile(ctx context.Context, practitionerID string) (*practitioner.Profile, error)
}

type PatientSource interface {
	Get(ctx context.Context, practitionerID string, id uuid.UUID) (*patient.Patient, error)
}

type TutorSource interface {
	Get(ctx context.Context, practitionerID string, id uuid.UUID) (*tutor.Tutor, error)
}

// ViewCache is the read-through cache in front of public lookups.
type ViewCache interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

type Options struct {
	PublicBaseURL string
	Location      *time.Location
	Cache         ViewCache
	Publisher     events.Publisher
	Archive       blobstore.Store
	Metrics       *telemetry.Metrics
	Logger        zerolog.Logger
	Now           func() time.Time
}

type Service struct {
	docs     DocumentRepository
	profiles ProfileSource
	patients PatientSource
	tutors   TutorSource
	opts     Options
}

func NewService(docs DocumentRepository, profiles ProfileSource, patients PatientSource, tutors TutorSource, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Publisher == nil {
		opts.Publisher = events.NopPublisher{}
	}
	opts.PublicBaseURL = strings.TrimRight(opts.PublicBaseURL, "/")
	return &Service{docs: docs, profiles: profiles, patients: patients, tutors: tutors, opts: opts}
}

// VerifyURL is the web page that renders the public projection of code.
func (s *Service) VerifyURL(code string) string {
	return s.opts.PublicBaseURL + "/view-prescription/" + code
}

// ComposeDraft validates in and freezes snapshots of the patient, the tutor
// and the caller's profile. Nothing is persisted.
func (s *Service) ComposeDraft(ctx context.Context, practitionerID string, in DraftInput) (*Draft, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}

	profile, err := s.profiles.GetProfile(ctx, practitionerID)
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, err
	}
	if missing := practitioner.MissingFields(profile); len(missing) > 0 {
		return nil, &apperr.ProfileIncompleteError{Missing: missing}
	}

	d := &Draft{
		Type:            strings.ToLower(strings.TrimSpace(in.Type)),
		PractitionerID:  practitionerID,
		PatientID:       in.PatientID,
		Purpose:         strings.TrimSpace(in.Purpose),
		AttestationText: strings.TrimSpace(in.AttestationText),
	}
	if err := validateDraft(d, in); err != nil {
		return nil, err
	}

	pat, err := s.patients.Get(ctx, practitionerID, in.PatientID)
	if err != nil {
		return nil, err
	}
	tut, err := s.tutors.Get(ctx, practitionerID, pat.TutorID)
	if err != nil {
		return nil, err
	}

	d.DraftID = uuid.New()
	if in.DraftID != nil && *in.DraftID != uuid.Nil {
		d.DraftID = *in.DraftID
	}
	d.IssuedAt = s.opts.Now().UTC()
	if in.IssuedAt != nil && !in.IssuedAt.IsZero() {
		d.IssuedAt = in.IssuedAt.UTC()
	}
	d.TutorID = tut.ID
	d.Patient = PatientSnapshot{
		ID:       pat.ID,
		Name:     pat.Name,
		Species:  pat.Species,
		Breed:    pat.Breed,
		Sex:      pat.Sex,
		Age:      patient.DisplayAge(pat, d.IssuedAt),
		WeightKg: pat.WeightKg,
	}
	d.Tutor = TutorSnapshot{
		ID:      tut.ID,
		Name:    tut.Name,
		Phone:   tut.Phone,
		Email:   tut.Email,
		CPF:     tut.CPF,
		Address: tut.Address,
	}
	d.Practitioner = PractitionerSnapshot{
		Name:                  profile.Name,
		Registration:          profile.Registration(),
		SecondaryRegistration: profile.SecondaryRegistration,
		Phone:                 profile.Phone,
		Email:                 profile.Email,
		ClinicName:            profile.ClinicName,
		Specialty:             profile.Specialty,
		Address:               profile.Address,
	}
	return d, nil
}

func validateDraft(d *Draft, in DraftInput) error {
	ve := &apperr.ValidationError{}
	if in.PatientID == uuid.Nil {
		ve.Add("patient_id", "is required")
	}
	if d.Purpose == "" {
		ve.Add("purpose", "is required")
	}
	switch d.Type {
	case TypePrescription:
		if len(in.Medications) == 0 {
			ve.Add("medications", "at least one medication is required")
			break
		}
		d.Medications = make([]Medication, len(in.Medications))
		reported := false
		for i, m := range in.Medications {
			m = Medication{
				Name:      strings.TrimSpace(m.Name),
				Dosage:    strings.TrimSpace(m.Dosage),
				Frequency: strings.TrimSpace(m.Frequency),
				Duration:  strings.TrimSpace(m.Duration),
			}
			d.Medications[i] = m
			if reported {
				continue
			}
			prefix := fmt.Sprintf("medications[%d].", i)
			if m.Name == "" {
				ve.Add(prefix+"name", "is required")
				reported = true
			}
			if m.Dosage == "" {
				ve.Add(prefix+"dosage", "is required")
				reported = true
			}
			if m.Frequency == "" {
				ve.Add(prefix+"frequency", "is required")
				reported = true
			}
		}
		d.AttestationText = ""
	case TypeAttestation:
		if d.AttestationText == "" {
			ve.Add("attestation_text", "is required")
		}
		d.Medications = []Medication{}
	default:
		ve.Add("type", "must be prescription or attestation")
	}
	return ve.Err()
}

// Issue persists d exactly once. A repeated draft id yields ErrConflict.
// The document-issued event is published after the insert and its failure
// never fails the issue.
func (s *Service) Issue(ctx context.Context, d *Draft) (*Record, error) {
	if d == nil || d.PractitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	exists, err := s.docs.ExistsDraft(ctx, d.DraftID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("draft %s already issued: %w", d.DraftID, apperr.ErrConflict)
	}

	rec := &Record{
		ID:              uuid.New(),
		PublicCode:      uuid.NewString(),
		DraftID:         d.DraftID,
		Type:            d.Type,
		PractitionerID:  d.PractitionerID,
		PatientID:       d.PatientID,
		TutorID:         d.TutorID,
		IssuedAt:        d.IssuedAt,
		Purpose:         d.Purpose,
		Medications:     d.Medications,
		AttestationText: d.AttestationText,
		Status:          StatusIssued,
		Patient:         d.Patient,
		Tutor:           d.Tutor,
		Practitioner:    d.Practitioner,
	}
	if err := s.docs.Insert(ctx, rec); err != nil {
		return nil, err
	}
	rec.VerifyURL = s.VerifyURL(rec.PublicCode)
	s.opts.Metrics.DocumentIssued(rec.Type)

	evt := events.DocumentIssued{
		DocumentID:     rec.ID,
		PractitionerID: rec.PractitionerID,
		PublicCode:     rec.PublicCode,
		Type:           rec.Type,
		IssuedAt:       rec.IssuedAt,
	}
	if err := s.opts.Publisher.PublishDocumentIssued(ctx, evt); err != nil {
		s.opts.Metrics.PublishFailed()
		s.opts.Logger.Warn().Err(err).Str("document_id", rec.ID.String()).Msg("publish document issued")
	}
	return rec, nil
}

// ComposeAndIssue is the single-request path used by POST /documents.
func (s *Service) ComposeAndIssue(ctx context.Context, practitionerID string, in DraftInput) (*Record, error) {
	d, err := s.ComposeDraft(ctx, practitionerID, in)
	if err != nil {
		return nil, err
	}
	return s.Issue(ctx, d)
}

// CountIssuedBetween counts the practitioner's documents recorded in [from, to).
func (s *Service) CountIssuedBetween(ctx context.Context, practitionerID string, from, to time.Time) (int, error) {
	if practitionerID == "" {
		return 0, apperr.ErrUnauthenticated
	}
	return s.docs.CountCreatedBetween(ctx, practitionerID, from, to)
}

func (s *Service) GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*Record, error) {
	if practitionerID == "" {
		return nil, apperr.ErrUnauthenticated
	}
	rec, err := s.docs.GetByID(ctx, practitionerID, id)
	if err != nil {
		return nil, err
	}
	rec.VerifyURL = s.VerifyURL(rec.PublicCode)
	return rec, nil
}

func publicViewKey(code string) string {
	return "document:public:" + code
}

// GetByPublicCode serves the unauthenticated verification lookup. Codes that
// are not UUIDs are rejected without a query.
func (s *Service) GetByPublicCode(ctx context.Context, code string) (*PublicView, error) {
	parsed, err := uuid.Parse(strings.TrimSpace(code))
	if err != nil {
		s.opts.Metrics.Verification("not_found")
		return nil, apperr.ErrNotFound
	}
	code = parsed.String()
	key := publicViewKey(code)

	if s.opts.Cache != nil {
		var view PublicView
		hit, err := s.opts.Cache.GetJSON(ctx, key, &view)
		if err != nil {
			s.opts.Logger.Warn().Err(err).Msg("public view cache read")
		}
		s.opts.Metrics.CacheLookup("document", hit)
		if hit {
			s.opts.Metrics.Verification("found")
			return &view, nil
		}
	}

	rec, err := s.docs.GetByPublicCode(ctx, code)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			s.opts.Metrics.Verification("not_found")
		} else {
			s.opts.Metrics.Verification("error")
		}
		return nil, err
	}
	view := rec.publicView()
	if s.opts.Cache != nil {
		if err := s.opts.Cache.SetJSON(ctx, key, view, publicViewTTL); err != nil {
			s.opts.Logger.Warn().Err(err).Msg("public view cache write")
		}
	}
	s.opts.Metrics.Verification("found")
	return view, nil
}

func (s *Service) List(ctx context.Context, practitionerID string, f Filter, limit, offset int) ([]*Record, int, error) {
	if practitionerID == "" {
		return nil, 0, apperr.ErrUnauthenticated
	}
	if f.Type != "" && !validTypes[f.Type] {
		return nil, 0, apperr.Invalid("type", "must be prescription or attestation")
	}
	if f.From != nil && f.To != nil && !f.From.Before(*f.To) {
		return nil, 0, apperr.Invalid("to", "must be after from")
	}
	items, total, err := s.docs.List(ctx, practitionerID, f, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	for _, rec := range items {
		rec.VerifyURL = s.VerifyURL(rec.PublicCode)
	}
	return items, total, nil
}

// ListByPatient is the patient history: every document issued for one
// patient, newest first.
func (s *Service) ListByPatient(ctx context.Context, practitionerID string, patientID uuid.UUID, limit, offset int) ([]*Record, int, error) {
	if practitionerID == "" {
		return nil, 0, apperr.ErrUnauthenticated
	}
	if _, err := s.patients.Get(ctx, practitionerID, patientID); err != nil {
		return nil, 0, err
	}
	return s.List(ctx, practitionerID, Filter{PatientID: &patientID}, limit, offset)
}

// RenderPDF renders an owned record. Rendering is deterministic for a given
// record.
func (s *Service) RenderPDF(ctx context.Context, practitionerID string, id uuid.UUID) (*Record, []byte, error) {
	rec, err := s.GetByID(ctx, practitionerID, id)
	if err != nil {
		return nil, nil, err
	}
	pdf, err := s.renderRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	return rec, pdf, nil
}

func (s *Service) renderRecord(rec *Record) ([]byte, error) {
	items := make([]render.Item, len(rec.Medications))
	for i, m := range rec.Medications {
		items[i] = render.Item{Name: m.Name, Dosage: m.Dosage, Frequency: m.Frequency, Duration: m.Duration}
	}
	pr := rec.Practitioner
	return render.PDF(render.Document{
		Type:       rec.Type,
		PublicCode: rec.PublicCode,
		IssuedAt:   rec.IssuedAt,
		Location:   s.opts.Location,
		Practitioner: render.Practitioner{
			Name:         pr.Name,
			ClinicName:   pr.ClinicName,
			Registration: pr.Registration,
			Secondary:    pr.SecondaryRegistration,
			Phone:        brdoc.FormatPhoneNational(pr.Phone),
			Address:      pr.Address.Line(),
		},
		Patient: render.Patient{
			Name:     rec.Patient.Name,
			Species:  patient.SpeciesLabel(rec.Patient.Species),
			Breed:    rec.Patient.Breed,
			Age:      rec.Patient.Age,
			WeightKg: rec.Patient.WeightKg,
		},
		Tutor:           render.Tutor{Name: rec.Tutor.Name, CPF: rec.Tutor.CPF},
		Items:           items,
		AttestationText: rec.AttestationText,
		Purpose:         rec.Purpose,
		VerifyURL:       s.VerifyURL(rec.PublicCode),
	})
}

// ArchivePDF renders rec and stores it under its document key. It is a no-op
// without an archive.
func (s *Service) ArchivePDF(ctx context.Context, rec *Record) (*blobstore.Metadata, []byte, error) {
	pdf, err := s.renderRecord(rec)
	if err != nil {
		return nil, nil, err
	}
	if s.opts.Archive == nil {
		return nil, pdf, nil
	}
	meta, err := s.opts.Archive.Put(ctx, blobstore.Metadata{
		Key:         blobstore.DocumentKey(rec.PractitionerID, rec.PublicCode),
		ContentType: "application/pdf",
		Tags:        map[string]string{"type": rec.Type, "document_id": rec.ID.String()},
	}, bytes.NewReader(pdf))
	if err != nil {
		return nil, pdf, fmt.Errorf("archive document %s: %w", rec.ID, err)
	}
	return meta, pdf, nil
}

// ShareLinks builds the links a practitioner sends to the tutor. The PDF
// link is only offered once the archive holds the document.
func (s *Service) ShareLinks(ctx context.Context, practitionerID string, id uuid.UUID) (*ShareLinks, error) {
	rec, err := s.GetByID(ctx, practitionerID, id)
	if err != nil {
		return nil, err
	}
	links := &ShareLinks{
		VerifyURL:   rec.VerifyURL,
		WhatsAppURL: whatsAppURL(rec),
	}
	if s.opts.Archive != nil {
		key := blobstore.DocumentKey(rec.PractitionerID, rec.PublicCode)
		if _, err := s.opts.Archive.Stat(ctx, key); err == nil {
			u, err := s.opts.Archive.PresignGet(ctx, key, presignTTL)
			if err != nil {
				s.opts.Logger.Warn().Err(err).Str("key", key).Msg("presign document")
			} else {
				links.PDFURL = u
			}
		} else if !errors.Is(err, blobstore.ErrBlobNotFound) {
			s.opts.Logger.Warn().Err(err).Str("key", key).Msg("stat archived document")
		}
	}
	return links, nil
}

func whatsAppURL(rec *Record) string {
	title := "receita"
	if rec.Type == TypeAttestation {
		title = "atestado"
	}
	msg := fmt.Sprintf("Olá! Segue o(a) %s de %s emitido(a) por Dr(a). %s. Confira em: %s",
		title, rec.Patient.Name, rec.Practitioner.Name, rec.VerifyURL)
	text := url.QueryEscape(msg)
	if digits := brdoc.WhatsAppDigits(rec.Tutor.Phone); digits != "" {
		return "https://wa.me/" + digits + "?text=" + text
	}
	return "https://api.whatsapp.com/send?text=" + text
}
