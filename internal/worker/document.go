// Package worker holds the background consumers of domain events.
package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/rdv/rdv/internal/domain/prescription"
	"github.com/rdv/rdv/internal/platform/blobstore"
	"github.com/rdv/rdv/internal/platform/events"
	"github.com/rdv/rdv/internal/platform/notification"
	"github.com/rdv/rdv/internal/platform/render"
	"github.com/rdv/rdv/internal/platform/telemetry"
)

const (
	StepLoad    = "load"
	StepArchive = "archive"
	StepEmail   = "email"
)

// DocumentSource is the subset of the document service the worker needs.
type DocumentSource interface {
	GetByID(ctx context.Context, practitionerID string, id uuid.UUID) (*prescription.Record, error)
	ArchivePDF(ctx context.Context, rec *prescription.Record) (*blobstore.Metadata, []byte, error)
}

type Mailer interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string, attachments ...notification.Attachment) (*notification.Delivery, error)
}

// DocumentWorker archives freshly issued documents and mails them to the
// tutor. It only reads records.
type DocumentWorker struct {
	docs    DocumentSource
	mailer  Mailer
	metrics *telemetry.Metrics
	logger  zerolog.Logger

	// Timeout bounds the handling of a single event.
	Timeout time.Duration
}

// NewDocumentWorker creates a worker. mailer and metrics may be nil.
func NewDocumentWorker(docs DocumentSource, mailer Mailer, metrics *telemetry.Metrics, logger zerolog.Logger) *DocumentWorker {
	return &DocumentWorker{
		docs:    docs,
		mailer:  mailer,
		metrics: metrics,
		logger:  logger,
		Timeout: 30 * time.Second,
	}
}

// Run subscribes to document-issued events and blocks until ctx is
// cancelled.
func (w *DocumentWorker) Run(ctx context.Context, nc *nats.Conn) error {
	sub, err := events.SubscribeDocumentIssued(nc, w.logger, w.Timeout, w.Handle)
	if err != nil {
		return err
	}
	w.logger.Info().Str("subject", events.DocumentIssuedWildcard).Msg("document worker started")
	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		w.logger.Warn().Err(err).Msg("drain document subscription")
	}
	return nil
}

// Handle processes one event. Archive and email failures are reported but
// do not stop the remaining steps.
func (w *DocumentWorker) Handle(ctx context.Context, evt events.DocumentIssued) error {
	log := w.logger.With().
		Str("document_id", evt.DocumentID.String()).
		Str("type", evt.Type).
		Logger()

	rec, err := w.docs.GetByID(ctx, evt.PractitionerID, evt.DocumentID)
	w.metrics.WorkerStep(StepLoad, err)
	if err != nil {
		return fmt.Errorf("load document %s: %w", evt.DocumentID, err)
	}

	meta, pdf, archiveErr := w.docs.ArchivePDF(ctx, rec)
	if meta != nil || archiveErr != nil {
		w.metrics.WorkerStep(StepArchive, archiveErr)
	}
	if archiveErr != nil {
		log.Error().Err(archiveErr).Msg("archive document")
	} else if meta != nil {
		log.Info().Str("key", meta.Key).Int64("size", meta.Size).Msg("document archived")
	}

	mailErr := w.email(ctx, rec, pdf)
	if mailErr != nil {
		log.Error().Err(mailErr).Msg("email document")
	}

	if archiveErr != nil {
		return archiveErr
	}
	return mailErr
}

func (w *DocumentWorker) email(ctx context.Context, rec *prescription.Record, pdf []byte) error {
	if w.mailer == nil || rec.Tutor.Email == "" {
		return nil
	}
	title := "Receita"
	if rec.Type == prescription.TypeAttestation {
		title = "Atestado"
	}
	var attachments []notification.Attachment
	if len(pdf) > 0 {
		attachments = append(attachments, notification.Attachment{
			Name:        rec.Type + "-" + render.ShortCode(rec.PublicCode) + ".pdf",
			ContentType: "application/pdf",
			Data:        pdf,
		})
	}
	_, err := w.mailer.SendFromTemplate(ctx, notification.TemplateDocumentIssued, map[string]string{
		"tutor_name":        rec.Tutor.Name,
		"patient_name":      rec.Patient.Name,
		"practitioner_name": rec.Practitioner.Name,
		"document_title":    title,
		"verify_url":        rec.VerifyURL,
		"short_code":        render.ShortCode(rec.PublicCode),
	}, rec.Tutor.Email, attachments...)
	w.metrics.WorkerStep(StepEmail, err)
	return err
}
