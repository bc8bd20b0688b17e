// Package events carries domain events over NATS. Publishing is best
// effort: callers log failures and carry on.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

const (
	subjectDocumentIssued = "rdv.document.issued"
	// DocumentIssuedWildcard matches document-issued events for every practitioner.
	DocumentIssuedWildcard = subjectDocumentIssued + ".*"
)

// DocumentIssued is published once per successfully inserted document.
type DocumentIssued struct {
	DocumentID     uuid.UUID `json:"document_id"`
	PractitionerID string    `json:"practitioner_id"`
	PublicCode     string    `json:"public_code"`
	Type           string    `json:"type"`
	IssuedAt       time.Time `json:"issued_at"`
}

// Publisher publishes domain events.
type Publisher interface {
	PublishDocumentIssued(ctx context.Context, evt DocumentIssued) error
}

// DocumentIssuedSubject returns the per-practitioner subject. Characters that
// carry meaning in NATS subjects are replaced so arbitrary identity subjects
// stay a single token.
func DocumentIssuedSubject(practitionerID string) string {
	token := strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, practitionerID)
	if token == "" {
		token = "_"
	}
	return subjectDocumentIssued + "." + token
}

// Connect dials NATS with reconnect handling that reports through logger.
func Connect(url string, logger zerolog.Logger) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name("rdv-server"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info().Str("url", c.ConnectedUrl()).Msg("nats reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return nc, nil
}

// NATSPublisher publishes JSON payloads on core NATS subjects.
type NATSPublisher struct {
	nc *nats.Conn
}

func NewNATSPublisher(nc *nats.Conn) *NATSPublisher {
	return &NATSPublisher{nc: nc}
}

func (p *NATSPublisher) PublishDocumentIssued(_ context.Context, evt DocumentIssued) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode document issued: %w", err)
	}
	if err := p.nc.Publish(DocumentIssuedSubject(evt.PractitionerID), data); err != nil {
		return fmt.Errorf("publish document issued: %w", err)
	}
	return nil
}

// DocumentIssuedHandler processes one decoded event.
type DocumentIssuedHandler func(ctx context.Context, evt DocumentIssued) error

// SubscribeDocumentIssued registers handler for every practitioner's
// document-issued events. Each message is handled with its own timeout.
func SubscribeDocumentIssued(nc *nats.Conn, logger zerolog.Logger, timeout time.Duration, handler DocumentIssuedHandler) (*nats.Subscription, error) {
	sub, err := nc.Subscribe(DocumentIssuedWildcard, func(msg *nats.Msg) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := HandleDocumentIssued(ctx, msg, handler); err != nil {
			logger.Warn().Err(err).Str("subject", msg.Subject).Msg("document issued handler failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", DocumentIssuedWildcard, err)
	}
	return sub, nil
}

// HandleDocumentIssued decodes msg and invokes handler.
func HandleDocumentIssued(ctx context.Context, msg *nats.Msg, handler DocumentIssuedHandler) error {
	if !strings.HasPrefix(msg.Subject, subjectDocumentIssued+".") {
		return fmt.Errorf("unexpected subject %q", msg.Subject)
	}
	var evt DocumentIssued
	if err := json.Unmarshal(msg.Data, &evt); err != nil {
		return fmt.Errorf("decode document issued: %w", err)
	}
	if evt.DocumentID == uuid.Nil || evt.PractitionerID == "" {
		return fmt.Errorf("document issued event missing identifiers")
	}
	return handler(ctx, evt)
}

// NopPublisher drops every event. It is used when NATS is not configured.
type NopPublisher struct{}

func (NopPublisher) PublishDocumentIssued(context.Context, DocumentIssued) error { return nil }

// RecordingPublisher keeps published events in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []DocumentIssued
	Err    error
}

func (p *RecordingPublisher) PublishDocumentIssued(_ context.Context, evt DocumentIssued) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.events = append(p.events, evt)
	return nil
}

func (p *RecordingPublisher) Events() []DocumentIssued {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]DocumentIssued, len(p.events))
	copy(out, p.events)
	return out
}
