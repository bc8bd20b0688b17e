// Package notification renders and delivers outbound email to tutors.
package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Attachment is an in-memory file carried by a Message.
type Attachment struct {
	Name        string
	ContentType string
	Data        []byte
}

// Message is a single outbound email.
type Message struct {
	To          string
	Subject     string
	Body        string
	Attachments []Attachment
}

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, msg Message) error
}

// Template defines a reusable email template. Placeholders use {{key}}.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const (
	TemplateDocumentIssued       = "document-issued"
	TemplateAppointmentScheduled = "appointment-scheduled"
)

// TemplateEngine manages templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateDocumentIssued,
			Name:    "Document Issued",
			Subject: "{{document_title}} de {{patient_name}}",
			Body: "Olá {{tutor_name}},\n\n" +
				"{{practitioner_name}} emitiu um(a) {{document_title}} para {{patient_name}}.\n" +
				"Você pode conferir a autenticidade do documento em: {{verify_url}}\n\n" +
				"Código de verificação: {{short_code}}",
		},
		{
			ID:      TemplateAppointmentScheduled,
			Name:    "Appointment Scheduled",
			Subject: "Consulta de {{patient_name}} agendada",
			Body:    "Olá {{tutor_name}}, a consulta de {{patient_name}} foi agendada para {{date}} às {{time}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// Delivery records the outcome of one send.
type Delivery struct {
	ID         string     `json:"id"`
	TemplateID string     `json:"template_id,omitempty"`
	Recipient  string     `json:"recipient"`
	Subject    string     `json:"subject"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"created_at"`
	SentAt     *time.Time `json:"sent_at,omitempty"`
	Error      string     `json:"error,omitempty"`
}

// Notifier renders templates and hands the result to an EmailSender.
type Notifier struct {
	sender    EmailSender
	templates *TemplateEngine
}

func NewNotifier(sender EmailSender, tpl *TemplateEngine) *Notifier {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	return &Notifier{sender: sender, templates: tpl}
}

// SendFromTemplate renders templateID with data and mails it to recipient.
// The returned Delivery is populated even when sending fails.
func (n *Notifier) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string, attachments ...Attachment) (*Delivery, error) {
	if strings.TrimSpace(recipient) == "" {
		return nil, errors.New("recipient is required")
	}
	subject, body, err := n.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	d := &Delivery{
		ID:         uuid.New().String(),
		TemplateID: templateID,
		Recipient:  recipient,
		Subject:    subject,
		Status:     "pending",
		CreatedAt:  time.Now().UTC(),
	}

	err = n.sender.SendEmail(ctx, Message{To: recipient, Subject: subject, Body: body, Attachments: attachments})
	if err != nil {
		d.Status = "failed"
		d.Error = err.Error()
		return d, err
	}
	sentAt := time.Now().UTC()
	d.Status = "sent"
	d.SentAt = &sentAt
	return d, nil
}

// MockEmailSender is a test double for EmailSender.
type MockEmailSender struct {
	mu         sync.Mutex
	calls      []Message
	ShouldFail bool
	FailError  string
}

// SendEmail records the call and optionally returns an error.
func (m *MockEmailSender) SendEmail(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, msg)
	if m.ShouldFail {
		return errors.New(m.FailError)
	}
	return nil
}

// Calls returns a copy of recorded messages.
func (m *MockEmailSender) Calls() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, len(m.calls))
	copy(out, m.calls)
	return out
}
