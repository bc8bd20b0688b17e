package notification

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Template Engine Tests
// ---------------------------------------------------------------------------

func TestTemplateEngine_RegisterAndRender(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{
		ID:      "test-tpl",
		Name:    "Test Template",
		Subject: "Hello {{name}}",
		Body:    "Dear {{name}}, your code is {{code}}.",
	})

	subject, body, err := eng.Render("test-tpl", map[string]string{
		"name": "Alice",
		"code": "1234",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Hello Alice" {
		t.Errorf("subject = %q, want %q", subject, "Hello Alice")
	}
	if body != "Dear Alice, your code is 1234." {
		t.Errorf("body = %q, want %q", body, "Dear Alice, your code is 1234.")
	}
}

func TestTemplateEngine_RenderMissing(t *testing.T) {
	eng := NewTemplateEngine()
	if _, _, err := eng.Render("nonexistent", nil); err == nil {
		t.Fatal("expected error for missing template, got nil")
	}
}

func TestTemplateEngine_DocumentIssued(t *testing.T) {
	eng := NewTemplateEngine()
	subject, body, err := eng.Render(TemplateDocumentIssued, map[string]string{
		"document_title":    "Receituário",
		"patient_name":      "Rex",
		"tutor_name":        "Maria",
		"practitioner_name": "Dra. Ana",
		"verify_url":        "https://rdv.example.com/view-prescription/abc",
		"short_code":        "ABC12345",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if subject != "Receituário de Rex" {
		t.Errorf("unexpected subject %q", subject)
	}
	if !strings.Contains(body, "https://rdv.example.com/view-prescription/abc") {
		t.Error("body should carry the verification link")
	}
	if strings.Contains(body, "{{") {
		t.Errorf("unrendered placeholder left in body: %q", body)
	}
}

func TestTemplateEngine_UnknownKeysLeftAsIs(t *testing.T) {
	eng := NewTemplateEngine()
	_, body, _ := eng.Render(TemplateAppointmentScheduled, map[string]string{"patient_name": "Rex"})
	if !strings.Contains(body, "{{date}}") {
		t.Error("expected missing keys to be left untouched")
	}
}

// ---------------------------------------------------------------------------
// Notifier Tests
// ---------------------------------------------------------------------------

func TestNotifier_SendFromTemplate(t *testing.T) {
	sender := &MockEmailSender{}
	n := NewNotifier(sender, nil)

	pdf := Attachment{Name: "receita.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}
	d, err := n.SendFromTemplate(context.Background(), TemplateDocumentIssued, map[string]string{
		"patient_name": "Rex",
	}, "maria@example.com", pdf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Status != "sent" || d.SentAt == nil {
		t.Errorf("expected sent delivery, got %+v", d)
	}

	calls := sender.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].To != "maria@example.com" || len(calls[0].Attachments) != 1 {
		t.Errorf("unexpected message %+v", calls[0])
	}
}

func TestNotifier_SendFailure(t *testing.T) {
	sender := &MockEmailSender{ShouldFail: true, FailError: "relay down"}
	n := NewNotifier(sender, NewTemplateEngine())

	d, err := n.SendFromTemplate(context.Background(), TemplateDocumentIssued, nil, "maria@example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	if d == nil || d.Status != "failed" || d.Error != "relay down" {
		t.Errorf("expected failed delivery, got %+v", d)
	}
}

func TestNotifier_RequiresRecipient(t *testing.T) {
	n := NewNotifier(&MockEmailSender{}, nil)
	if _, err := n.SendFromTemplate(context.Background(), TemplateDocumentIssued, nil, " "); err == nil {
		t.Error("expected error for blank recipient")
	}
}

// ---------------------------------------------------------------------------
// SMTP Tests
// ---------------------------------------------------------------------------

func TestNewSMTPSender_Validation(t *testing.T) {
	if _, err := NewSMTPSender(SMTPConfig{From: "a@b.c"}); err == nil {
		t.Error("expected error without host")
	}
	if _, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com"}); err == nil {
		t.Error("expected error without from")
	}
	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "rdv@example.com"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.cfg.Timeout != 15*time.Second {
		t.Errorf("expected default timeout, got %v", s.cfg.Timeout)
	}
}

func TestBuildMessage(t *testing.T) {
	m, err := buildMessage("rdv@example.com", Message{
		To:          "maria@example.com",
		Subject:     "Receituário de Rex",
		Body:        "corpo",
		Attachments: []Attachment{{Name: "receita.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.3")}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "maria@example.com" {
		t.Errorf("unexpected To header %v", got)
	}

	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	if !strings.Contains(buf.String(), `filename="receita.pdf"`) {
		t.Error("expected attachment in encoded message")
	}
}

func TestBuildMessage_RequiresSubject(t *testing.T) {
	if _, err := buildMessage("rdv@example.com", Message{To: "x@example.com"}); err == nil {
		t.Error("expected error without subject")
	}
}
