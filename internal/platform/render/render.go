// Package render turns an issued document into a printable PDF with a QR
// code pointing at its public verification page. Rendering is a pure
// function of its inputs.
package render

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"
)

const (
	TypePrescription = "prescription"
	TypeAttestation  = "attestation"
)

type Practitioner struct {
	Name         string
	ClinicName   string
	Registration string // CRMV-UF number
	Secondary    string
	Phone        string
	Address      string
}

type Patient struct {
	Name     string
	Species  string
	Breed    string
	Age      string
	WeightKg *float64
}

type Tutor struct {
	Name string
	CPF  string
}

type Item struct {
	Name      string
	Dosage    string
	Frequency string
	Duration  string
}

// Document is everything printed on the page.
type Document struct {
	Type            string
	PublicCode      string
	IssuedAt        time.Time
	Location        *time.Location
	Practitioner    Practitioner
	Patient         Patient
	Tutor           Tutor
	Items           []Item
	AttestationText string
	Purpose         string
	VerifyURL       string
}

// Title is the heading printed above the document body.
func Title(docType string) string {
	if docType == TypeAttestation {
		return "Atestado Médico Veterinário"
	}
	return "Receituário"
}

// ShortCode is the first eight characters of the public code, uppercased.
func ShortCode(publicCode string) string {
	c := strings.ReplaceAll(publicCode, "-", "")
	if len(c) > 8 {
		c = c[:8]
	}
	return strings.ToUpper(c)
}

// QRCode encodes url as a PNG of size pixels.
func QRCode(url string, size int) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("qr: empty url")
	}
	png, err := qrcode.Encode(url, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("qr: %w", err)
	}
	return png, nil
}

const (
	margin    = 15.0
	pageWidth = 210.0
	textWidth = pageWidth - 2*margin
)

// PDF renders doc on a single A4 page.
func PDF(doc Document) ([]byte, error) {
	if doc.PublicCode == "" {
		return nil, fmt.Errorf("render: public code is required")
	}
	loc := doc.Location
	if loc == nil {
		loc = time.UTC
	}

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(margin, margin, margin)
	pdf.SetAutoPageBreak(true, 45)
	pdf.SetTitle(Title(doc.Type)+" "+ShortCode(doc.PublicCode), true)
	pdf.SetCreator("rdv", true)
	pdf.SetCreationDate(doc.IssuedAt)
	pdf.SetModificationDate(doc.IssuedAt)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	p := doc.Practitioner

	// Header
	top := pdf.GetY()
	pdf.SetFont("Helvetica", "B", 15)
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(textWidth*0.7, 7, tr(strings.ToUpper("Dr(a). "+p.Name)), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(102, 102, 102)
	if p.ClinicName != "" {
		pdf.CellFormat(textWidth*0.7, 5, tr(strings.ToUpper(p.ClinicName)), "", 1, "L", false, 0, "")
	}
	pdf.SetTextColor(85, 85, 85)
	pdf.CellFormat(textWidth*0.7, 5, tr(joinNonEmpty(" • ", p.Registration, p.Secondary, p.Phone)), "", 1, "L", false, 0, "")
	if p.Address != "" {
		pdf.CellFormat(textWidth*0.7, 5, tr(p.Address), "", 1, "L", false, 0, "")
	}
	bottom := pdf.GetY()

	pdf.SetXY(margin+textWidth*0.7, top)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(136, 136, 136)
	pdf.CellFormat(textWidth*0.3, 5, tr("EMISSÃO"), "", 2, "R", false, 0, "")
	pdf.CellFormat(textWidth*0.3, 5, doc.IssuedAt.In(loc).Format("02/01/2006"), "", 2, "R", false, 0, "")
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(textWidth*0.3, 5, ShortCode(doc.PublicCode), "", 2, "R", false, 0, "")
	if pdf.GetY() > bottom {
		bottom = pdf.GetY()
	}

	pdf.SetY(bottom + 2)
	pdf.SetLineWidth(0.6)
	pdf.SetDrawColor(17, 17, 17)
	pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
	pdf.Ln(5)

	// Patient and tutor
	boxTop := pdf.GetY()
	pdf.SetFillColor(249, 249, 249)
	pdf.Rect(margin, boxTop, textWidth, 24, "F")
	half := textWidth / 2

	pdf.SetXY(margin+3, boxTop+2)
	sectionTitle(pdf, tr("PACIENTE"), half-3)
	pdf.SetX(margin + 3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(half-3, 6, tr(doc.Patient.Name), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(68, 68, 68)
	pdf.CellFormat(half-3, 5, tr(patientLine(doc.Patient)), "", 0, "L", false, 0, "")

	pdf.SetXY(margin+half, boxTop+2)
	sectionTitle(pdf, tr("RESPONSÁVEL"), half-3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(51, 51, 51)
	pdf.CellFormat(half-3, 6, tr(doc.Tutor.Name), "", 2, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(68, 68, 68)
	cpf := doc.Tutor.CPF
	if cpf == "" {
		cpf = "Não informado"
	}
	pdf.CellFormat(half-3, 5, tr("CPF: "+cpf), "", 0, "L", false, 0, "")

	pdf.SetXY(margin, boxTop+30)

	// Title
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(textWidth, 10, tr(strings.ToUpper(Title(doc.Type))), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	// Body
	if doc.Type == TypeAttestation {
		pdf.SetFont("Helvetica", "", 11)
		pdf.SetTextColor(51, 51, 51)
		pdf.MultiCell(textWidth, 6.5, tr(doc.AttestationText), "", "J", false)
	} else {
		for i, it := range doc.Items {
			pdf.SetDrawColor(204, 204, 204)
			pdf.SetLineWidth(0.8)
			y := pdf.GetY()
			pdf.SetX(margin + 4)
			pdf.SetFont("Helvetica", "B", 11)
			pdf.SetTextColor(17, 17, 17)
			pdf.MultiCell(textWidth-4, 6, tr(strconv.Itoa(i+1)+". "+it.Name), "", "L", false)
			pdf.SetX(margin + 4)
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(51, 51, 51)
			pdf.MultiCell(textWidth-4, 5, tr("Uso: "+it.Dosage), "", "L", false)
			pdf.SetX(margin + 4)
			pdf.SetFont("Helvetica", "I", 10)
			pdf.SetTextColor(68, 68, 68)
			pdf.MultiCell(textWidth-4, 5, tr(instructions(it)), "", "L", false)
			pdf.Line(margin+1, y, margin+1, pdf.GetY())
			pdf.Ln(4)
		}
	}

	if doc.Purpose != "" {
		pdf.Ln(4)
		pdf.SetDrawColor(238, 238, 238)
		pdf.SetLineWidth(0.2)
		pdf.Line(margin, pdf.GetY(), pageWidth-margin, pdf.GetY())
		pdf.Ln(2)
		pdf.SetFont("Helvetica", "", 9)
		pdf.SetTextColor(102, 102, 102)
		pdf.MultiCell(textWidth, 5, tr("Indicação/Diagnóstico: "+doc.Purpose), "", "L", false)
	}

	if err := footer(pdf, tr, doc); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

func footer(pdf *fpdf.Fpdf, tr func(string) string, doc Document) error {
	const footerTop = 297 - 45.0
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetDrawColor(204, 204, 204)
	pdf.SetLineWidth(0.2)
	pdf.Line(margin, footerTop, pageWidth-margin, footerTop)

	// Signature
	sigX := margin + 25
	sigW := textWidth - 70
	pdf.SetDrawColor(51, 51, 51)
	pdf.Line(sigX+15, footerTop+18, sigX+sigW-15, footerTop+18)
	pdf.SetXY(sigX, footerTop+19)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(17, 17, 17)
	pdf.CellFormat(sigW, 5, tr("Dr(a). "+doc.Practitioner.Name), "", 2, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(85, 85, 85)
	pdf.CellFormat(sigW, 5, tr(doc.Practitioner.Registration), "", 0, "C", false, 0, "")

	// QR and verification text
	qrSize := 24.0
	qrX := pageWidth - margin - qrSize
	if doc.VerifyURL != "" {
		png, err := QRCode(doc.VerifyURL, 256)
		if err != nil {
			return err
		}
		name := "qr-" + doc.PublicCode
		opts := fpdf.ImageOptions{ImageType: "PNG"}
		pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(png))
		pdf.ImageOptions(name, qrX, footerTop+3, qrSize, qrSize, false, opts, 0, "")
	}
	pdf.SetXY(pageWidth-margin-50, footerTop+28)
	pdf.SetFont("Helvetica", "", 7)
	pdf.SetTextColor(153, 153, 153)
	pdf.MultiCell(50, 3.5, tr("Verifique a autenticidade deste documento via QR Code."), "", "R", false)
	pdf.SetX(pageWidth - margin - 50)
	pdf.CellFormat(50, 3.5, "RDV", "", 0, "R", false, 0, "")

	return pdf.Error()
}

func sectionTitle(pdf *fpdf.Fpdf, s string, w float64) {
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetTextColor(136, 136, 136)
	pdf.CellFormat(w, 5, s, "", 2, "L", false, 0, "")
}

func patientLine(p Patient) string {
	var weight string
	if p.WeightKg != nil {
		weight = strconv.FormatFloat(*p.WeightKg, 'f', -1, 64) + "kg"
	}
	return joinNonEmpty(" • ", p.Species, p.Breed, p.Age, weight)
}

func instructions(it Item) string {
	if it.Duration == "" {
		return it.Frequency
	}
	return it.Frequency + " • Duração: " + it.Duration
}

func joinNonEmpty(sep string, parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, sep)
}
