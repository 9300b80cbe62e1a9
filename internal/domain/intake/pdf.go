package intake

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/skip2/go-qrcode"

	"github.com/clinic/clinic/internal/domain/clients"
)

// Document is everything printed on an intake PDF.
type Document struct {
	ClinicName  string
	Client      *clients.Client
	Record      *Record
	GeneratedAt time.Time
	// Link is encoded as a QR code in the footer when set.
	Link string
}

var kindTitles = map[Kind]string{
	KindFacial: "Facial assessment",
	KindBody:   "Body assessment",
}

type pdfWriter struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func (w *pdfWriter) heading(text string) {
	w.pdf.Ln(3)
	w.pdf.SetFont("Helvetica", "B", 12)
	w.pdf.SetFillColor(240, 232, 220)
	w.pdf.CellFormat(0, 7, w.tr(text), "", 1, "L", true, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.Ln(1)
}

func (w *pdfWriter) field(label, value string) {
	if value == "" {
		value = "-"
	}
	w.pdf.SetFont("Helvetica", "B", 10)
	w.pdf.CellFormat(50, 6, w.tr(label), "", 0, "L", false, 0, "")
	w.pdf.SetFont("Helvetica", "", 10)
	w.pdf.MultiCell(0, 6, w.tr(value), "", "L", false)
}

// BuildPDF renders doc as an A4 PDF.
func BuildPDF(doc Document) ([]byte, error) {
	if doc.Record == nil || doc.Client == nil {
		return nil, fmt.Errorf("%w: pdf needs a client and a record", ErrInvalid)
	}
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.SetCreationDate(doc.GeneratedAt)
	pdf.SetTitle(kindTitles[doc.Record.Kind]+" - "+doc.Client.Name, true)
	w := &pdfWriter{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.AddPage()

	clinic := doc.ClinicName
	if clinic == "" {
		clinic = "Clinic"
	}
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 9, w.tr(clinic), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 7, w.tr(kindTitles[doc.Record.Kind]), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "I", 8)
	pdf.CellFormat(0, 5, "Generated "+doc.GeneratedAt.Format("02/01/2006 15:04"), "", 1, "C", false, 0, "")

	w.heading("Client")
	w.field("Name", doc.Client.Name)
	w.field("Phone", doc.Client.Phone)
	w.field("CPF", doc.Client.CPF)
	w.field("Birth date", displayDate(doc.Client.BirthDate))
	w.field("Occupation", doc.Client.Occupation)
	w.field("Address", doc.Client.Address)

	w.heading("Questionnaire")
	writeAnswers(w, doc.Record)

	switch doc.Record.Kind {
	case KindFacial:
		w.heading("Skin assessment")
		writeSkinAssessment(w, doc.Record.SkinAssessment)
	case KindBody:
		w.heading("Measurements")
		writeMeasurements(w, doc.Record.Measurements)
	}

	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.MultiCell(0, 5, w.tr(Declaration), "", "L", false)

	w.heading("Evolution notes")
	if len(doc.Record.Notes) == 0 {
		pdf.CellFormat(0, 6, "No notes yet.", "", 1, "L", false, 0, "")
	}
	for _, n := range doc.Record.Notes {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.CellFormat(0, 5, n.Date+" "+n.Time, "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(0, 5, w.tr(n.Text), "", "L", false)
		pdf.Ln(1)
	}

	if doc.Link != "" {
		if err := writeQRCode(w, doc.Link); err != nil {
			return nil, err
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func displayDate(s string) string {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		return s
	}
	return d.Format("02/01/2006")
}

func answerLabel(a Answer) string {
	v := "-"
	switch a.Value {
	case AnswerYes:
		v = "Yes"
	case AnswerNo:
		v = "No"
	}
	if a.Details != "" {
		v += " (" + a.Details + ")"
	}
	return v
}

func writeAnswers(w *pdfWriter, rec *Record) {
	known := make(map[string]bool)
	for _, q := range Questions(rec.Kind) {
		known[q.Key] = true
		w.field(q.Label, answerLabel(rec.Answers[q.Key]))
	}
	var extra []string
	for key := range rec.Answers {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		w.field(key, answerLabel(rec.Answers[key]))
	}
}

func assessmentValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []interface{}:
		parts := make([]string, 0, len(t))
		for _, p := range t {
			parts = append(parts, fmt.Sprint(p))
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

func writeSkinAssessment(w *pdfWriter, skin map[string]interface{}) {
	known := make(map[string]bool)
	for _, f := range SkinAssessmentFields {
		known[f.Key] = true
		w.field(f.Label, assessmentValue(skin[f.Key]))
	}
	var extra []string
	for key := range skin {
		if !known[key] {
			extra = append(extra, key)
		}
	}
	sort.Strings(extra)
	for _, key := range extra {
		w.field(key, assessmentValue(skin[key]))
	}
}

func writeMeasurements(w *pdfWriter, m *Measurements) {
	if m == nil {
		m = &Measurements{}
	}
	w.field("Height (cm)", m.Height)
	w.field("Start weight (kg)", m.StartWeight)
	w.field("End weight (kg)", m.EndWeight)
	res := Evaluate(m)
	if res.BMI != nil {
		w.field("BMI", fmt.Sprintf("%.2f (%s)", *res.BMI, res.Band))
	} else {
		w.field("BMI", res.Message)
	}

	pdf := w.pdf
	pdf.Ln(2)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(70, 6, "Body part", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 6, "Start (cm)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "End (cm)", "1", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	row := func(part string) {
		pm := m.Parts[part]
		pdf.CellFormat(70, 6, w.tr(part), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, w.tr(pm.Start), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, w.tr(pm.End), "1", 1, "C", false, 0, "")
	}
	standard := make(map[string]bool, len(BodyParts))
	for _, part := range BodyParts {
		standard[part] = true
		row(part)
	}
	var extra []string
	for part := range m.Parts {
		if !standard[part] {
			extra = append(extra, part)
		}
	}
	sort.Strings(extra)
	for _, part := range extra {
		row(part)
	}
	pdf.Ln(2)
	w.field("Observations", m.Observations)
	w.field("Measurement notes", m.MeasurementNotes)
}

func writeQRCode(w *pdfWriter, link string) error {
	png, err := qrcode.Encode(link, qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("encode qr code: %w", err)
	}
	opts := fpdf.ImageOptions{ImageType: "PNG"}
	w.pdf.RegisterImageOptionsReader("profile-qr", opts, bytes.NewReader(png))
	w.pdf.Ln(4)
	_, pageH := w.pdf.GetPageSize()
	_, _, _, bottom := w.pdf.GetMargins()
	if w.pdf.GetY()+30 > pageH-bottom {
		w.pdf.AddPage()
	}
	y := w.pdf.GetY()
	w.pdf.ImageOptions("profile-qr", 15, y, 28, 28, false, opts, 0, link)
	w.pdf.SetXY(47, y+10)
	w.pdf.SetFont("Helvetica", "", 8)
	w.pdf.CellFormat(0, 5, w.tr(link), "", 1, "L", false, 0, link)
	w.pdf.SetY(y + 30)
	return nil
}
