// Package pdf renders the one-page receipt offered on the confirmation page.
// It summarises what the client submitted and where the documentation was
// sent; nothing is stored on the server.
package pdf

import (
	"bytes"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/csg33k/alta-clientes/internal/domain"
)

// ReceiptInput is everything the receipt shows.
type ReceiptInput struct {
	Record     domain.Record
	Plants     []domain.PlantEntry
	Recipients []string
	Messages   int // number of emails the documentation was split into
	Queued     bool
	Date       time.Time
}

// Receipt renders the receipt as PDF bytes.
func Receipt(in ReceiptInput) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(18, 18, 18)
	pdf.SetAutoPageBreak(true, 18)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pageW, pageH := pdf.GetPageSize()
	marginL, marginT, marginR, marginB := pdf.GetMargins()
	contentW := pageW - marginL - marginR
	colHalf := contentW / 2
	r := in.Record

	// ── Header bar ───────────────────────────────────────────────────────────
	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, contentW, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(contentW-4, 7, tr("ALTA DE CLIENTE  ·  JUSTIFICANTE"), "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	y := marginT + 13

	// ── Client section ───────────────────────────────────────────────────────
	y = sectionHeader(pdf, tr("DATOS DEL CLIENTE"), marginL, y, contentW)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetXY(marginL, y)
	pdf.CellFormat(colHalf, 6.5, tr(r.ClientName()), "L", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(colHalf, 6.5, tr("NIF: "+r.Get("nif")), "R", 1, "R", false, 0, "")
	y += 6.5

	lines := []string{
		joinNonEmpty(", ", r.Get("direccion"), joinNonEmpty(" ", r.Get("cp"), r.Get("poblacion")), r.Get("provincia")),
		joinNonEmpty("  ·  ", r.Get("telefono_general"), r.Get("email_general"), r.Get("web")),
		labelled("Forma de pago: ", r.Get("forma_pago")),
	}
	for _, l := range lines {
		if l == "" {
			continue
		}
		pdf.SetXY(marginL, y)
		pdf.CellFormat(contentW, 5.5, tr(l), "LR", 1, "L", false, 0, "")
		y += 5.5
	}
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW, 0, "", "LRB", 1, "L", false, 0, "")
	y += 5

	// ── Plants table ─────────────────────────────────────────────────────────
	y = sectionHeader(pdf, tr("PLANTAS ("+strconv.Itoa(len(in.Plants))+")"), marginL, y, contentW)
	widths := []float64{10, contentW * 0.30, contentW * 0.22, contentW * 0.18}
	widths = append(widths, contentW-widths[0]-widths[1]-widths[2]-widths[3])
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetXY(marginL, y)
	for i, h := range []string{"#", "Nombre", tr("Población"), "Provincia", "Contacto"} {
		ln := 0
		if i == len(widths)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, h, "1", ln, "L", true, 0, "")
	}
	y += 7
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 8.5)
	for i, p := range in.Plants {
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		cells := []string{
			strconv.Itoa(p.Slot),
			p.Name(),
			p.Values[3],
			p.Values[4],
			joinNonEmpty(" · ", p.Values[9], p.Values[10]),
		}
		pdf.SetXY(marginL, y)
		for j, c := range cells {
			ln := 0
			if j == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(widths[j], 6.5, tr(c), "1", ln, "L", true, 0, "")
		}
		y += 6.5
	}
	y += 5

	// ── Delivery ─────────────────────────────────────────────────────────────
	y = sectionHeader(pdf, tr("ENVÍO DE LA DOCUMENTACIÓN"), marginL, y, contentW)
	status := "Enviada"
	if in.Queued {
		status = "En cola de envío"
	}
	detail := []string{
		"Estado: " + status,
		"Destinatarios: " + strings.Join(in.Recipients, ", "),
		"Correos: " + strconv.Itoa(in.Messages),
	}
	pdf.SetFont("Helvetica", "", 9)
	for _, d := range detail {
		pdf.SetXY(marginL, y)
		pdf.MultiCell(contentW, 5.5, tr(d), "LR", "L", false)
		y = pdf.GetY()
	}
	pdf.SetXY(marginL, y)
	pdf.CellFormat(contentW, 0, "", "LRB", 1, "L", false, 0, "")

	// ── Footer ───────────────────────────────────────────────────────────────
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}
	pdf.SetXY(marginL, pageH-marginB-6)
	pdf.SetFont("Helvetica", "I", 7.5)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(colHalf, 5, tr("Departamento de Tesorería"), "", 0, "L", false, 0, "")
	pdf.CellFormat(colHalf, 5, date.Format("02/01/2006 15:04"), "", 0, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// sectionHeader draws a grey title strip and returns the y below it.
func sectionHeader(pdf *fpdf.Fpdf, title string, x, y, w float64) float64 {
	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 8)
	pdf.SetXY(x, y)
	pdf.CellFormat(w, 5.5, title, "LRT", 1, "L", true, 0, "")
	return y + 5.5
}

func joinNonEmpty(sep string, parts ...string) string {
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}

func labelled(label, v string) string {
	if v == "" {
		return ""
	}
	return label + v
}
