package infra

// Receipt-style PDF for a Venta.
// Rendered on demand into memory; nothing is written to disk.

import (
	"bytes"
	"fmt"
	"time"

	"restopos/internal/model"

	"github.com/go-pdf/fpdf"
)

// EmisorPDF is the issuer block printed at the top of every document.
type EmisorPDF struct {
	RUC         string
	RazonSocial string
	Direccion   string
}

var titulosDocumento = map[string]string{
	model.DocNotaVenta: "NOTA DE VENTA",
	model.DocBoleta:    "BOLETA DE VENTA ELECTRONICA",
	model.DocFactura:   "FACTURA ELECTRONICA",
}

// GenerarPDFVenta renders v as an 80mm thermal receipt.
func GenerarPDFVenta(v *model.Venta, emisor EmisorPDF, zona *time.Location) ([]byte, error) {
	if zona == nil {
		zona = time.UTC
	}
	alto := 120.0 + float64(len(v.Items))*5
	pdf := fpdf.NewCustom(&fpdf.InitType{
		OrientationStr: "P",
		UnitStr:        "mm",
		Size:           fpdf.SizeType{Wd: 80, Ht: alto},
	})
	pdf.SetMargins(4, 4, 4)
	pdf.SetAutoPageBreak(false, 4)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 8

	// ── Emisor ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, tr(emisor.RazonSocial), "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	if emisor.RUC != "" {
		pdf.CellFormat(contentW, 4, "RUC "+emisor.RUC, "", 1, "C", false, 0, "")
	}
	if emisor.Direccion != "" {
		pdf.MultiCell(contentW, 3.5, tr(emisor.Direccion), "", "C", false)
	}
	pdf.Ln(2)

	// ── Documento ─────────────────────────────────────────────────────────────
	titulo, ok := titulosDocumento[v.TipoDocumento]
	if !ok {
		titulo = v.TipoDocumento
	}
	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(contentW, 5, titulo, "", 1, "C", false, 0, "")
	pdf.CellFormat(contentW, 5, v.NumeroCompleto, "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 7)
	pdf.CellFormat(contentW, 4, v.CreatedAt.In(zona).Format("02/01/2006  15:04"), "", 1, "C", false, 0, "")

	if v.ClienteNombre != nil {
		pdf.Ln(1)
		doc := ""
		if v.ClienteTipoDocumento != nil && v.ClienteNumeroDocumento != nil {
			doc = *v.ClienteTipoDocumento + " " + *v.ClienteNumeroDocumento
		}
		pdf.CellFormat(contentW, 4, tr("Cliente: "+*v.ClienteNombre), "", 1, "L", false, 0, "")
		if doc != "" {
			pdf.CellFormat(contentW, 4, doc, "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Items ─────────────────────────────────────────────────────────────────
	col1 := contentW * 0.12 // qty
	col2 := contentW * 0.58 // description
	col3 := contentW * 0.30 // total

	pdf.SetFont("Helvetica", "B", 7)
	pdf.CellFormat(col1, 5, "Cant", "B", 0, "C", false, 0, "")
	pdf.CellFormat(col2, 5, "Descripcion", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 5, "Importe", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 7)
	for _, it := range v.Items {
		desc := []rune(it.Descripcion)
		if len(desc) > 30 {
			desc = append(desc[:29], '.')
		}
		pdf.CellFormat(col1, 5, fmt.Sprintf("%d", it.Cantidad), "", 0, "C", false, 0, "")
		pdf.CellFormat(col2, 5, tr(string(desc)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 5, it.Total.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(4, pdf.GetY(), pageW-4, pdf.GetY())
	pdf.Ln(2)

	// ── Totales ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "", 7)
	if v.TipoDocumento != model.DocNotaVenta {
		pdf.CellFormat(col1+col2, 4, "Op. gravada:", "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, v.BaseImponible.StringFixed(2), "", 1, "R", false, 0, "")
		pdf.CellFormat(col1+col2, 4, fmt.Sprintf("IGV (%s%%):", v.TasaImpuesto.Shift(2).StringFixed(0)), "", 0, "L", false, 0, "")
		pdf.CellFormat(col3, 4, v.MontoImpuesto.StringFixed(2), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(col1+col2, 6, "TOTAL:", "", 0, "L", false, 0, "")
	pdf.CellFormat(col3, 6, "S/ "+v.Total.StringFixed(2), "", 1, "R", false, 0, "")

	// ── Footer ────────────────────────────────────────────────────────────────
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "I", 7)
	switch v.EstadoAutoridad {
	case model.AutoridadAnulado:
		pdf.CellFormat(contentW, 4, "DOCUMENTO ANULADO", "", 1, "C", false, 0, "")
	case model.AutoridadNoAplica:
		pdf.CellFormat(contentW, 4, "Documento sin valor tributario", "", 1, "C", false, 0, "")
	}
	pdf.CellFormat(contentW, 4, "Gracias por su visita", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: render: %w", err)
	}
	return buf.Bytes(), nil
}
