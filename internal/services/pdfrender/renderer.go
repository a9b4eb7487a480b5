package pdfrender

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/cotalabs/cotiza/internal/models"
)

// Renderer produces the printable quotation document.
type Renderer struct{}

func NewRenderer() *Renderer {
	return &Renderer{}
}

// Render builds a single-page-per-overflow PDF with the quotation header, one
// row per item and the computed total.
func (r *Renderer) Render(quotation *models.Quotation, items []*models.QuotationItem) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Cotacao %s", quotation.Name), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, fmt.Sprintf("Cotacao: %s", quotation.Name))
	pdf.Ln(8)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 8, fmt.Sprintf("Status: %s    Criada em: %s", quotation.Status, quotation.CreatedAt.Format("02/01/2006")))
	pdf.Ln(12)

	header := []struct {
		label string
		width float64
	}{
		{"Item", 80},
		{"Fornecedor", 40},
		{"Qtd", 15},
		{"Preco", 25},
		{"Subtotal", 30},
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range header {
		pdf.CellFormat(col.width, 8, col.label, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	for _, item := range items {
		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}
		subtotal := item.Price * float64(quantity)

		name := item.Name
		if !item.Status {
			name += " (pendente)"
		}
		pdf.CellFormat(80, 7, truncate(name, 48), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, truncate(item.Provider, 24), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 7, fmt.Sprintf("%d", quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 7, fmt.Sprintf("%.2f", item.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, fmt.Sprintf("%.2f", subtotal), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(160, 9, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 9, fmt.Sprintf("%.2f", quotation.Total), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
