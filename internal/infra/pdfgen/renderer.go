// Package pdfgen renders invoice documents as PDFs.
package pdfgen

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/alhassan/smart-sales-agent-go/internal/domain"
)

// Renderer produces the invoice PDF from a frozen snapshot. Pure: the
// same invoice always renders to an equivalent document, and nothing is
// mutated.
type Renderer struct {
	shopName string
}

func NewRenderer(shopName string) *Renderer {
	if shopName == "" {
		shopName = "Smart Sales Agent"
	}
	return &Renderer{shopName: shopName}
}

func (r *Renderer) Render(inv *domain.Invoice) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.Cell(0, 12, r.shopName)
	pdf.Ln(16)

	pdf.SetFont("Helvetica", "B", 14)
	pdf.Cell(0, 10, fmt.Sprintf("Invoice #%d", inv.ID))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 8, fmt.Sprintf("Customer: %s", inv.CustomerName))
	pdf.Ln(8)
	if inv.CustomerPhone != "" {
		pdf.Cell(0, 8, fmt.Sprintf("Phone: %s", inv.CustomerPhone))
		pdf.Ln(8)
	}
	pdf.Cell(0, 8, fmt.Sprintf("Date: %s", inv.IssuedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(12)

	// Line items table (always a single line for this shop).
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(110, 9, "Item", "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 9, "Price", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 9, "Currency", "1", 1, "C", false, 0, "")

	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(110, 9, inv.Product.Name, "1", 0, "L", false, 0, "")
	pdf.CellFormat(40, 9, fmt.Sprintf("%.2f", inv.Product.Price), "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 9, inv.Product.Currency, "1", 1, "C", false, 0, "")

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 12)
	pdf.CellFormat(150, 10, "Total", "1", 0, "R", false, 0, "")
	pdf.CellFormat(30, 10, fmt.Sprintf("%.2f %s", inv.Product.Price, inv.Product.Currency), "1", 1, "C", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 9)
	pdf.Cell(0, 6, "Thank you for your business!")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %d: %w", inv.ID, err)
	}
	return buf.Bytes(), nil
}
