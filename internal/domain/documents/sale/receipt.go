package sale

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"salesledger/internal/core/id"
	"salesledger/internal/domain/catalogs/product"
	"salesledger/pkg/logger"
)

// ProductLookup resolves product names for printed documents.
type ProductLookup interface {
	Get(ctx context.Context, productID id.ID) (*product.Product, error)
}

// RenderReceipt renders the sale as an A4 PDF receipt.
func (s *Service) RenderReceipt(ctx context.Context, saleID id.ID) ([]byte, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}

	names := make(map[id.ID]string, len(sale.Lines))
	for _, l := range sale.Lines {
		if _, ok := names[l.ProductID]; ok {
			continue
		}
		names[l.ProductID] = l.ProductID.String()
		if s.catalog == nil {
			continue
		}
		if p, err := s.catalog.Get(ctx, l.ProductID); err == nil {
			names[l.ProductID] = p.Name
		} else {
			logger.Debug(ctx, "receipt product lookup failed", "product_id", l.ProductID, "error", err)
		}
	}

	return renderReceipt(sale, names)
}

func renderReceipt(sale *Sale, names map[id.ID]string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Sale "+sale.DocumentNumber(), true)
	pdf.AddPage()
	// core fonts are cp1252; free text is translated from UTF-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Sale receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 11)
	header := [][2]string{
		{"Document", tr(sale.DocumentNumber())},
		{"Date", sale.Date.Format("2006-01-02 15:04")},
		{"Status", string(sale.Status)},
		{"Payment", string(sale.PaymentMethod)},
		{"Customer", sale.CustomerID.String()},
		{"Vendor", sale.VendorID.String()},
		{"Zone", sale.ZoneID.String()},
	}
	for _, row := range header {
		pdf.CellFormat(35, 7, row[0]+":", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 7, row[1], "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// Lines table
	pdf.SetFont("Arial", "B", 10)
	cols := []struct {
		title string
		width float64
	}{
		{"#", 10}, {"Product", 60}, {"Qty", 15}, {"Price", 25}, {"Discount", 25}, {"Tax", 25}, {"Total", 30},
	}
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(c.width, 8, c.title, "1", ln, "C", false, 0, "")
	}

	pdf.SetFont("Arial", "", 10)
	for _, l := range sale.Lines {
		pdf.CellFormat(10, 8, fmt.Sprintf("%d", l.LineNo), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 8, tr(truncate(names[l.ProductID], 34)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 8, fmt.Sprintf("%d", l.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, l.UnitPrice.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, l.Discount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 8, l.TaxAmount.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 8, l.LineTotal.StringFixed(2), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 11)
	totals := [][2]string{
		{"Discount", sale.TotalDiscount.StringFixed(2)},
		{"Tax", sale.TotalTax.StringFixed(2)},
		{"Total " + sale.Currency, sale.TotalAmount.StringFixed(2)},
	}
	for _, row := range totals {
		pdf.CellFormat(160, 7, row[0], "", 0, "R", false, 0, "")
		pdf.CellFormat(30, 7, row[1], "", 1, "R", false, 0, "")
	}

	if sale.Notes != nil {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 10)
		pdf.MultiCell(0, 6, tr(*sale.Notes), "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "."
}
