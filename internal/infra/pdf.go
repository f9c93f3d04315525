package infra

// pdf.go renders a company sales report with go-pdf/fpdf:
//   - company header and generation time
//   - one table row per sale
//   - revenue totals per product and overall, formatted with go-money

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"github.com/bharathmeg/InsightHub/internal/model"

	"github.com/Rhymond/go-money"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// FormatMoney renders amount in the given ISO currency, e.g. "$19.98".
// Unknown currency codes fall back to USD.
func FormatMoney(amount decimal.Decimal, currency string) string {
	c := money.GetCurrency(currency)
	if c == nil {
		c = money.GetCurrency(money.USD)
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

// WriteSalesPDF writes an A4 sales report for one company.
func WriteSalesPDF(w io.Writer, company string, sales []model.SaleRecord, currency string, generatedAt time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 24

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, tr("InsightHub sales report"), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW, 6, tr(company), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 6, "Generated "+generatedAt.Format(TimestampLayout), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// ── Table ────────────────────────────────────────────────────────────────
	widths := []float64{16, 70, 32, 24, 44}
	cols := []string{"ID", "Product", "Revenue", "Quantity", "Timestamp"}
	pdf.SetFont("Helvetica", "B", 9)
	for i, col := range cols {
		pdf.CellFormat(widths[i], 7, col, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 9)
	total := decimal.Zero
	byProduct := make(map[string]decimal.Decimal)
	for i := range sales {
		s := &sales[i]
		pdf.CellFormat(widths[0], 6, strconv.FormatUint(uint64(s.ID), 10), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[1], 6, tr(s.Product), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, FormatMoney(s.Revenue, currency), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, strconv.Itoa(s.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, s.CreatedAt.Format(TimestampLayout), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)

		total = total.Add(s.Revenue)
		byProduct[s.Product] = byProduct[s.Product].Add(s.Revenue)
	}
	if len(sales) == 0 {
		pdf.CellFormat(contentW, 6, "No sales recorded.", "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	// ── Totals ───────────────────────────────────────────────────────────────
	products := make([]string, 0, len(byProduct))
	for p := range byProduct {
		products = append(products, p)
	}
	sort.Strings(products)

	pdf.SetFont("Helvetica", "", 9)
	for _, p := range products {
		pdf.CellFormat(contentW-40, 5, tr(p), "", 0, "R", false, 0, "")
		pdf.CellFormat(40, 5, FormatMoney(byProduct[p], currency), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW-40, 7, "TOTAL", "T", 0, "R", false, 0, "")
	pdf.CellFormat(40, 7, FormatMoney(total, currency), "T", 1, "R", false, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: render: %w", err)
	}
	return pdf.Output(w)
}
