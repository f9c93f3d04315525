package infra

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/bharathmeg/InsightHub/internal/model"

	"github.com/xuri/excelize/v2"
)

// TimestampLayout is how sale timestamps are rendered in exports.
const TimestampLayout = "2006-01-02 15:04:05"

// Export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
	FormatPDF  = "pdf"
)

// ErrUnsupportedFormat is returned for an export format other than csv, xlsx or pdf.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ExportHeader is the column order shared by every tabular export.
var ExportHeader = []string{"ID", "Company", "Product", "Revenue", "Quantity", "Timestamp"}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	default:
		return "text/csv"
	}
}

// ExportFileName is the attachment / download name for a company export.
func ExportFileName(company, format string) string {
	return fmt.Sprintf("sales_%s.%s", company, format)
}

// WriteSales renders sales in the requested format.
func WriteSales(w io.Writer, format, company string, sales []model.SaleRecord, currency string, generatedAt time.Time) error {
	switch format {
	case FormatCSV:
		return WriteSalesCSV(w, sales)
	case FormatXLSX:
		return WriteSalesXLSX(w, sales)
	case FormatPDF:
		return WriteSalesPDF(w, company, sales, currency, generatedAt)
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
}

// WriteSalesCSV writes the header followed by one line per sale.
// An empty slice yields a header-only document.
func WriteSalesCSV(w io.Writer, sales []model.SaleRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return err
	}
	for i := range sales {
		s := &sales[i]
		if err := cw.Write([]string{
			strconv.FormatUint(uint64(s.ID), 10),
			s.Company,
			s.Product,
			s.Revenue.StringFixed(2),
			strconv.Itoa(s.Quantity),
			s.CreatedAt.Format(TimestampLayout),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

const xlsxSheet = "Sales"

// WriteSalesXLSX writes the same table as WriteSalesCSV as a spreadsheet.
func WriteSalesXLSX(w io.Writer, sales []model.SaleRecord) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return err
	}
	header := make([]interface{}, len(ExportHeader))
	for i, h := range ExportHeader {
		header[i] = h
	}
	if err := f.SetSheetRow(xlsxSheet, "A1", &header); err != nil {
		return err
	}

	for i := range sales {
		s := &sales[i]
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			s.ID,
			s.Company,
			s.Product,
			s.Revenue.InexactFloat64(),
			s.Quantity,
			s.CreatedAt.Format(TimestampLayout),
		}
		if err := f.SetSheetRow(xlsxSheet, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+2, err)
		}
	}

	_, err := f.WriteTo(w)
	return err
}
