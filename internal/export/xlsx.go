// Package export writes the quote ledger to an XLSX workbook.
package export

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
)

func QuotesToXLSX(rows []internal.QuoteExportRow, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"quote_number", "business", "customer_email", "product",
		"length_in", "width_in", "area_sq_in", "unit_price", "total_price",
		"status", "created_at",
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		r := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, r)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, row.QuoteNumber)
		set(2, row.BusinessName)
		set(3, row.CustomerMail)
		set(4, row.ProductName)
		set(5, row.LengthInches)
		set(6, row.WidthInches)
		set(7, row.AreaSqInches)
		set(8, row.UnitPrice)
		set(9, row.TotalPrice)
		set(10, row.Status)
		set(11, row.CreatedAt)
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
