// Package docs parses uploaded pricing documents (CSV, XLSX, PDF) into
// product rows and validates every formula before a row can go live.
package docs

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	pdf "github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"

	"quotedesk/internal"
)

// ParseFile dispatches on the file extension.
func ParseFile(path string) ([]internal.ParsedPriceRow, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return ParseCSV(bytes.NewReader(content))
	case ".xlsx", ".xls":
		return ParseXLSX(content)
	case ".pdf":
		return ParsePDF(content)
	default:
		return nil, fmt.Errorf("unsupported pricing document type: %s", filepath.Ext(path))
	}
}

func ParseCSV(r io.Reader) ([]internal.ParsedPriceRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	out := []internal.ParsedPriceRow{}
	cols := headerlessColumns()
	lineNo := 0
	for i, record := range records {
		cells := normalizeCells(record)
		if len(cells) == 0 {
			continue
		}
		if i == 0 {
			if inferred, ok := inferColumns(cells); ok {
				cols = inferred
				continue
			}
		}
		row, ok := cols.toRow(cells)
		if !ok {
			continue
		}
		lineNo++
		row.LineNo = lineNo
		out = append(out, row)
	}
	return out, nil
}

func ParseXLSX(content []byte) ([]internal.ParsedPriceRow, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.ParsedPriceRow{}
	lineNo := 0
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		cols := headerlessColumns()
		haveHeader := false
		for i, record := range rows {
			cells := normalizeCells(record)
			if len(cells) == 0 {
				continue
			}
			if i < 3 && !haveHeader {
				if inferred, ok := inferColumns(cells); ok {
					cols = inferred
					haveHeader = true
					continue
				}
			}
			row, ok := cols.toRow(cells)
			if !ok {
				continue
			}
			lineNo++
			row.LineNo = lineNo
			out = append(out, row)
		}
	}
	return out, nil
}

// ParsePDF reads price lines from plain PDF text. Cells within a line are
// separated by pipes, tabs or runs of spaces: name first, then a rate
// and/or a formula in any order.
func ParsePDF(content []byte) ([]internal.ParsedPriceRow, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, err
	}

	out := []internal.ParsedPriceRow{}
	lineNo := 0
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		for _, line := range splitLines(text) {
			row, ok := lineToRow(line)
			if !ok {
				continue
			}
			lineNo++
			row.LineNo = lineNo
			out = append(out, row)
		}
	}
	return out, nil
}

type columns struct {
	name    int
	formula int
	rate    int
	minSize int
	maxSize int
}

// headerlessColumns is the layout assumed when no header row is found:
// name first, rate second, nothing else.
func headerlessColumns() columns {
	return columns{name: 0, rate: 1, formula: -1, minSize: -1, maxSize: -1}
}

var headerNames = map[string]string{
	"name": "name", "product": "name", "product name": "name",
	"formula": "formula", "pricing formula": "formula",
	"rate": "rate", "rate per sq in": "rate", "price per sq in": "rate",
	"min size": "min", "min size sq in": "min", "min area": "min",
	"max size": "max", "max size sq in": "max", "max area": "max",
}

func inferColumns(cells []string) (columns, bool) {
	cols := columns{name: -1, formula: -1, rate: -1, minSize: -1, maxSize: -1}
	matched := false
	for i, cell := range cells {
		switch headerNames[strings.ToLower(cell)] {
		case "name":
			cols.name = i
			matched = true
		case "formula":
			cols.formula = i
			matched = true
		case "rate":
			cols.rate = i
			matched = true
		case "min":
			cols.minSize = i
			matched = true
		case "max":
			cols.maxSize = i
			matched = true
		}
	}
	return cols, matched && cols.name >= 0
}

func (c columns) toRow(cells []string) (internal.ParsedPriceRow, bool) {
	name := pickCell(cells, c.name)
	if name == "" {
		return internal.ParsedPriceRow{}, false
	}

	row := internal.ParsedPriceRow{Name: name, RawLine: strings.Join(cells, " | ")}
	if f := pickCell(cells, c.formula); f != "" {
		row.Formula = &f
	}
	if v, ok := parseFloatCell(pickCell(cells, c.rate)); ok {
		row.RatePerSqIn = &v
	}
	if v, ok := parseFloatCell(pickCell(cells, c.minSize)); ok {
		row.MinSizeSqIn = &v
	}
	if v, ok := parseFloatCell(pickCell(cells, c.maxSize)); ok {
		row.MaxSizeSqIn = &v
	}

	if row.Formula == nil && row.RatePerSqIn == nil {
		return internal.ParsedPriceRow{}, false
	}
	return row, true
}

func lineToRow(line string) (internal.ParsedPriceRow, bool) {
	normalized := strings.ReplaceAll(line, "\t", "|")
	var cells []string
	if strings.Contains(normalized, "|") {
		cells = normalizeCells(strings.Split(normalized, "|"))
	} else {
		cells = normalizeCells(splitOnWideGaps(normalized))
	}
	if len(cells) < 2 {
		return internal.ParsedPriceRow{}, false
	}

	row := internal.ParsedPriceRow{Name: cells[0], RawLine: strings.Join(cells, " | ")}
	for _, cell := range cells[1:] {
		if v, ok := parseFloatCell(cell); ok {
			if row.RatePerSqIn == nil {
				row.RatePerSqIn = &v
			} else if row.MinSizeSqIn == nil {
				row.MinSizeSqIn = &v
			} else if row.MaxSizeSqIn == nil {
				row.MaxSizeSqIn = &v
			}
			continue
		}
		if row.Formula == nil && looksLikeFormula(cell) {
			formula := cell
			row.Formula = &formula
		}
	}

	if row.Formula == nil && row.RatePerSqIn == nil {
		return internal.ParsedPriceRow{}, false
	}
	return row, true
}

func looksLikeFormula(s string) bool {
	return strings.ContainsAny(s, "+-*/(") && strings.ContainsAny(strings.ToLower(s), "abcdefghijklmnopqrstuvwxyz")
}

var reWideGap = regexp.MustCompile(`\s{2,}`)

func splitOnWideGaps(s string) []string {
	return reWideGap.Split(s, -1)
}

func normalizeCells(cells []string) []string {
	out := make([]string, 0, len(cells))
	empty := true
	for _, c := range cells {
		c = strings.TrimSpace(c)
		if c != "" {
			empty = false
		}
		out = append(out, c)
	}
	if empty {
		return nil
	}
	return out
}

func pickCell(cells []string, idx int) string {
	if idx < 0 || idx >= len(cells) {
		return ""
	}
	return strings.TrimSpace(cells[idx])
}

func parseFloatCell(cell string) (float64, bool) {
	if cell == "" {
		return 0, false
	}
	cell = strings.TrimPrefix(cell, "$")
	v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	parts := strings.Split(text, "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
