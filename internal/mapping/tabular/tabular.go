// Package tabular reads uploaded CSV / workbook files into entity.Table and
// writes tables back out as workbooks.
package tabular

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"github.com/shandysiswandi/gobuyline/internal/mapping/entity"
	"github.com/xuri/excelize/v2"
)

// Format identifies how an upload is encoded.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatWorkbook Format = "xlsx"
	FormatUnknown  Format = ""
)

// ContentTypeWorkbook is the media type of files produced by Encode.
const ContentTypeWorkbook = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	ErrUnsupportedFormat = errors.New("unsupported file format, upload a .csv or .xlsx file")
	ErrNoHeader          = errors.New("file has no header row")
)

// DetectFormat picks a Format from a filename, falling back to a media type.
func DetectFormat(filename, contentType string) Format {
	switch strings.ToLower(path.Ext(filename)) {
	case ".csv", ".txt":
		return FormatCSV
	case ".xlsx", ".xlsm":
		return FormatWorkbook
	case "":
	default:
		return FormatUnknown
	}

	ct := strings.ToLower(contentType)
	switch {
	case strings.HasPrefix(ct, "text/csv"), strings.HasPrefix(ct, "text/plain"):
		return FormatCSV
	case strings.HasPrefix(ct, ContentTypeWorkbook):
		return FormatWorkbook
	default:
		return FormatUnknown
	}
}

// Decode parses r according to format.
//
// Column names are trimmed, blank cells become nil and short rows are padded
// to the header width.
func Decode(format Format, r io.Reader) (entity.Table, error) {
	switch format {
	case FormatCSV:
		return decodeCSV(r)
	case FormatWorkbook:
		return decodeWorkbook(r)
	default:
		return entity.Table{}, ErrUnsupportedFormat
	}
}

func decodeCSV(r io.Reader) (entity.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return entity.Table{}, fmt.Errorf("read csv: %w", err)
	}

	return fromRecords(records)
}

func decodeWorkbook(r io.Reader) (entity.Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return entity.Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return entity.Table{}, ErrNoHeader
	}

	records, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return entity.Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}

	return fromRecords(records)
}

func fromRecords(records [][]string) (entity.Table, error) {
	if len(records) == 0 {
		return entity.Table{}, ErrNoHeader
	}

	header := records[0]
	for len(header) > 0 && strings.TrimSpace(header[len(header)-1]) == "" {
		header = header[:len(header)-1]
	}
	if len(header) == 0 {
		return entity.Table{}, ErrNoHeader
	}

	table := entity.Table{
		Columns: make([]string, len(header)),
		Rows:    make([][]any, 0, len(records)-1),
	}
	for i, c := range header {
		table.Columns[i] = strings.TrimSpace(strings.TrimPrefix(c, "\ufeff"))
	}

	for _, record := range records[1:] {
		if blankRecord(record) {
			continue
		}

		row := make([]any, len(header))
		for i := range row {
			if i < len(record) && strings.TrimSpace(record[i]) != "" {
				row[i] = record[i]
			}
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func blankRecord(record []string) bool {
	for _, v := range record {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Encode writes table as a single-sheet workbook.
func Encode(table entity.Table, sheetName string) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(table.Columns))
	for i, c := range table.Columns {
		header[i] = c
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	for i, row := range table.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = cellValue(v)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}

	return buf.Bytes(), nil
}

// maxNumericDigits is the precision a workbook keeps for a number cell.
const maxNumericDigits = 15

// cellValue types string cells holding a plain decimal as numbers so they
// are written as number cells. Leading zeros, signs other than a leading
// minus, exponents, and values beyond workbook precision stay text.
func cellValue(v any) any {
	s, ok := v.(string)
	if !ok || !plainDecimal(s) {
		return v
	}

	if !strings.Contains(s, ".") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return v
		}
		return n
	}

	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return v
	}
	return n
}

// plainDecimal reports whether s is -?(0|[1-9][0-9]*)(.[0-9]+)? with at most
// maxNumericDigits digits.
func plainDecimal(s string) bool {
	s = strings.TrimPrefix(s, "-")
	intPart, frac, hasFrac := strings.Cut(s, ".")

	if intPart == "" || (len(intPart) > 1 && intPart[0] == '0') {
		return false
	}
	if hasFrac && frac == "" {
		return false
	}
	if len(intPart)+len(frac) > maxNumericDigits {
		return false
	}

	for _, part := range []string{intPart, frac} {
		for i := 0; i < len(part); i++ {
			if part[i] < '0' || part[i] > '9' {
				return false
			}
		}
	}

	return true
}
