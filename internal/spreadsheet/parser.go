// Package spreadsheet turns uploaded contact files (.xlsx, .csv) into ordered
// raw rows keyed by canonical field names.
package spreadsheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/keyhaven/keyhaven/internal/domain"
	"github.com/xuri/excelize/v2"
)

// ErrUnsupportedFormat indicates the file extension maps to no known parser.
var ErrUnsupportedFormat = errors.New("unsupported spreadsheet format")

// ErrNoHeader indicates the file contains no usable header row.
var ErrNoHeader = errors.New("spreadsheet has no header row")

// Row is one parsed source record: its 1-based position among data rows and
// its ordered field values.
type Row struct {
	Number int
	Fields domain.RawFields
}

// headerAliases maps common spreadsheet column headings to canonical field
// names. Lookup happens after lower-casing and collapsing spaces/underscores.
var headerAliases = map[string]string{
	"firstname":  domain.FieldFirstName,
	"first":      domain.FieldFirstName,
	"givenname":  domain.FieldFirstName,
	"lastname":   domain.FieldLastName,
	"last":       domain.FieldLastName,
	"surname":    domain.FieldLastName,
	"familyname": domain.FieldLastName,
	"email":      domain.FieldEmail,
	"emailaddress": domain.FieldEmail,
	"mail":       domain.FieldEmail,
	"phone":      domain.FieldPhone,
	"phonenumber": domain.FieldPhone,
	"mobile":     domain.FieldPhone,
	"cell":       domain.FieldPhone,
	"telephone":  domain.FieldPhone,
	"company":    domain.FieldCompany,
	"organization": domain.FieldCompany,
	"brokerage":  domain.FieldCompany,
	"address":    domain.FieldAddress,
	"streetaddress": domain.FieldAddress,
	"mailingaddress": domain.FieldAddress,
}

// CanonicalHeader resolves a raw column heading to a canonical field name.
// Parameters:
//   - header: raw column heading from the source file.
// Returns:
//   - string: canonical field name, or the cleaned heading if unknown.
//   - bool: true if the heading mapped to a canonical field.
func CanonicalHeader(header string) (string, bool) {
	cleaned := strings.ToLower(strings.TrimSpace(header))
	cleaned = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(cleaned)
	if canonical, ok := headerAliases[cleaned]; ok {
		return canonical, true
	}
	return cleaned, false
}

// Parse reads a spreadsheet stream into ordered rows. The first non-empty
// line is the header; subsequent lines become rows numbered from 1. Rows with
// every value blank are dropped.
// Parameters:
//   - reader: file content stream.
//   - fileName: source file name, used to pick the parser by extension.
//   - maxRows: row cap; <= 0 means unlimited.
// Returns:
//   - []Row: parsed data rows in source order.
//   - error: ErrUnsupportedFormat, ErrNoHeader, or a parse failure.
func Parse(reader io.Reader, fileName string, maxRows int) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return parseXLSX(reader, maxRows)
	case ".csv":
		return parseCSV(reader, maxRows)
	default:
		return nil, fmt.Errorf("%s: %w", fileName, ErrUnsupportedFormat)
	}
}

// parseXLSX reads the first sheet of an Excel workbook.
func parseXLSX(reader io.Reader, maxRows int) ([]Row, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoHeader
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return assemble(records, maxRows)
}

// parseCSV reads comma-separated content.
func parseCSV(reader io.Reader, maxRows int) ([]Row, error) {
	cr := csv.NewReader(reader)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var records [][]string
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv: %w", err)
		}
		records = append(records, record)
	}

	return assemble(records, maxRows)
}

// assemble converts raw string records into Rows using the first non-empty
// record as the header.
func assemble(records [][]string, maxRows int) ([]Row, error) {
	headerIdx := -1
	for i, record := range records {
		if !blankRecord(record) {
			headerIdx = i
			break
		}
	}
	if headerIdx < 0 {
		return nil, ErrNoHeader
	}

	headers := make([]string, len(records[headerIdx]))
	for i, h := range records[headerIdx] {
		headers[i], _ = CanonicalHeader(h)
	}

	var rows []Row
	number := 0
	for _, record := range records[headerIdx+1:] {
		if blankRecord(record) {
			continue
		}
		number++
		if maxRows > 0 && number > maxRows {
			return nil, fmt.Errorf("spreadsheet exceeds row limit of %d", maxRows)
		}

		fields := make(domain.RawFields, 0, len(headers))
		for i, header := range headers {
			if header == "" {
				continue
			}
			value := ""
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			fields = append(fields, domain.RawField{Key: header, Value: value})
		}
		rows = append(rows, Row{Number: number, Fields: fields})
	}

	return rows, nil
}

// blankRecord reports whether every cell in the record is empty.
func blankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
