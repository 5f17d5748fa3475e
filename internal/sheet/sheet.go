// Package sheet reads and writes the tabular snapshot of attendance records
// as CSV, XLSX and (read-only) legacy XLS.
package sheet

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"shiftlog/internal/model"
)

// SheetName is the worksheet the backup and exports are written to.
const SheetName = "DataMatrix"

type Format string

const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
)

// ParseFormat maps a user supplied name ("xlsx", ".csv", "CSV") to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), ".")); f {
	case FormatCSV, FormatXLSX, FormatXLS:
		return f, nil
	case "":
		return FormatXLSX, nil
	default:
		return "", fmt.Errorf("unsupported format %q", s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatXLS:
		return "application/vnd.ms-excel"
	default:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
}

// Write encodes records with a header row in the given format.
func Write(w io.Writer, f Format, records []*model.AttendanceRecord) error {
	switch f {
	case FormatCSV:
		return WriteCSV(w, records)
	case FormatXLSX:
		return WriteXLSX(w, records)
	default:
		return fmt.Errorf("cannot write format %q", f)
	}
}

// ReadRows reads every row of a CSV, XLSX or XLS file, picking the decoder
// from the file name extension.
func ReadRows(r io.Reader, filename string) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	f, err := ParseFormat(filepath.Ext(filename))
	if err != nil {
		return nil, err
	}

	var rows [][]string
	switch f {
	case FormatCSV:
		rows, err = ReadCSV(bytes.NewReader(data))
	case FormatXLS:
		rows, err = ReadXLS(bytes.NewReader(data))
	default:
		rows, err = ReadXLSX(bytes.NewReader(data))
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("worksheet is empty")
	}
	return rows, nil
}

// Decode reconciles rows (header first) against the record layout.
func Decode(rows [][]string) ([]*model.AttendanceRecord, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no header row", model.ErrImportValidation)
	}
	return model.Reconcile(rows[0], rows[1:])
}

// Read is ReadRows followed by Decode. Unreadable input is reported as an
// import validation error.
func Read(r io.Reader, filename string) ([]*model.AttendanceRecord, error) {
	rows, err := ReadRows(r, filename)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", model.ErrImportValidation, filename, err)
	}
	return Decode(rows)
}
