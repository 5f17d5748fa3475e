package sheet

import (
	"encoding/csv"
	"io"

	"shiftlog/internal/model"
)

// ReadCSV returns all records of a CSV stream. Rows may have differing lengths.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	return reader.ReadAll()
}

func WriteCSV(w io.Writer, records []*model.AttendanceRecord) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(model.Header()); err != nil {
		return err
	}
	for _, rec := range records {
		if err := cw.Write(rec.Row()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
