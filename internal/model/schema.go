package model

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

type ColumnKind int

const (
	KindText ColumnKind = iota
	KindTime
	KindNumber
	KindBool
)

// Column describes one field of the tabular record layout and how a missing
// column is backfilled: KindBool defaults to true, everything else to absent.
type Column struct {
	Name     string
	Kind     ColumnKind
	Required bool
	Aliases  []string

	get func(*AttendanceRecord) any
	set func(*AttendanceRecord, string) error
}

// Columns is the fixed layout shared by the data file, the backup and import/export.
var Columns = []Column{
	{Name: "User", Kind: KindText, Required: true, Aliases: []string{"username", "employee"},
		get: func(r *AttendanceRecord) any { return r.User },
		set: func(r *AttendanceRecord, v string) error { r.User = v; return nil }},
	{Name: "Date", Kind: KindText, Required: true, Aliases: []string{"shiftdate"},
		get: func(r *AttendanceRecord) any { return r.ShiftDate },
		set: func(r *AttendanceRecord, v string) error {
			d, ok := NormalizeDate(v)
			if !ok {
				return fmt.Errorf("invalid date %q", v)
			}
			r.ShiftDate = d
			return nil
		}},
	timeColumn("CheckIn", func(r *AttendanceRecord) **string { return &r.CheckIn }),
	timeColumn("CheckOut", func(r *AttendanceRecord) **string { return &r.CheckOut }),
	timeColumn("Break1Start", func(r *AttendanceRecord) **string { return &r.Breaks[0].Start }),
	timeColumn("Break1End", func(r *AttendanceRecord) **string { return &r.Breaks[0].End }),
	timeColumn("Break2Start", func(r *AttendanceRecord) **string { return &r.Breaks[1].Start }),
	timeColumn("Break2End", func(r *AttendanceRecord) **string { return &r.Breaks[1].End }),
	timeColumn("Break3Start", func(r *AttendanceRecord) **string { return &r.Breaks[2].Start }),
	timeColumn("Break3End", func(r *AttendanceRecord) **string { return &r.Breaks[2].End }),
	numberColumn("TotalHours", func(r *AttendanceRecord) *float64 { return &r.TotalHours }),
	numberColumn("BreakDuration", func(r *AttendanceRecord) *float64 { return &r.BreakDuration }),
	{Name: "Active", Kind: KindBool,
		get: func(r *AttendanceRecord) any { return r.Active },
		set: func(r *AttendanceRecord, v string) error {
			b, err := parseBool(v)
			if err != nil {
				return err
			}
			r.Active = b
			return nil
		}},
}

// Header returns the column names in layout order.
func Header() []string {
	h := make([]string, len(Columns))
	for i, c := range Columns {
		h[i] = c.Name
	}
	return h
}

// Row renders the record as text cells in layout order.
func (r *AttendanceRecord) Row() []string {
	row := make([]string, len(Columns))
	for i, c := range Columns {
		switch v := c.get(r).(type) {
		case nil:
		case string:
			row[i] = v
		case float64:
			row[i] = strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			if v {
				row[i] = "True"
			} else {
				row[i] = "False"
			}
		}
	}
	return row
}

// Values renders the record as typed cells (nil for absent times) in layout order.
func (r *AttendanceRecord) Values() []any {
	vals := make([]any, len(Columns))
	for i, c := range Columns {
		vals[i] = c.get(r)
	}
	return vals
}

// Reconcile maps a tabular snapshot onto Columns. Header matching ignores case,
// spaces and underscores. Required columns must be present; any other missing
// column is backfilled with its default. Blank rows are skipped.
func Reconcile(header []string, rows [][]string) ([]*AttendanceRecord, error) {
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[normalizeHeader(h)] = i
	}

	positions := make([]int, len(Columns))
	for i, c := range Columns {
		positions[i] = -1
		for _, name := range append([]string{c.Name}, c.Aliases...) {
			if idx, ok := index[normalizeHeader(name)]; ok {
				positions[i] = idx
				break
			}
		}
		if positions[i] < 0 && c.Required {
			return nil, fmt.Errorf("%w: missing required column %q", ErrImportValidation, c.Name)
		}
	}

	records := make([]*AttendanceRecord, 0, len(rows))
	for n, row := range rows {
		if blankRow(row) {
			continue
		}
		rec := &AttendanceRecord{}
		for i, c := range Columns {
			raw := ""
			if positions[i] >= 0 && positions[i] < len(row) {
				raw = strings.TrimSpace(row[positions[i]])
			}
			if raw == "" && c.Kind == KindBool {
				raw = "true"
			}
			if err := c.set(rec, raw); err != nil {
				return nil, fmt.Errorf("%w: row %d, column %s: %v", ErrImportValidation, n+2, c.Name, err)
			}
		}
		if rec.User == "" {
			return nil, fmt.Errorf("%w: row %d: empty user", ErrImportValidation, n+2)
		}
		records = append(records, rec)
	}
	return records, nil
}

var dateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	"2006-01-02T15:04:05",
	"1/2/2006",
}

// NormalizeDate accepts the date forms spreadsheets commonly produce and
// returns the YYYY-MM-DD form.
func NormalizeDate(s string) (string, bool) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format(time.DateOnly), true
		}
	}
	return "", false
}

func timeColumn(name string, field func(*AttendanceRecord) **string) Column {
	return Column{
		Name: name,
		Kind: KindTime,
		get: func(r *AttendanceRecord) any {
			if p := *field(r); p != nil {
				return *p
			}
			return nil
		},
		set: func(r *AttendanceRecord, v string) error {
			switch strings.ToLower(v) {
			case "", "nan", "<na>", "none", "nat":
				*field(r) = nil
			default:
				*field(r) = &v
			}
			return nil
		},
	}
}

func numberColumn(name string, field func(*AttendanceRecord) *float64) Column {
	return Column{
		Name: name,
		Kind: KindNumber,
		get:  func(r *AttendanceRecord) any { return *field(r) },
		set: func(r *AttendanceRecord, v string) error {
			// derived: recomputed after reconciliation, so garbage reads as zero
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				f = 0
			}
			*field(r) = f
			return nil
		},
	}
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "t", "1", "yes", "y":
		return true, nil
	case "false", "f", "0", "no", "n":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean %q", v)
}

func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(h)
}

func blankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
