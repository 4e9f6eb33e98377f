// Package extract provides the spreadsheet parsing primitives: raw XLSX
// bytes in, a string table out, plus the cell-level conversions the
// normalization rules share.
package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	cferrors "github.com/colisflow/colisflow/pkg/errors"
)

// Table is a parsed sheet: one header row plus data rows, all cells as
// strings. Columns whose header cell is empty (export artifacts) are
// dropped at parse time.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// ReadTable parses the first sheet of an XLSX workbook, skipping skipRows
// leading rows before the header. The skip count is a per-type constant,
// never inferred.
func ReadTable(data []byte, skipRows int) (*Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeBadWorkbook, "failed to open workbook")
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet == "" {
		list := f.GetSheetList()
		if len(list) == 0 {
			return nil, cferrors.New(cferrors.CodeBadWorkbook, "workbook has no sheets")
		}
		sheet = list[0]
	}

	rows, err := f.Rows(sheet)
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeBadWorkbook, "failed to read rows")
	}
	defer rows.Close()

	for i := 0; i < skipRows; i++ {
		if !rows.Next() {
			return nil, cferrors.New(cferrors.CodeBadWorkbook, "sheet shorter than header skip").
				WithContext("skip", skipRows)
		}
		if _, err := rows.Columns(); err != nil {
			return nil, cferrors.Wrap(err, cferrors.CodeBadWorkbook, "failed to skip header rows")
		}
	}

	if !rows.Next() {
		return nil, cferrors.New(cferrors.CodeBadWorkbook, "sheet has no header row")
	}
	rawHeader, err := rows.Columns()
	if err != nil {
		return nil, cferrors.Wrap(err, cferrors.CodeBadWorkbook, "failed to read header")
	}

	// Keep only named columns. Unnamed headers are merge/export artifacts
	// (pandas shows them as "Unnamed: N").
	keep := make([]int, 0, len(rawHeader))
	header := make([]string, 0, len(rawHeader))
	for i, name := range rawHeader {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		keep = append(keep, i)
		header = append(header, name)
	}
	if len(header) == 0 {
		return nil, cferrors.New(cferrors.CodeBadWorkbook, "header row is empty")
	}

	t := &Table{Header: header}
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			continue // skip malformed rows
		}
		row := make([]string, len(keep))
		for j, src := range keep {
			if src < len(cells) {
				row[j] = strings.TrimSpace(cells[src])
			}
		}
		t.Rows = append(t.Rows, row)
	}

	t.buildIndex()
	return t, nil
}

func (t *Table) buildIndex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		t.index[name] = i
	}
}

// ColumnIndex returns the position of a named column.
func (t *Table) ColumnIndex(name string) (int, bool) {
	i, ok := t.index[name]
	return i, ok
}

// Cell returns the named cell of a row, empty when the column is absent.
func (t *Table) Cell(row []string, name string) string {
	i, ok := t.index[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// RequireColumns verifies that every named column exists.
func (t *Table) RequireColumns(names ...string) error {
	for _, name := range names {
		if _, ok := t.index[name]; !ok {
			return cferrors.MissingColumn(name, t.Header)
		}
	}
	return nil
}

// RenameColumn renames a header in place. Missing source columns are left
// alone; the caller's RequireColumns decides whether that matters.
func (t *Table) RenameColumn(from, to string) {
	for i, name := range t.Header {
		if name == from {
			t.Header[i] = to
			t.buildIndex()
			return
		}
	}
}

// TruncateAtEmptyRow drops everything from the first fully-empty row on.
// Some exports append totals or legend blocks after a blank separator.
func (t *Table) TruncateAtEmptyRow() {
	for i, row := range t.Rows {
		empty := true
		for _, cell := range row {
			if cell != "" {
				empty = false
				break
			}
		}
		if empty {
			t.Rows = t.Rows[:i]
			return
		}
	}
}

// ForwardFill carries the last non-empty value of each named column down
// into empty cells, for sources that print a group header only on its
// first row.
func (t *Table) ForwardFill(names ...string) {
	for _, name := range names {
		idx, ok := t.index[name]
		if !ok {
			continue
		}
		last := ""
		for _, row := range t.Rows {
			if idx >= len(row) {
				continue
			}
			if row[idx] != "" {
				last = row[idx]
			} else {
				row[idx] = last
			}
		}
	}
}

// Filter keeps only rows for which keep returns true.
func (t *Table) Filter(keep func(row []string) bool) {
	out := t.Rows[:0]
	for _, row := range t.Rows {
		if keep(row) {
			out = append(out, row)
		}
	}
	t.Rows = out
}

// String summarizes the table for logs.
func (t *Table) String() string {
	return fmt.Sprintf("table{%d cols, %d rows}", len(t.Header), len(t.Rows))
}
