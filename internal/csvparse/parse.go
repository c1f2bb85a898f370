// Package csvparse turns raw comma-separated text into a table of trimmed cells.
//
// The parser is a single-pass state machine with one character of lookahead.
// It never fails: malformed input degrades into ragged rows or an empty table
// instead of an error. Quotes toggle quote mode wherever they appear, not only
// at the start of a field, and a doubled quote inside quote mode is the only
// way to produce a literal quote character.
package csvparse

import "strings"

// Row is an ordered sequence of trimmed cells.
type Row []string

// Table is an ordered sequence of rows. Rows are not padded to a common width.
type Table []Row

// Parse converts text into a Table.
//
// Delimiters and line terminators inside quoted sections are kept as field
// content. "\r\n" counts as a single terminator. Rows whose cells are all empty
// are dropped, so empty or whitespace-only input yields an empty Table.
func Parse(text string) Table {
	var (
		table    Table
		row      Row
		field    strings.Builder
		inQuotes bool
	)

	endRow := func() {
		row = append(row, strings.TrimSpace(field.String()))
		table = append(table, row)
		row = nil
		field.Reset()
	}

	for i := 0; i < len(text); i++ {
		c := text[i]

		switch {
		case c == '"':
			if inQuotes && i+1 < len(text) && text[i+1] == '"' {
				field.WriteByte('"')
				i++
				continue
			}
			inQuotes = !inQuotes

		case c == ',' && !inQuotes:
			row = append(row, strings.TrimSpace(field.String()))
			field.Reset()

		case (c == '\n' || c == '\r') && !inQuotes:
			if c == '\r' && i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			if field.Len() > 0 || len(row) > 0 {
				endRow()
			}

		default:
			field.WriteByte(c)
		}
	}

	if field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return dropBlankRows(table)
}

// dropBlankRows removes rows in which every cell is the empty string.
func dropBlankRows(table Table) Table {
	kept := table[:0]
	for _, row := range table {
		if !row.Blank() {
			kept = append(kept, row)
		}
	}
	if len(kept) == 0 {
		return Table{}
	}
	return kept
}

// Blank reports whether every cell in the row is empty.
func (r Row) Blank() bool {
	for _, cell := range r {
		if cell != "" {
			return false
		}
	}
	return true
}

// Empty reports whether the table has no rows.
func (t Table) Empty() bool {
	return len(t) == 0
}

// Width returns the number of cells in the widest row.
func (t Table) Width() int {
	width := 0
	for _, row := range t {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Header returns the first row, or nil for an empty table.
func (t Table) Header() Row {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Body returns the data rows. When hasHeader is set the first row is skipped.
func (t Table) Body(hasHeader bool) []Row {
	if hasHeader {
		if len(t) <= 1 {
			return nil
		}
		return t[1:]
	}
	return t
}

// Cells returns the table as plain string slices, convenient for encoders
// that do not know the Row type.
func (t Table) Cells() [][]string {
	out := make([][]string, len(t))
	for i, row := range t {
		out[i] = []string(row)
	}
	return out
}
