// Package ingest parses delimited candidate tables into typed rows.
//
// Parsing is lenient: each data line yields either a Row or a Skip, and a bad
// line never aborts the table. Only a missing header or an input with no data
// lines fails the whole parse.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ErrEmptyInput is the sentinel matched by EmptyInputError.
var ErrEmptyInput = errors.New("empty input")

// EmptyInputError reports that the input has no header or no data lines.
type EmptyInputError struct {
	Lines int // non-blank lines found
}

func (e *EmptyInputError) Error() string {
	if e.Lines == 0 {
		return "CSV input is empty"
	}
	return fmt.Sprintf("CSV input needs a header and at least one data row, got %d non-blank line(s)", e.Lines)
}

func (e *EmptyInputError) Unwrap() error { return ErrEmptyInput }

// Kind tags the type held by a Value.
type Kind uint8

const (
	Null Kind = iota
	Number
	Text
)

// Value is one parsed cell.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
}

// Float returns the numeric value and whether the cell is numeric.
func (v Value) Float() (float64, bool) {
	if v.Kind != Number {
		return 0, false
	}
	return v.Num, true
}

// String returns the text form of the cell; numbers keep their parsed form.
func (v Value) String() string {
	switch v.Kind {
	case Number:
		return strconv.FormatFloat(v.Num, 'g', -1, 64)
	case Text:
		return v.Str
	default:
		return ""
	}
}

// Row maps header names to cell values. Columns missing from a truncated line
// are absent from the map.
type Row struct {
	Line   int // 1-based line number among non-blank lines
	Values map[string]Value
}

// Get returns the cell for column and whether it was present.
func (r Row) Get(column string) (Value, bool) {
	v, ok := r.Values[column]
	return v, ok
}

// SkipReason explains why a line produced no row.
type SkipReason string

const (
	SkipShortRow  SkipReason = "short_row"
	SkipMalformed SkipReason = "malformed"
)

// Skip records a dropped line.
type Skip struct {
	Line   int
	Reason SkipReason
	Detail string
}

// Table is the result of a parse.
type Table struct {
	Header  []string
	Rows    []Row
	Skipped []Skip
}

// HasColumn reports whether the header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Header {
		if h == name {
			return true
		}
	}
	return false
}

// Options controls header handling and row tolerance.
type Options struct {
	// LowerHeader lower-cases header names. The training path sets it, the
	// prediction path does not.
	LowerHeader bool
	// Slack is how many trailing fields a line may lack before it is dropped.
	Slack int
}

// Parse splits text into a header and typed rows.
func Parse(text string, opts Options) (*Table, error) {
	text = stripBOM(text)

	lines := nonBlankLines(text)
	if len(lines) < 2 {
		return nil, &EmptyInputError{Lines: len(lines)}
	}

	headerFields, err := splitRecord(lines[0])
	if err != nil || len(headerFields) == 0 {
		return nil, &EmptyInputError{Lines: len(lines)}
	}

	header := make([]string, len(headerFields))
	blank := true
	for i, h := range headerFields {
		h = strings.TrimSpace(h)
		if opts.LowerHeader {
			h = strings.ToLower(h)
		}
		if h != "" {
			blank = false
		}
		header[i] = h
	}
	if blank {
		return nil, &EmptyInputError{Lines: len(lines)}
	}

	table := &Table{Header: header}
	for i, line := range lines[1:] {
		row, skip := parseLine(header, line, i+2, opts.Slack)
		if skip != nil {
			table.Skipped = append(table.Skipped, *skip)
			continue
		}
		table.Rows = append(table.Rows, row)
	}

	return table, nil
}

func parseLine(header []string, line string, lineNo, slack int) (Row, *Skip) {
	fields, err := splitRecord(line)
	if err != nil {
		return Row{}, &Skip{Line: lineNo, Reason: SkipMalformed, Detail: err.Error()}
	}

	if len(fields) < len(header)-slack {
		return Row{}, &Skip{
			Line:   lineNo,
			Reason: SkipShortRow,
			Detail: fmt.Sprintf("%d of %d fields", len(fields), len(header)),
		}
	}

	values := make(map[string]Value, len(header))
	for i, name := range header {
		if i >= len(fields) {
			break
		}
		if name == "" {
			continue
		}
		values[name] = ParseValue(fields[i])
	}

	return Row{Line: lineNo, Values: values}, nil
}

// ParseValue converts one raw cell. "", "null" and "NaN" are null, finite
// numbers are numeric, anything else is kept as trimmed text.
func ParseValue(raw string) Value {
	s := strings.TrimSpace(raw)
	switch s {
	case "", "null", "NaN":
		return Value{Kind: Null}
	}

	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		return Value{Kind: Number, Num: f}
	}

	return Value{Kind: Text, Str: s}
}

func splitRecord(line string) ([]string, error) {
	r := csv.NewReader(strings.NewReader(line))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	fields, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("split record: %w", err)
	}
	return fields, nil
}

func nonBlankLines(text string) []string {
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, l := range raw {
		l = strings.TrimSuffix(l, "\r")
		if strings.TrimSpace(l) == "" {
			continue
		}
		lines = append(lines, l)
	}
	return lines
}

// stripBOM drops a leading byte order mark left by spreadsheet exports.
func stripBOM(text string) string {
	out, _, err := transform.String(unicode.BOMOverride(unicode.UTF8.NewDecoder()), text)
	if err != nil {
		return strings.TrimPrefix(text, "\ufeff")
	}
	return out
}
