package csvimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// DefaultMaxRows caps how many data rows a single upload may carry.
const DefaultMaxRows = 100000

// Reader parses bank back-office CSV exports into loosely typed records
// keyed by header name. Exports vary in column order, column count and
// quoting, so the reader is deliberately tolerant and leaves all field
// interpretation to the domain extractors.
type Reader struct {
	delimiter  rune
	lazyQuotes bool
	trimSpace  bool
	maxRows    int
	headers    []string
	line       int
	reader     *csv.Reader
	bufReader  *bufio.Reader
}

// Option is a functional option for Reader configuration
type Option func(*Reader)

// WithDelimiter sets the field delimiter (default is comma)
func WithDelimiter(d rune) Option {
	return func(r *Reader) {
		r.delimiter = d
	}
}

// WithLazyQuotes enables lazy quote handling
func WithLazyQuotes(lazy bool) Option {
	return func(r *Reader) {
		r.lazyQuotes = lazy
	}
}

// WithTrimSpace enables trimming of leading/trailing spaces from fields
func WithTrimSpace(trim bool) Option {
	return func(r *Reader) {
		r.trimSpace = trim
	}
}

// WithMaxRows overrides the data row cap. Zero disables the cap.
func WithMaxRows(n int) Option {
	return func(r *Reader) {
		r.maxRows = n
	}
}

// NewReader creates a CSV reader over r, stripping a UTF-8 BOM when
// present and rejecting content that is not valid UTF-8.
func NewReader(r io.Reader, opts ...Option) (*Reader, error) {
	rd := &Reader{
		delimiter:  ',',
		lazyQuotes: true,
		trimSpace:  true,
		maxRows:    DefaultMaxRows,
	}

	for _, opt := range opts {
		opt(rd)
	}

	rd.bufReader = bufio.NewReader(r)

	// UTF-8 BOM: 0xEF, 0xBB, 0xBF
	head, err := rd.bufReader.Peek(3)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	if len(head) >= 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF {
		_, _ = rd.bufReader.Discard(3)
	}

	if err := validateUTF8(rd.bufReader); err != nil {
		return nil, err
	}

	rd.reader = csv.NewReader(rd.bufReader)
	rd.reader.Comma = rd.delimiter
	rd.reader.LazyQuotes = rd.lazyQuotes
	rd.reader.TrimLeadingSpace = rd.trimSpace
	rd.reader.FieldsPerRecord = -1 // Allow variable number of fields

	return rd, nil
}

// validateUTF8 checks that the content is valid UTF-8
func validateUTF8(r *bufio.Reader) error {
	const checkSize = 4096
	content, err := r.Peek(checkSize)
	if err != nil && err != io.EOF {
		return fmt.Errorf("failed to read file for encoding validation: %w", err)
	}

	if len(content) == 0 {
		return ErrEmptyFile
	}

	// A multibyte rune can straddle the peek window, so ignore the tail.
	if len(content) == checkSize {
		content = content[:checkSize-utf8.UTFMax]
	}

	if !utf8.Valid(content) {
		return ErrInvalidEncoding
	}

	return nil
}

// Record is a single data row keyed by header name. Values are the raw
// cell strings, trimmed when trimming is enabled.
type Record struct {
	Line   int
	Values map[string]any
}

// IsEmpty returns true if the record has no non-empty values
func (r *Record) IsEmpty() bool {
	for _, v := range r.Values {
		if v != "" {
			return false
		}
	}
	return true
}

// Headers returns the parsed header names. It is empty until the first
// record has been read.
func (rd *Reader) Headers() []string {
	return rd.headers
}

func (rd *Reader) readHeader() error {
	record, err := rd.reader.Read()
	if err == io.EOF {
		return ErrMissingHeader
	}
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}

	rd.headers = make([]string, len(record))
	for i, h := range record {
		if rd.trimSpace {
			h = strings.TrimSpace(h)
		}
		rd.headers[i] = h
	}

	rd.line = 1 // Header is line 1

	return nil
}

// Read returns the next data record, reading the header row first if it
// has not been consumed yet. It returns io.EOF at end of input.
func (rd *Reader) Read() (*Record, error) {
	if rd.headers == nil {
		if err := rd.readHeader(); err != nil {
			return nil, err
		}
	}

	fields, err := rd.reader.Read()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		rd.line++
		return nil, fmt.Errorf("malformed CSV at line %d: %w", rd.line, err)
	}

	rd.line++
	rec := &Record{
		Line:   rd.line,
		Values: make(map[string]any, len(rd.headers)),
	}

	for i, header := range rd.headers {
		if header == "" {
			// Unnamed column, usually a trailing comma in the header.
			continue
		}
		var value string
		if i < len(fields) {
			value = fields[i]
			if rd.trimSpace {
				value = strings.TrimSpace(value)
			}
		}
		rec.Values[header] = value
	}

	return rec, nil
}

// ReadAll reads every remaining data record, skipping completely empty
// rows. It returns ErrNoDataRows when the file holds nothing but the
// header and ErrTooManyRows when the row cap is exceeded.
func (rd *Reader) ReadAll() ([]Record, error) {
	var records []Record

	for {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		if rec.IsEmpty() {
			continue
		}

		if rd.maxRows > 0 && len(records) >= rd.maxRows {
			return nil, ErrTooManyRows
		}

		records = append(records, *rec)
	}

	if len(records) == 0 {
		return nil, ErrNoDataRows
	}

	return records, nil
}

// ParseBytes parses a complete CSV document and returns its data rows.
func ParseBytes(data []byte, opts ...Option) ([]Record, error) {
	rd, err := NewReader(bytes.NewReader(data), opts...)
	if err != nil {
		return nil, err
	}
	return rd.ReadAll()
}

// RecordValues flattens records into the bare field maps the
// application services consume.
func RecordValues(records []Record) []map[string]any {
	rows := make([]map[string]any, len(records))
	for i, rec := range records {
		rows[i] = rec.Values
	}
	return rows
}
