package table

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/bobmcallan/eodlake/internal/models"
)

// StripFooter removes the last non-empty line of a provider CSV body.
// EODHD appends a trailer line that is not part of the data.
func StripFooter(body []byte) []byte {
	trimmed := bytes.TrimRight(body, "\r\n")
	i := bytes.LastIndexByte(trimmed, '\n')
	if i < 0 {
		return nil
	}
	return trimmed[:i+1]
}

// ParseProviderCSV decodes a provider CSV body: the footer line is dropped and the
// first column is parsed as the date index.
func ParseProviderCSV(body []byte) (*Table, error) {
	return ReadCSV(bytes.NewReader(StripFooter(body)))
}

// ReadCSV decodes CSV with a header row whose first column is the date index.
// Input without a header yields an empty table.
func ReadCSV(r io.Reader) (*Table, error) {
	cr := csv.NewReader(r)

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return &Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read csv header: %w", err)
	}
	if len(header) == 0 || strings.TrimSpace(header[0]) == "" {
		return nil, fmt.Errorf("csv header has no index column")
	}
	// A UTF-8 BOM would otherwise end up in the index name
	header[0] = strings.TrimPrefix(header[0], "\ufeff")

	t := New(header[0], header[1:]...)
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read csv line %d: %w", line, err)
		}
		date, err := models.ParseDate(rec[0])
		if err != nil {
			return nil, fmt.Errorf("csv line %d: index: %w", line, err)
		}
		if err := t.Append(date, rec[1:]...); err != nil {
			return nil, fmt.Errorf("csv line %d: %w", line, err)
		}
	}
	return t, nil
}

// WriteCSV encodes the table with its index as the first column.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Header()); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns)+1)
	for _, r := range t.Rows {
		rec[0] = r.Date.Format(models.DateLayout)
		copy(rec[1:], r.Values)
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalCSV returns the CSV encoding of the table.
func (t *Table) MarshalCSV() ([]byte, error) {
	var buf bytes.Buffer
	if err := t.WriteCSV(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
