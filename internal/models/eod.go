// Package models defines data structures for eodlake
package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

var dateLayouts = []string{
	DateLayout,
	"2006-01-02 15:04:05",
	"2006/01/02",
	"20060102",
	time.RFC3339,
}

// ParseDate parses a date-like string into a UTC calendar date (time truncated).
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return CalendarDate(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// CalendarDate drops the clock part of t, keeping its calendar day in UTC.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Date is a calendar date that encodes as YYYY-MM-DD in CSV.
type Date struct {
	time.Time
}

// UnmarshalCSV implements gocsv.TypeUnmarshaller.
func (d *Date) UnmarshalCSV(s string) error {
	t, err := ParseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

// MarshalCSV implements gocsv.TypeMarshaller.
func (d Date) MarshalCSV() (string, error) {
	return d.Time.Format(DateLayout), nil
}

func (d Date) String() string {
	return d.Time.Format(DateLayout)
}

// EODRecord is one trading day of end-of-day data as served by the EODHD CSV endpoint.
type EODRecord struct {
	Date          Date    `csv:"Date"`
	Open          float64 `csv:"Open"`
	High          float64 `csv:"High"`
	Low           float64 `csv:"Low"`
	Close         float64 `csv:"Close"`
	AdjustedClose float64 `csv:"Adjusted_close"`
	Volume        int64   `csv:"Volume"`
}

// EODSummary describes a run of EOD records: the date range they cover and
// the prices of the latest day.
type EODSummary struct {
	Rows              int
	First             time.Time
	Last              time.Time
	LastClose         float64
	LastAdjustedClose float64
	TotalVolume       int64
}

// SummarizeEOD scans records in any order. Ties on the latest date keep the
// first record seen.
func SummarizeEOD(records []EODRecord) EODSummary {
	var s EODSummary
	for i, r := range records {
		s.Rows++
		s.TotalVolume += r.Volume
		if i == 0 || r.Date.Time.Before(s.First) {
			s.First = r.Date.Time
		}
		if i == 0 || r.Date.Time.After(s.Last) {
			s.Last = r.Date.Time
			s.LastClose = r.Close
			s.LastAdjustedClose = r.AdjustedClose
		}
	}
	return s
}

// Ticker joins a symbol and its exchange code as "SYMBOL.EXCHANGE". Surrounding
// whitespace is dropped; casing is left as given.
func Ticker(symbol, exchange string) string {
	return strings.TrimSpace(symbol) + "." + strings.TrimSpace(exchange)
}

// FetchRequest describes one provider call for SYMBOL.EXCHANGE.
// Start and End are optional date strings; APIToken overrides the client token.
type FetchRequest struct {
	Symbol   string
	Exchange string
	Endpoint string
	Start    string
	End      string
	APIToken string
}

// Ticker returns the provider ticker for the request.
func (r FetchRequest) Ticker() string {
	return Ticker(r.Symbol, r.Exchange)
}
