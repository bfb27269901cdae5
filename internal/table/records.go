package table

import (
	"fmt"

	"github.com/gocarina/gocsv"

	"github.com/bobmcallan/eodlake/internal/models"
)

// Decode unmarshals the table rows into out, a pointer to a slice of csv-tagged
// structs such as []models.EODRecord. Columns without a matching field are ignored.
func (t *Table) Decode(out interface{}) error {
	data, err := t.MarshalCSV()
	if err != nil {
		return err
	}
	if err := gocsv.UnmarshalBytes(data, out); err != nil {
		return fmt.Errorf("failed to decode table: %w", err)
	}
	return nil
}

// SummarizeEOD decodes the rows as EOD records and summarizes them.
// Price columns the table does not carry are reported as zero.
func (t *Table) SummarizeEOD() (models.EODSummary, error) {
	if t.Empty() {
		return models.EODSummary{}, nil
	}
	var records []models.EODRecord
	if err := t.Decode(&records); err != nil {
		return models.EODSummary{}, err
	}
	return models.SummarizeEOD(records), nil
}
