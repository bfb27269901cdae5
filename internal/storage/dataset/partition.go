package dataset

import (
	"fmt"
	"time"
)

// Partitioner derives the partition path of a row from its date index.
// An empty path means the dataset is not partitioned.
type Partitioner func(date time.Time) string

const (
	PartitionYear  = "year"
	PartitionMonth = "month"
	PartitionNone  = "none"
)

// ByYear puts rows under year=YYYY.
func ByYear(date time.Time) string {
	return fmt.Sprintf("year=%04d", date.Year())
}

// ByMonth puts rows under year=YYYY/month=MM.
func ByMonth(date time.Time) string {
	return fmt.Sprintf("year=%04d/month=%02d", date.Year(), int(date.Month()))
}

// Unpartitioned writes every row to the dataset root.
func Unpartitioned(time.Time) string {
	return ""
}

// PartitionerFor maps a configured partition_by value to a Partitioner.
// The empty string selects ByYear.
func PartitionerFor(name string) (Partitioner, error) {
	switch name {
	case "", PartitionYear:
		return ByYear, nil
	case PartitionMonth:
		return ByMonth, nil
	case PartitionNone:
		return Unpartitioned, nil
	default:
		return nil, fmt.Errorf("unknown partition scheme %q (supported: year, month, none)", name)
	}
}
