// Package interfaces defines service contracts for eodlake
package interfaces

import (
	"context"

	"github.com/bobmcallan/eodlake/internal/models"
	"github.com/bobmcallan/eodlake/internal/table"
)

// EODHDClient provides access to the EODHD API
type EODHDClient interface {
	// FetchEOD retrieves end-of-day rows as a date-indexed table
	FetchEOD(ctx context.Context, req models.FetchRequest) (*table.Table, error)

	// FetchFundamentals retrieves the raw fundamentals payload
	FetchFundamentals(ctx context.Context, req models.FetchRequest) ([]byte, error)
}
