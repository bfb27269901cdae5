package interfaces

import (
	"context"

	"github.com/bobmcallan/eodlake/internal/table"
)

// DatasetStore persists tables under the raw-data layer of the bucket
type DatasetStore interface {
	// Write stores a table under fileName using one of the write modes
	// ("append", "overwrite", "overwrite_partitions")
	Write(ctx context.Context, fileName string, t *table.Table, mode string) error

	// WriteRaw stores an opaque payload as fileName/objectName
	WriteRaw(ctx context.Context, fileName, objectName string, data []byte) error

	// Read combines every CSV part under folderName into one table
	Read(ctx context.Context, folderName string) (*table.Table, error)
}
