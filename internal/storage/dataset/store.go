// Package dataset stores date-indexed tables as partitioned CSV objects in a
// blob store, under <prefix>/<name>/<partition>/<part>.csv.
package dataset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/bobmcallan/eodlake/internal/common"
	"github.com/bobmcallan/eodlake/internal/interfaces"
	"github.com/bobmcallan/eodlake/internal/storage"
	"github.com/bobmcallan/eodlake/internal/table"
)

// DefaultPrefix is the top-level folder every dataset lives under.
const DefaultPrefix = "raw-data"

// DefaultIndexName is written as the index header when a table has none.
const DefaultIndexName = "Date"

// ErrSchemaMismatch is returned by Read when parts disagree on their columns.
var ErrSchemaMismatch = table.ErrSchemaMismatch

// ErrInvalidName is returned for an empty or path-escaping dataset or object name.
var ErrInvalidName = errors.New("invalid dataset name")

// Store reads and writes tables under the raw-data layer of a blob store.
type Store struct {
	blobs       storage.BlobStore
	prefix      string
	partitioner Partitioner
	logger      *common.Logger
	newID       func() string
}

// Option configures a Store
type Option func(*Store)

// WithPrefix replaces the top-level folder (default raw-data).
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = strings.Trim(prefix, "/")
	}
}

// WithPartitioner sets how rows are grouped into part objects.
func WithPartitioner(p Partitioner) Option {
	return func(s *Store) {
		if p != nil {
			s.partitioner = p
		}
	}
}

// NewStore creates a Store over blobs, partitioned by year unless configured otherwise.
func NewStore(blobs storage.BlobStore, logger *common.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	s := &Store{
		blobs:       blobs,
		prefix:      DefaultPrefix,
		partitioner: ByYear,
		logger:      logger,
		newID:       uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewStoreFromConfig builds a Store from the [storage] config section.
func NewStoreFromConfig(blobs storage.BlobStore, logger *common.Logger, cfg common.StorageConfig) (*Store, error) {
	p, err := PartitionerFor(cfg.PartitionBy)
	if err != nil {
		return nil, err
	}
	return NewStore(blobs, logger, WithPrefix(cfg.Prefix), WithPartitioner(p)), nil
}

// folder returns "<prefix>/<name>/" for a validated dataset name.
func (s *Store) folder(name string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(name), "/")
	if clean == "" {
		return "", fmt.Errorf("%w: name is empty", ErrInvalidName)
	}
	for _, seg := range strings.Split(clean, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	if s.prefix == "" {
		return clean + "/", nil
	}
	return s.prefix + "/" + clean + "/", nil
}

func partitionDir(folder, partition string) string {
	if partition == "" {
		return folder
	}
	return folder + partition + "/"
}

// Write stores t under fileName. The mode is validated before the blob store
// is touched. Each partition becomes one new <uuid>.csv object; the date
// index is written as the first column. Overwriting with an empty table
// leaves a single header-only part.
func (s *Store) Write(ctx context.Context, fileName string, t *table.Table, mode string) error {
	m, err := ParseMode(mode)
	if err != nil {
		return err
	}
	folder, err := s.folder(fileName)
	if err != nil {
		return err
	}
	if t == nil {
		return fmt.Errorf("write %s: table is nil", fileName)
	}
	if t.Index == "" {
		t = &table.Table{Index: DefaultIndexName, Columns: t.Columns, Rows: t.Rows}
	}

	partitions, groups := t.Partition(s.partitioner)
	if len(partitions) == 0 && m == ModeOverwrite {
		// header-only part keeps the schema readable after the dataset is replaced
		partitions = []string{""}
		groups = map[string]*table.Table{"": t}
	}

	var deleted int
	switch m {
	case ModeOverwrite:
		deleted, err = s.deletePrefix(ctx, folder)
	case ModeOverwritePartitions:
		for _, p := range partitions {
			n, derr := s.deletePrefix(ctx, partitionDir(folder, p))
			deleted += n
			if derr != nil {
				err = derr
				break
			}
		}
	}
	if err != nil {
		return fmt.Errorf("write %s (%s): %w", fileName, m, err)
	}

	for _, p := range partitions {
		data, err := groups[p].MarshalCSV()
		if err != nil {
			return fmt.Errorf("failed to encode partition %q of %s: %w", p, fileName, err)
		}
		key := partitionDir(folder, p) + s.newID() + ".csv"
		if err := s.blobs.Put(ctx, key, data); err != nil {
			return fmt.Errorf("write %s: %w", fileName, err)
		}
	}

	s.logger.Info().
		Str("dataset", folder).
		Str("mode", string(m)).
		Int("rows", t.Len()).
		Int("parts", len(partitions)).
		Int("deleted", deleted).
		Msg("Dataset written")
	return nil
}

func (s *Store) deletePrefix(ctx context.Context, prefix string) (int, error) {
	blobs, err := storage.ListAll(ctx, s.blobs, prefix)
	if err != nil {
		return 0, err
	}
	for i, b := range blobs {
		if err := s.blobs.Delete(ctx, b.Key); err != nil {
			return i, err
		}
	}
	return len(blobs), nil
}

// WriteRaw stores data verbatim as <prefix>/<fileName>/<objectName>.
func (s *Store) WriteRaw(ctx context.Context, fileName, objectName string, data []byte) error {
	folder, err := s.folder(fileName)
	if err != nil {
		return err
	}
	obj := strings.Trim(objectName, "/")
	if obj == "" || strings.Contains(obj, "/") || obj == "." || obj == ".." {
		return fmt.Errorf("%w: object %q", ErrInvalidName, objectName)
	}
	key := folder + obj
	if err := s.blobs.Put(ctx, key, data); err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}
	s.logger.Info().Str("key", key).Int("bytes", len(data)).Msg("Raw object written")
	return nil
}

// Read combines every .csv object under folderName into one table, in key
// order. An empty folder yields an empty table and no error.
func (s *Store) Read(ctx context.Context, folderName string) (*table.Table, error) {
	folder, err := s.folder(folderName)
	if err != nil {
		return nil, err
	}

	blobs, err := storage.ListAll(ctx, s.blobs, folder)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", folderName, err)
	}
	var keys []string
	for _, b := range blobs {
		if strings.HasSuffix(b.Key, ".csv") {
			keys = append(keys, b.Key)
		}
	}
	sort.Strings(keys)

	var parts []*table.Table
	for _, key := range keys {
		data, err := s.blobs.Get(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		part, err := table.ReadCSV(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", key, err)
		}
		if part.Index == "" {
			continue // zero-byte object
		}
		if len(parts) > 0 && !parts[0].SameSchema(part) {
			return nil, fmt.Errorf("%w: %s has columns %v, expected %v",
				ErrSchemaMismatch, key, part.Header(), parts[0].Header())
		}
		parts = append(parts, part)
	}

	if len(parts) == 0 {
		s.logger.Debug().Str("dataset", folder).Msg("Dataset empty")
		return &table.Table{}, nil
	}

	combined, err := table.Concat(parts...)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", folderName, err)
	}
	s.logger.Debug().
		Str("dataset", folder).
		Int("parts", len(parts)).
		Int("rows", combined.Len()).
		Msg("Dataset read")
	return combined, nil
}

var _ interfaces.DatasetStore = (*Store)(nil)
