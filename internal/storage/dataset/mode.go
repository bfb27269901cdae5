package dataset

import (
	"errors"
	"fmt"
)

// Mode selects how Write treats objects already under the target prefix.
type Mode string

const (
	// ModeAppend adds new part objects and leaves existing ones alone.
	ModeAppend Mode = "append"
	// ModeOverwrite removes every object under the dataset before writing.
	ModeOverwrite Mode = "overwrite"
	// ModeOverwritePartitions removes only the partitions present in the incoming table.
	ModeOverwritePartitions Mode = "overwrite_partitions"
)

// ErrInvalidMode is returned for a write mode outside Modes().
var ErrInvalidMode = errors.New("invalid write mode")

// Modes lists the accepted write modes.
func Modes() []Mode {
	return []Mode{ModeAppend, ModeOverwrite, ModeOverwritePartitions}
}

// ParseMode validates s. Matching is exact.
func ParseMode(s string) (Mode, error) {
	m := Mode(s)
	for _, valid := range Modes() {
		if m == valid {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q (expected append, overwrite or overwrite_partitions)", ErrInvalidMode, s)
}
