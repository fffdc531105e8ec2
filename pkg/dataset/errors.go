package dataset

import (
	"fmt"
	"strings"
)

// UnsupportedExtensionError is returned when a file extension or output
// format has no reader or writer.
type UnsupportedExtensionError struct {
	Extension string
}

func (e *UnsupportedExtensionError) Error() string {
	return fmt.Sprintf("unsupported file extension or format %q", e.Extension)
}

// MultipleOrNoPayloadError is returned when an archive does not hold exactly
// one file of the expected kind.
type MultipleOrNoPayloadError struct {
	Extension string
	Matches   []string
}

func (e *MultipleOrNoPayloadError) Error() string {
	if len(e.Matches) == 0 {
		return fmt.Sprintf("archive contains no %s file", e.Extension)
	}
	return fmt.Sprintf("archive contains %d %s files, expected exactly one: %s",
		len(e.Matches), e.Extension, strings.Join(e.Matches, ", "))
}

// RowCountMismatchError is returned when extracted attribute rows cannot be
// paired one to one with the features of the reference layer.
type RowCountMismatchError struct {
	Rows     int
	Features int
}

func (e *RowCountMismatchError) Error() string {
	return fmt.Sprintf("attribute row count %d does not match feature count %d", e.Rows, e.Features)
}
