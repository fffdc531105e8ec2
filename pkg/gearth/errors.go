package gearth

import (
	"errors"
	"fmt"
)

var errNoRoot = errors.New("document has no root element")

// ErrNoStructuredRows is reported when a document with features carries no
// SchemaData records at all.
var ErrNoStructuredRows = &InvalidValueError{Field: "SchemaData", Value: "no records found"}

// MarkupParseError wraps a failure of a markup backend.
type MarkupParseError struct {
	Backend string
	Err     error
}

func (e *MarkupParseError) Error() string {
	return fmt.Sprintf("failed to parse %s markup: %v", e.Backend, e.Err)
}

func (e *MarkupParseError) Unwrap() error { return e.Err }

// TableIndexError is returned when a description holds no table to select.
type TableIndexError struct {
	Feature int
	Tables  int
}

func (e *TableIndexError) Error() string {
	return fmt.Sprintf("feature %d: description contains %d tables, no table to select", e.Feature, e.Tables)
}

// InvalidValueError is returned when extracted content cannot form a valid
// attribute table.
type InvalidValueError struct {
	Field string
	Value string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Value)
}

// Recoverable reports whether err may be answered by trying the other
// extraction strategy.
func Recoverable(err error) bool {
	var (
		parseErr *MarkupParseError
		indexErr *TableIndexError
		valueErr *InvalidValueError
	)
	return errors.As(err, &parseErr) || errors.As(err, &indexErr) || errors.As(err, &valueErr)
}
