package entity

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyMapping is returned when a rewrite runs before any mapping was ingested.
var ErrEmptyMapping = errors.New("master mapping is empty, upload a mapping file first")

// SchemaError reports required mapping columns that are absent from an upload.
type SchemaError struct {
	Required []string
	Missing  []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("mapping file must contain columns: %s (missing %s)", quoteAll(e.Required), quoteAll(e.Missing))
}

// MissingColumnError reports that the lookup column is absent from a data file.
type MissingColumnError struct {
	Column string
}

func (e *MissingColumnError) Error() string {
	return fmt.Sprintf("data file must contain column '%s'", e.Column)
}

func quoteAll(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = "'" + c + "'"
	}
	return strings.Join(quoted, ", ")
}
