package export

import "fmt"

// ExportError reports a failure while writing or reading records.
type ExportError struct {
	// Format is the output format being written ("json", "csv", "table").
	Format string

	// Count is the number of records handled before the failure.
	Count int

	// Cause is the underlying error.
	Cause error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("%s export failed after %d records: %v", e.Format, e.Count, e.Cause)
}

func (e *ExportError) Unwrap() error {
	return e.Cause
}

// NewExportError creates a new ExportError.
func NewExportError(format string, count int, cause error) *ExportError {
	return &ExportError{Format: format, Count: count, Cause: cause}
}
