// Package recerror defines the error taxonomy for the reconciliation
// pipeline. Row-level problems are reported as warnings by the loaders and
// never reach these types; everything here aborts the run.
package recerror

import (
	"fmt"
	"strings"
)

// ConfigError reports a missing configuration file or a configured source
// column that is absent from the bank spreadsheet.
type ConfigError struct {
	Path             string
	MissingColumns   []string
	AvailableColumns []string
	Msg              string
}

func (e *ConfigError) Error() string {
	if len(e.MissingColumns) > 0 {
		return fmt.Sprintf("missing columns in bank statement: [%s] (available: [%s])",
			strings.Join(e.MissingColumns, ", "), strings.Join(e.AvailableColumns, ", "))
	}
	if e.Path != "" {
		return fmt.Sprintf("configuration file not found: %s (%s)", e.Path, e.Msg)
	}
	return e.Msg
}

// SourceNotFoundError reports an invalid bank statement path.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("bank statement not found: %s", e.Path)
}

func (e *SourceNotFoundError) Unwrap() error {
	return e.Err
}

// PersistenceError reports a failed database operation. The enclosing
// transaction has been rolled back by the time this is returned.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}
