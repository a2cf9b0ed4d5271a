package queryexec

import (
	"fmt"
	"time"

	"github.com/lib/pq/oid"
)

// RawResultSet is the literal output of one query: ordered rows of
// dialect-native values plus enough type information for the normalizer to
// coerce them. It is owned by the executor until handed to the normalizer and
// never mutated afterwards.
type RawResultSet struct {
	Columns []string

	// OIDs carries per-column type OIDs for postgres-family results.
	OIDs []oid.Oid
	// TypeNames carries per-column driver type names for mysql results.
	TypeNames []string

	Rows [][]any
}

// ExecutionFailure captures one side failing to run: dialect error, timeout
// or connectivity loss. It is a value, not a raised error, so the rest of the
// pipeline can still report partial information for the other side.
type ExecutionFailure struct {
	Dialect string
	Message string
}

func (f ExecutionFailure) String() string {
	return fmt.Sprintf("%s: %s", f.Dialect, f.Message)
}

// SideResult is the outcome of one side of a pair execution. Exactly one of
// Raw and Failure is set.
type SideResult struct {
	Raw     *RawResultSet
	Failure *ExecutionFailure

	// Duration is the wall-clock time the query took, populated whether the
	// side succeeded or failed.
	Duration time.Duration
}

func (r SideResult) Failed() bool {
	return r.Failure != nil
}
