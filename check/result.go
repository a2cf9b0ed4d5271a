package check

import "github.com/qvet/qvet/compare"

// Status is the verdict of one validation.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusRunning Status = "RUNNING"
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusWarning Status = "WARNING"
	StatusErrored Status = "ERRORED"
)

// terminal reports whether the status is an end state.
func (s Status) terminal() bool {
	switch s {
	case StatusPassed, StatusFailed, StatusWarning, StatusErrored:
		return true
	}
	return false
}

// Result is the terminal artifact of one validation. Immutable after
// creation. Mismatches and Explain are always populated, whatever the
// status, so reporting collaborators never see nils.
type Result struct {
	QueryName  string             `json:"query_name"`
	Status     Status             `json:"status"`
	Mismatches []compare.Mismatch `json:"mismatches"`
	Explain    Explain            `json:"explain"`

	SourceExecMillis int64 `json:"source_execution_ms"`
	TargetExecMillis int64 `json:"target_execution_ms"`
}

// Explain is the structured interpretation of a comparison's outcome. It is
// built even when the status is PASSED so that reporting collaborators always
// have a performance and health signal, not only a failure log.
type Explain struct {
	SourceRows      int      `json:"source_rows"`
	TargetRows      int      `json:"target_rows"`
	DifferingRows   int      `json:"differing_rows"`
	AffectedColumns []string `json:"affected_columns"`
	Summary         string   `json:"summary"`

	SourceExecMillis int64 `json:"source_execution_ms"`
	TargetExecMillis int64 `json:"target_execution_ms"`
}
