package check

import (
	"github.com/cockroachdb/errors"
	"github.com/qvet/qvet/compare"
)

// verdict walks a single validation through its lifecycle:
// PENDING -> RUNNING -> one of {PASSED, FAILED, WARNING, ERRORED}.
// Terminal states do not transition again.
type verdict struct {
	status Status
}

func newVerdict() *verdict {
	return &verdict{status: StatusPending}
}

func (v *verdict) start() error {
	if v.status != StatusPending {
		return errors.Newf("cannot start verdict in state %s", v.status)
	}
	v.status = StatusRunning
	return nil
}

func (v *verdict) finish(s Status) error {
	if v.status != StatusRunning {
		return errors.Newf("cannot finish verdict in state %s", v.status)
	}
	if !s.terminal() {
		return errors.Newf("%s is not a terminal state", s)
	}
	v.status = s
	return nil
}

// WarningPolicy decides whether a set of mismatches is tolerable enough to
// downgrade FAILED to WARNING. It is consulted only when mismatches exist
// and both sides executed successfully.
type WarningPolicy func(mismatches []compare.Mismatch, sourceRows, targetRows int) bool

// RowDriftWarningPolicy downgrades to WARNING when every mismatch is a
// missing or extra row and the drift stays at or below maxRatio of the
// source row count. Value differences always fail.
func RowDriftWarningPolicy(maxRatio float64) WarningPolicy {
	return func(mismatches []compare.Mismatch, sourceRows, targetRows int) bool {
		if sourceRows == 0 {
			return false
		}
		for _, m := range mismatches {
			if m.Kind != compare.KindMissingRow && m.Kind != compare.KindExtraRow {
				return false
			}
		}
		return float64(len(mismatches))/float64(sourceRows) <= maxRatio
	}
}

// decide maps the comparison outcome onto a terminal status.
func decide(
	mismatches []compare.Mismatch, policy WarningPolicy, sourceRows, targetRows int,
) Status {
	if len(mismatches) == 0 {
		return StatusPassed
	}
	if policy != nil && policy(mismatches, sourceRows, targetRows) {
		return StatusWarning
	}
	return StatusFailed
}
