package compare

// Kind classifies one discrepancy between the two sides.
type Kind string

const (
	KindValueDiff      Kind = "value_diff"
	KindMissingRow     Kind = "missing_row"
	KindExtraRow       Kind = "extra_row"
	KindRowCountDiff   Kind = "row_count_diff"
	KindExecutionError Kind = "execution_error"
)

// Mismatch is one discrepancy found by a comparison strategy. Values are
// rendered in canonical form so reports stay engine-neutral. Immutable once
// created; owned by the comparison result that contains it.
type Mismatch struct {
	Kind Kind `json:"kind"`

	// RowKey locates the row: the joined key values for keyed rowset
	// comparisons, or a positional "row N" marker otherwise. Empty for
	// single-row and table-level mismatches.
	RowKey string `json:"row_key,omitempty"`
	// Column is set for value_diff mismatches.
	Column string `json:"column,omitempty"`

	SourceValue string `json:"source_value,omitempty"`
	TargetValue string `json:"target_value,omitempty"`
	// Delta is the absolute numeric difference for numeric value_diffs.
	Delta string `json:"delta,omitempty"`

	// Message describes what went wrong for execution_error mismatches.
	Message string `json:"message,omitempty"`
}
