// Package querydef describes the validations the engine runs: named pairs of
// dialect-specific queries plus the comparison semantics to apply to their
// results. Dialect knowledge lives entirely in the query texts supplied here;
// the engine never generates or rewrites SQL.
package querydef

import (
	"github.com/cockroachdb/errors"
)

// ComparisonType selects which comparison strategy interprets the two result
// sets.
type ComparisonType string

const (
	// ComparisonAggregation compares a single aggregated row per side,
	// column by column, with numeric tolerance.
	ComparisonAggregation ComparisonType = "aggregation"
	// ComparisonRowset compares full result sets row by row, joined by key
	// columns when declared and positionally otherwise.
	ComparisonRowset ComparisonType = "rowset"
	// ComparisonCount compares a single count per side as an exact integer.
	ComparisonCount ComparisonType = "count"
)

// DefaultTolerance is the relative numeric tolerance applied when a
// definition does not set its own.
const DefaultTolerance = 0.01

// QueryDefinition is an immutable description of one validation.
type QueryDefinition struct {
	Name string         `yaml:"name"`
	Type ComparisonType `yaml:"comparison_type"`

	// Tolerance is the relative numeric tolerance. Nil means
	// DefaultTolerance; an explicit zero demands exact numeric equality.
	Tolerance *float64 `yaml:"tolerance,omitempty"`

	// Limit caps the number of rows compared per side. Only meaningful for
	// rowset comparisons.
	Limit int `yaml:"limit,omitempty"`

	// KeyColumns declares the logical key rowset comparisons join rows on.
	// Without a key the rowset strategy falls back to positional comparison,
	// which cannot detect reordered rows.
	KeyColumns []string `yaml:"key_columns,omitempty"`

	SourceQuery string `yaml:"source_query"`
	TargetQuery string `yaml:"target_query"`
}

// ToleranceOrDefault resolves the effective tolerance for this definition.
func (d *QueryDefinition) ToleranceOrDefault() float64 {
	if d.Tolerance == nil {
		return DefaultTolerance
	}
	return *d.Tolerance
}

// Validate rejects malformed definitions before anything is executed.
// Validation failures are programming/configuration errors, not data
// mismatches, so they surface as errors rather than comparison results.
func (d *QueryDefinition) Validate() error {
	if d.Name == "" {
		return errors.Newf("query definition must have a name")
	}
	switch d.Type {
	case ComparisonAggregation, ComparisonRowset, ComparisonCount:
	case "":
		return errors.Newf("%s: comparison_type must be set", d.Name)
	default:
		return errors.Newf("%s: unknown comparison_type %q", d.Name, d.Type)
	}
	if d.SourceQuery == "" {
		return errors.Newf("%s: source_query must not be empty", d.Name)
	}
	if d.TargetQuery == "" {
		return errors.Newf("%s: target_query must not be empty", d.Name)
	}
	if d.Tolerance != nil && *d.Tolerance < 0 {
		return errors.Newf("%s: tolerance must be >= 0, got %v", d.Name, *d.Tolerance)
	}
	if d.Limit < 0 {
		return errors.Newf("%s: limit must be >= 0, got %d", d.Name, d.Limit)
	}
	if d.Type != ComparisonRowset {
		if d.Limit != 0 {
			return errors.Newf("%s: limit is only valid for rowset comparisons", d.Name)
		}
		if len(d.KeyColumns) > 0 {
			return errors.Newf("%s: key_columns are only valid for rowset comparisons", d.Name)
		}
	}
	return nil
}
