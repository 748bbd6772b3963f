package models

import "fmt"

// ThresholdDateComparisonType selects which side of a threshold date a
// reconciliation query reads.
type ThresholdDateComparisonType string

const (
	// AfterOrEqualThan selects records updated at or after the threshold.
	AfterOrEqualThan ThresholdDateComparisonType = "AFTER_OR_EQUAL_THAN"
	// BeforeThan selects records updated strictly before the threshold.
	BeforeThan ThresholdDateComparisonType = "BEFORE_THAN"
)

// Operator returns the SQL comparison operator applied to updated_at.
func (c ThresholdDateComparisonType) Operator() (string, error) {
	switch c {
	case AfterOrEqualThan:
		return ">=", nil
	case BeforeThan:
		return "<", nil
	default:
		return "", fmt.Errorf("unknown threshold comparison %q", string(c))
	}
}
