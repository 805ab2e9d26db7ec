package conformance

import (
	"errors"
	"fmt"
	"strings"
)

// ErrConformance matches every *ConformanceError via errors.Is.
var ErrConformance = errors.New("conformance violation")

// RuleID tags a conformance rule.
type RuleID string

const (
	RuleStatusPrefix     RuleID = "R1"
	RuleColumnParity     RuleID = "R2"
	RuleFallbackLiterals RuleID = "R3"
	RuleExplicitColumns  RuleID = "R4"
	RuleFixedPrincipal   RuleID = "R5"
)

// Violation is one unmet rule.
type Violation struct {
	Rule    RuleID
	Field   string // offending column or field
	Message string
}

// String formats the violation for humans.
func (v Violation) String() string {
	if v.Field == "" {
		return fmt.Sprintf("[%s] %s", v.Rule, v.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", v.Rule, v.Field, v.Message)
}

// ConformanceError carries every violation found in one pass.
type ConformanceError struct {
	Violations []Violation
}

// Error implements the error interface.
func (e *ConformanceError) Error() string {
	if len(e.Violations) == 1 {
		return "conformance violation: " + e.Violations[0].String()
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d conformance violations:\n", len(e.Violations)))
	for i, v := range e.Violations {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, v.String()))
	}
	return sb.String()
}

// Is reports whether target is ErrConformance.
func (e *ConformanceError) Is(target error) bool {
	return target == ErrConformance
}

// Rules returns the distinct rule identifiers violated, in report order.
func (e *ConformanceError) Rules() []RuleID {
	var ids []RuleID
	seen := make(map[RuleID]bool)
	for _, v := range e.Violations {
		if !seen[v.Rule] {
			seen[v.Rule] = true
			ids = append(ids, v.Rule)
		}
	}
	return ids
}
