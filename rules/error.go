package rules

import (
	"encoding/json"

	sErrors "github.com/alissonfar/newApp-sub001/errors"
	"github.com/pkg/errors"
)

var (
	// ErrRuleNotFound is returned for unknown rule IDs
	ErrRuleNotFound = errors.New("Rule not found")
	// ErrNoExecutionToUndo is returned when undoing a rule without a recorded execution
	ErrNoExecutionToUndo = errors.New("No execution to undo")
)

// InvalidRuleError lists every problem found while validating a rule
type InvalidRuleError struct {
	Problems sErrors.Errors
}

func (e InvalidRuleError) Error() string {
	return "Invalid rule: " + e.Problems.Error()
}

func (e InvalidRuleError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"Description": "Invalid rule",
		"Problems":    e.Problems,
	})
}

// IsInvalidRule returns true if err was caused by an invalid rule
func IsInvalidRule(err error) bool {
	var invalid InvalidRuleError
	return errors.As(err, &invalid)
}
