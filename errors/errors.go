package errors

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Errors collects every problem found in one pass, i.e. while validating a rule or restoring transactions
type Errors []error

// ErrIf appends an error with failureMessage if the condition is true
// Returns the condition to allow for further conditional checks
func (e *Errors) ErrIf(condition bool, failureMessage string, formatArgs ...interface{}) bool {
	if condition {
		*e = append(*e, errors.Errorf(failureMessage, formatArgs...))
	}
	return condition
}

// AddErr appends err if it is not nil. Nested Errors are flattened
func (e *Errors) AddErr(err error) bool {
	if err == nil {
		return true
	}
	if errs, ok := err.(Errors); ok {
		*e = append(*e, errs...)
	} else {
		*e = append(*e, err)
	}
	return false
}

// Prefixf labels err with the formatted message. Each error in an Errors is labeled separately, so flattening keeps the label.
func Prefixf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	label := fmt.Sprintf(format, args...)
	errs, ok := err.(Errors)
	if !ok {
		return errors.Wrap(err, label)
	}
	labeled := make(Errors, 0, len(errs))
	for _, err := range errs {
		labeled = append(labeled, errors.Wrap(err, label))
	}
	return labeled.ErrOrNil()
}

// ErrOrNil returns e if an error is present, otherwise returns nil
func (e Errors) ErrOrNil() error {
	switch len(e) {
	case 0:
		return nil
	case 1:
		return e[0]
	default:
		return e
	}
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (e Errors) Unwrap() []error {
	return e
}

func (e Errors) Error() string {
	messages := make([]string, 0, len(e))
	for _, err := range e {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "\n")
}

// MarshalJSON renders each error as a problem object: {"Description": "..."}
func (e Errors) MarshalJSON() ([]byte, error) {
	problems := make([]interface{}, 0, len(e))
	for _, err := range e {
		if marshaler, ok := err.(json.Marshaler); ok {
			problems = append(problems, marshaler)
			continue
		}
		problems = append(problems, map[string]string{"Description": err.Error()})
	}
	return json.Marshal(problems)
}
