package ledger

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTransactionNotFound is returned when a transaction ID does not exist
var ErrTransactionNotFound = errors.New("Transaction not found")

// Error is a validation failure for a single transaction
type Error struct {
	TransactionID string
	cause         error
}

// NewValidateError wraps cause for the transaction 'id'. Returns nil if cause is nil
func NewValidateError(id string, cause error) error {
	if cause == nil {
		return nil
	}
	return Error{TransactionID: id, cause: cause}
}

func (e Error) Error() string {
	return fmt.Sprintf("Invalid transaction %q: %s", e.TransactionID, e.cause)
}

// Cause returns the underlying validation problems
func (e Error) Cause() error {
	return e.cause
}

// Unwrap exposes the underlying validation problems to errors.Is and errors.As
func (e Error) Unwrap() error {
	return e.cause
}

// IsValidationError returns true if err was caused by an invalid transaction
func IsValidationError(err error) bool {
	var validateErr Error
	return errors.As(err, &validateErr)
}
