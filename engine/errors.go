package engine

import (
	"fmt"

	"github.com/pkg/errors"
)

// WriteFailure is a failed transaction write during execute or undo. The whole run is rolled back.
type WriteFailure struct {
	TransactionID string
	Err           error
}

func (w *WriteFailure) Error() string {
	return fmt.Sprintf("Failed to write transaction %q: %s", w.TransactionID, w.Err)
}

// Cause returns the store's error
func (w *WriteFailure) Cause() error {
	return w.Err
}

func (w *WriteFailure) Unwrap() error {
	return w.Err
}

// IsWriteFailure returns true if err contains a WriteFailure
func IsWriteFailure(err error) bool {
	var failure *WriteFailure
	return errors.As(err, &failure)
}
