package ledger

import (
	"time"

	sErrors "github.com/alissonfar/newApp-sub001/errors"
	"github.com/shopspring/decimal"
)

// TransactionType is the direction of money for a transaction
type TransactionType string

const (
	Expense    TransactionType = "expense"
	Receivable TransactionType = "receivable"
)

// TransactionTypes lists every valid TransactionType
var TransactionTypes = []TransactionType{Expense, Receivable}

// Valid returns true for known transaction types
func (t TransactionType) Valid() bool {
	return t == Expense || t == Receivable
}

// Status is the lifecycle state of a transaction
type Status string

const (
	Active   Status = "active"
	Reversed Status = "reversed"
)

// Statuses lists every valid Status
var Statuses = []Status{Active, Reversed}

// Valid returns true for known statuses
func (s Status) Valid() bool {
	return s == Active || s == Reversed
}

// Transaction is a single user-owned movement of money, split into payments per person
type Transaction struct {
	ID          string
	OwnerID     string
	Type        TransactionType
	Description string
	Amount      decimal.Decimal
	Date        time.Time
	Status      Status
	Payments    []Payment `json:",omitempty"`
}

// Clone returns a deep copy of t. The copy shares no maps or slices with t.
func (t Transaction) Clone() Transaction {
	clone := t
	if t.Payments != nil {
		clone.Payments = make([]Payment, len(t.Payments))
		for i, payment := range t.Payments {
			clone.Payments[i] = payment.Clone()
		}
	}
	return clone
}

// Validate checks the transaction for missing or unknown values, reporting every problem found
func (t Transaction) Validate() error {
	var errs sErrors.Errors
	errs.ErrIf(t.ID == "", "Transaction ID must not be empty")
	errs.ErrIf(t.OwnerID == "", "Transaction owner must not be empty")
	errs.ErrIf(!t.Type.Valid(), "Invalid transaction type: %q", t.Type)
	errs.ErrIf(!t.Status.Valid(), "Invalid transaction status: %q", t.Status)
	for _, payment := range t.Payments {
		errs.AddErr(payment.Validate())
	}
	if err := errs.ErrOrNil(); err != nil {
		return NewValidateError(t.ID, err)
	}
	return nil
}
