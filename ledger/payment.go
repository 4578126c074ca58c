package ledger

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Payment is one person's share of a transaction
type Payment struct {
	Person string
	Amount decimal.Decimal
	Tags   Tags `json:",omitempty"`
}

// Clone returns a copy of p with its own tags
func (p Payment) Clone() Payment {
	p.Tags = p.Tags.Clone()
	return p
}

// Validate checks the person and tags
func (p Payment) Validate() error {
	if strings.TrimSpace(p.Person) == "" {
		return errors.New("Payment person must not be empty")
	}
	return errors.Wrapf(p.Tags.Validate(), "Payment for %q", p.Person)
}
