package engine

//go:generate mockgen -source=stores.go -destination=stores_mock_test.go -package=engine

import (
	"context"

	"github.com/alissonfar/newApp-sub001/ledger"
	"github.com/alissonfar/newApp-sub001/rules"
)

// TransactionStore reads and replaces transactions. Implemented by ledger.Store
type TransactionStore interface {
	FindAllForOwner(ctx context.Context, ownerID string) ([]ledger.Transaction, error)
	Get(ctx context.Context, id string) (ledger.Transaction, bool, error)
	Replace(ctx context.Context, id string, txn ledger.Transaction) error
}

// RuleStore reads and saves rules. Implemented by rules.Store
type RuleStore interface {
	Get(ctx context.Context, id string) (rules.Rule, bool, error)
	Save(ctx context.Context, rule rules.Rule) error
}

// Transactor runs fn in a scope where store writes made with fn's ctx either all persist or are all discarded.
// Implemented by plaindb.DB
type Transactor interface {
	Update(ctx context.Context, fn func(ctx context.Context) error) error
}

type noTransaction struct{}

func (noTransaction) Update(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// NoTransaction runs fn directly. Failed executions are then only undone by the engine's own best-effort restore
var NoTransaction Transactor = noTransaction{}
