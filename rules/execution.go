package rules

import (
	"time"

	"github.com/alissonfar/newApp-sub001/ledger"
)

// Snapshot is a transaction's state captured just before a rule execution changed it
type Snapshot struct {
	TransactionID string
	Before        ledger.Transaction
}

// Execution records the transactions changed by one rule execution, so the change can be undone
type Execution struct {
	ID        string
	RuleID    string
	Timestamp time.Time
	Entries   []Snapshot
}

// AffectedIDs returns the changed transaction IDs, in the order they were captured
func (e Execution) AffectedIDs() []string {
	ids := make([]string, 0, len(e.Entries))
	for _, entry := range e.Entries {
		ids = append(ids, entry.TransactionID)
	}
	return ids
}

// Clone returns a copy of e sharing nothing with the original snapshots
func (e Execution) Clone() Execution {
	if e.Entries != nil {
		entries := make([]Snapshot, len(e.Entries))
		for i, entry := range e.Entries {
			entries[i] = Snapshot{
				TransactionID: entry.TransactionID,
				Before:        entry.Before.Clone(),
			}
		}
		e.Entries = entries
	}
	return e
}
