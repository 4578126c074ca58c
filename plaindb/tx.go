package plaindb

import (
	"context"
	"sync"
)

type txKey struct{}

// transaction tracks the buckets written during one DB.Update scope and their data before the first write
type transaction struct {
	db *database

	mu        sync.Mutex
	order     []*bucket
	snapshots map[*bucket]map[string]interface{}
}

func newTransaction(db *database) *transaction {
	return &transaction{
		db:        db,
		snapshots: make(map[*bucket]map[string]interface{}),
	}
}

func withTransaction(ctx context.Context, tx *transaction) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

// transactionFrom returns the Update scope in ctx, only if it belongs to db
func transactionFrom(ctx context.Context, db *database) *transaction {
	tx, ok := ctx.Value(txKey{}).(*transaction)
	if !ok || tx.db != db {
		return nil
	}
	return tx
}

// stage records the bucket's data before its first write in this scope
func (tx *transaction) stage(b *bucket) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if _, staged := tx.snapshots[b]; staged {
		return
	}
	b.mu.RLock()
	snapshot := make(map[string]interface{}, len(b.data))
	for id, value := range b.data {
		snapshot[id] = value
	}
	b.mu.RUnlock()
	tx.snapshots[b] = snapshot
	tx.order = append(tx.order, b)
}

func (tx *transaction) touched() []*bucket {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return append([]*bucket(nil), tx.order...)
}

func (tx *transaction) rollback() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for b, snapshot := range tx.snapshots {
		b.mu.Lock()
		b.data = snapshot
		b.mu.Unlock()
	}
}

func (tx *transaction) commit() error {
	buckets := tx.touched()
	if len(buckets) == 0 {
		return nil
	}
	return tx.db.save(buckets...)
}
