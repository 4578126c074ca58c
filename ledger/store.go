package ledger

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/alissonfar/newApp-sub001/plaindb"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	bucketName    = "transactions"
	bucketVersion = "1"
)

// Store reads and writes transactions in a plaindb bucket
type Store struct {
	bucket plaindb.Bucket
	newID  func() string
}

// NewStore loads the transactions bucket from db
func NewStore(db plaindb.DB) (*Store, error) {
	bucket, err := db.Bucket(bucketName, bucketVersion, &storeUpgrader{})
	return &Store{
		bucket: bucket,
		newID:  uuid.NewString,
	}, err
}

// FindAllForOwner returns every transaction owned by ownerID, sorted by date then ID
func (s *Store) FindAllForOwner(ctx context.Context, ownerID string) ([]Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var txns []Transaction
	var txn Transaction
	err := s.bucket.Iter(&txn, func(string) bool {
		if txn.OwnerID == ownerID {
			txns = append(txns, txn.Clone())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	Sort(txns)
	return txns, nil
}

// Get returns a copy of the transaction with 'id'
func (s *Store) Get(ctx context.Context, id string) (Transaction, bool, error) {
	if err := ctx.Err(); err != nil {
		return Transaction{}, false, err
	}
	var txn Transaction
	found, err := s.bucket.Get(id, &txn)
	if !found || err != nil {
		return Transaction{}, found, err
	}
	return txn.Clone(), true, nil
}

// Replace overwrites the transaction stored at 'id' with txn, creating it if it does not exist
func (s *Store) Replace(ctx context.Context, id string, txn Transaction) error {
	if txn.ID == "" {
		txn.ID = id
	}
	if txn.ID != id {
		return errors.Errorf("Transaction ID %q does not match replaced ID %q", txn.ID, id)
	}
	if err := txn.Validate(); err != nil {
		return err
	}
	return s.bucket.Put(ctx, id, txn.Clone())
}

// Add assigns a new ID to txn and stores it
func (s *Store) Add(ctx context.Context, txn Transaction) (Transaction, error) {
	txn.ID = s.newID()
	if txn.Status == "" {
		txn.Status = Active
	}
	if err := txn.Validate(); err != nil {
		return Transaction{}, err
	}
	return txn, s.bucket.Put(ctx, txn.ID, txn.Clone())
}

// Remove deletes the transaction with 'id'
func (s *Store) Remove(ctx context.Context, id string) error {
	var txn Transaction
	found, err := s.bucket.Get(id, &txn)
	if err != nil {
		return err
	}
	if !found {
		return errors.Wrap(ErrTransactionNotFound, id)
	}
	return s.bucket.Delete(ctx, id)
}

// Sort orders txns by date, then ID
func Sort(txns []Transaction) {
	sort.SliceStable(txns, func(a, b int) bool {
		if !txns[a].Date.Equal(txns[b].Date) {
			return txns[a].Date.Before(txns[b].Date)
		}
		return txns[a].ID < txns[b].ID
	})
}

type storeUpgrader struct{}

func (u *storeUpgrader) Parse(dataVersion, id string, data json.RawMessage) (interface{}, error) {
	switch dataVersion {
	case "1":
		var txn Transaction
		err := json.Unmarshal(data, &txn)
		return txn, err
	default:
		return nil, errors.Errorf("Unsupported version: %q", dataVersion)
	}
}

func (u *storeUpgrader) Upgrade(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	return dataVersion, data, nil
}
