package rules

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/alissonfar/newApp-sub001/plaindb"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	bucketName    = "rules"
	bucketVersion = "1"
)

// Store reads and writes rules in a plaindb bucket
type Store struct {
	db     plaindb.DB
	bucket plaindb.Bucket
	now    func() time.Time
	newID  func() string
}

// NewStore loads the rules bucket from db
func NewStore(db plaindb.DB) (*Store, error) {
	bucket, err := db.Bucket(bucketName, bucketVersion, &storeUpgrader{})
	return &Store{
		db:     db,
		bucket: bucket,
		now:    time.Now,
		newID:  uuid.NewString,
	}, err
}

// Get returns a copy of the rule with 'id'
func (s *Store) Get(ctx context.Context, id string) (Rule, bool, error) {
	if err := ctx.Err(); err != nil {
		return Rule{}, false, err
	}
	var rule Rule
	found, err := s.bucket.Get(id, &rule)
	if !found || err != nil {
		return Rule{}, found, err
	}
	return rule.Clone(), true, nil
}

// Save validates and writes rule as-is, including its LastExecution
func (s *Store) Save(ctx context.Context, rule Rule) error {
	if rule.ID == "" {
		return errors.New("Rule ID must not be empty")
	}
	rule = rule.Clone()
	if err := rule.Validate(); err != nil {
		return err
	}
	return s.bucket.Put(ctx, rule.ID, rule)
}

// List returns every rule owned by ownerID, oldest first
func (s *Store) List(ctx context.Context, ownerID string) ([]Rule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var rules []Rule
	var rule Rule
	err := s.bucket.Iter(&rule, func(string) bool {
		if rule.OwnerID == ownerID {
			rules = append(rules, rule.Clone())
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(rules, func(a, b int) bool {
		if !rules[a].CreatedAt.Equal(rules[b].CreatedAt) {
			return rules[a].CreatedAt.Before(rules[b].CreatedAt)
		}
		return rules[a].ID < rules[b].ID
	})
	return rules, nil
}

// Add validates rule, assigns it a new ID, and stores it. Any LastExecution is discarded.
func (s *Store) Add(ctx context.Context, rule Rule) (Rule, error) {
	rule = rule.Clone()
	if err := rule.Validate(); err != nil {
		return Rule{}, err
	}
	now := s.now().UTC()
	rule.ID = s.newID()
	rule.LastExecution = nil
	rule.CreatedAt = now
	rule.UpdatedAt = now
	return rule, s.bucket.Put(ctx, rule.ID, rule.Clone())
}

// Update replaces the user-editable parts of the rule with 'id'.
// ID, owner, creation time, and LastExecution are kept from the stored rule.
func (s *Store) Update(ctx context.Context, id string, rule Rule) (Rule, error) {
	var updated Rule
	err := s.db.Update(ctx, func(ctx context.Context) error {
		existing, found, err := s.Get(ctx, id)
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrap(ErrRuleNotFound, id)
		}
		rule = rule.Clone()
		rule.ID = existing.ID
		rule.OwnerID = existing.OwnerID
		rule.CreatedAt = existing.CreatedAt
		rule.LastExecution = existing.LastExecution
		rule.UpdatedAt = s.now().UTC()
		if err := rule.Validate(); err != nil {
			return err
		}
		updated = rule
		return s.bucket.Put(ctx, id, rule.Clone())
	})
	return updated, err
}

// Remove deletes the rule with 'id'
func (s *Store) Remove(ctx context.Context, id string) error {
	return s.db.Update(ctx, func(ctx context.Context) error {
		var rule Rule
		found, err := s.bucket.Get(id, &rule)
		if err != nil {
			return err
		}
		if !found {
			return errors.Wrap(ErrRuleNotFound, id)
		}
		return s.bucket.Delete(ctx, id)
	})
}

type storeUpgrader struct{}

func (u *storeUpgrader) Parse(dataVersion, id string, data json.RawMessage) (interface{}, error) {
	switch dataVersion {
	case "1":
		var rule Rule
		err := json.Unmarshal(data, &rule)
		return rule, err
	default:
		return nil, errors.Errorf("Unsupported version: %q", dataVersion)
	}
}

func (u *storeUpgrader) Upgrade(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	return dataVersion, data, nil
}
