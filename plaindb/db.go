package plaindb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	// MaxUpgradeAttempts is the maximum number of times a data record will attempt to be upgraded successively.
	// Used to prevent version loops. i.e. upgrading to v3 but goes v1 -> v2 -> v1 infinitely
	MaxUpgradeAttempts = 1000
)

// Upgrader upgrades data to the given version
type Upgrader interface {
	// Parse parses the original JSON record for the given version
	Parse(dataVersion, id string, data json.RawMessage) (interface{}, error)
	// Upgrade upgrades 'data' to 'dataVersion'. May be run multiple times to incrementally upgrade the data.
	Upgrade(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error)
}

// DB creates buckets that can read or write JSON data
type DB interface {
	io.Closer
	// Bucket returns a bucket with 'name.json' on disk, and auto-upgraded to 'version'
	Bucket(name, version string, upgrader Upgrader) (Bucket, error)
	// Update runs fn in a transactional scope. Bucket writes made with the ctx passed to fn are
	// kept in memory until fn returns, then saved together. If fn fails, every touched bucket is restored.
	// Nested calls with an Update ctx join the enclosing scope.
	Update(ctx context.Context, fn func(ctx context.Context) error) error
}

type database struct {
	path string

	mu      sync.Mutex // guards buckets
	buckets map[string]*bucket

	writeMu  sync.Mutex // serializes Update scopes, including single writes
	readFile func(path string) ([]byte, error)
	save     func(buckets ...*bucket) error
}

// Open creates the database directory at 'path' if necessary
func Open(path string, opts ...DBOpt) (DB, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(path, 0750); err != nil {
		return nil, err
	}
	db := &database{
		path:     path,
		buckets:  make(map[string]*bucket),
		readFile: ioutil.ReadFile,
		save:     saveBuckets,
	}
	for _, opt := range opts {
		if err := opt.do(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

func (db *database) Bucket(name, version string, upgrader Upgrader) (Bucket, error) {
	if upgrader == nil {
		return nil, errors.New("Upgrader must not be nil")
	}
	db.mu.Lock()
	defer db.mu.Unlock()
	if b, exists := db.buckets[name]; exists {
		return b, nil
	}

	path := filepath.Join(db.path, name+".json")
	dataBytes, err := db.readFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		dataBytes = []byte(`{}`)
	}

	var bucketBytes unmarshalBucket
	if err := json.Unmarshal(dataBytes, &bucketBytes); err != nil {
		return nil, errors.Wrapf(err, "Parse bucket %q", name)
	}
	if bucketBytes.Version == "" {
		bucketBytes.Version = version
	}

	data := make(map[string]interface{}, len(bucketBytes.Data))
	for id, bytes := range bucketBytes.Data {
		var err error
		data[id], err = upgrader.Parse(bucketBytes.Version, id, *bytes)
		if err != nil {
			return nil, err
		}
	}

	if bucketBytes.Version != version {
		for id := range data {
			if data[id], err = upgradeRecord(upgrader, name, id, bucketBytes.Version, version, data[id]); err != nil {
				return nil, err
			}
		}
	}

	b := &bucket{
		name:    name,
		path:    path,
		db:      db,
		version: version,
		data:    data,
	}

	db.buckets[name] = b
	return b, nil
}

func (db *database) Update(ctx context.Context, fn func(ctx context.Context) error) (returnErr error) {
	if tx := transactionFrom(ctx, db); tx != nil {
		return fn(ctx)
	}

	db.writeMu.Lock()
	defer db.writeMu.Unlock()

	tx := newTransaction(db)
	defer func() {
		if v := recover(); v != nil {
			tx.rollback()
			panic(v)
		}
	}()

	if err := fn(withTransaction(ctx, tx)); err != nil {
		tx.rollback()
		return err
	}
	if err := tx.commit(); err != nil {
		tx.rollback()
		// files may hold part of the scope's writes, bring them back in line with memory
		if restoreErr := db.save(tx.touched()...); restoreErr != nil {
			return errors.Wrapf(err, "Failed to restore buckets after save failure: %s", restoreErr)
		}
		return err
	}
	return nil
}

// Close locks all buckets to prepare for safe shutdown. Use after close has been called is not defined.
func (db *database) Close() error {
	if db == nil {
		return nil
	}
	db.writeMu.Lock()
	db.mu.Lock()
	for _, b := range db.buckets {
		b.mu.Lock()
	}
	return nil
}

// upgradeRecord runs upgrader until the record reaches version 'to'
func upgradeRecord(upgrader Upgrader, bucketName, id, from, to string, record interface{}) (interface{}, error) {
	current := from
	for attempt := 0; current != to; attempt++ {
		if attempt >= MaxUpgradeAttempts {
			return nil, errors.Errorf("Too many upgrade attempts for %q record %q: stuck at version %q, want %q", bucketName, id, current, to)
		}
		next, upgraded, err := upgrader.Upgrade(current, id, record)
		if err != nil {
			return nil, err
		}
		if next == current {
			return nil, errors.Errorf("Could not upgrade %q record %q from version %q to %q", bucketName, id, current, to)
		}
		current, record = next, upgraded
	}
	return record, nil
}

func saveBuckets(buckets ...*bucket) error {
	for _, b := range buckets {
		if err := saveBucket(b); err != nil {
			return err
		}
	}
	return nil
}

func bucketNames(buckets []*bucket) string {
	names := make([]string, 0, len(buckets))
	for _, b := range buckets {
		names = append(names, b.name)
	}
	return strings.Join(names, ", ")
}

// MockDB is a DB with additional mocking utilities
type MockDB interface {
	DB
	Dump(Bucket) string
}

type mockDatabase struct {
	*database
	MockConfig
}

// MockConfig contains stubs for a full MockDB
type MockConfig struct {
	FileReader func(path string) ([]byte, error)
	Saver      func(Bucket) error
}

// NewMockDB creates a new DB without a backing file store, to be used in tests
func NewMockDB(conf MockConfig) MockDB {
	if conf.FileReader == nil {
		conf.FileReader = func(string) ([]byte, error) { return nil, nil }
	}
	if conf.Saver == nil {
		conf.Saver = func(Bucket) error { return nil }
	}
	return &mockDatabase{
		database: &database{
			path:     "mock",
			buckets:  map[string]*bucket{},
			readFile: conf.FileReader,
			save: func(buckets ...*bucket) error {
				for _, b := range buckets {
					if err := conf.Saver(b); err != nil {
						return err
					}
				}
				return nil
			},
		},
		MockConfig: conf,
	}
}

func (db *mockDatabase) Dump(b Bucket) string {
	bucketStruct, ok := b.(*bucket)
	if !ok {
		panic(fmt.Sprintf("Invalid bucket struct for MockDB.Dump: %T", b))
	}
	if filepath.Dir(bucketStruct.path) != db.path {
		panic("Invalid bucket for MockDB.Dump: Bucket was not created by MockDB")
	}
	var buf bytes.Buffer
	if err := encodeBucket(&buf, bucketStruct); err != nil {
		panic(err)
	}
	return buf.String()
}
