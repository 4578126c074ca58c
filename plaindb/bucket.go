package plaindb

import (
	"context"
	"encoding/json"
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/alissonfar/newApp-sub001/pipe"
	"github.com/pkg/errors"
)

// Bucket reads and writes records on a DB
type Bucket interface {
	// Iter iterates over all values, assigning each value to 'v', then calling fn with it's ID
	Iter(v interface{}, fn func(id string) (keepGoing bool)) error
	// Get reads the record with key 'id' into 'v'
	Get(id string, v interface{}) (found bool, err error)
	// Put writes the record 'v' with key 'id'. Joins the DB.Update scope carried by ctx, if any
	Put(ctx context.Context, id string, v interface{}) error
	// Delete removes the record with key 'id'. Joins the DB.Update scope carried by ctx, if any
	Delete(ctx context.Context, id string) error
}

type bucket struct {
	name string
	path string
	db   *database
	mu   sync.RWMutex

	version string
	data    map[string]interface{}
}

type unmarshalBucket struct {
	Version string
	Data    map[string]*json.RawMessage
}

type marshalBucket struct {
	Version string
	Data    map[string]interface{}
}

func (b *bucket) Iter(v interface{}, fn func(id string) (keepGoing bool)) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, value := range b.data {
		if err := assign(v, value); err != nil {
			return b.wrapErr(err)
		}
		if !fn(id) {
			return nil
		}
	}
	return nil
}

func (b *bucket) Get(id string, v interface{}) (bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	value, found := b.data[id]
	if !found {
		return false, nil
	}
	return found, b.wrapErr(assign(v, value))
}

func (b *bucket) Put(ctx context.Context, id string, v interface{}) error {
	return b.write(ctx, func() {
		b.data[id] = v
	})
}

func (b *bucket) Delete(ctx context.Context, id string) error {
	return b.write(ctx, func() {
		delete(b.data, id)
	})
}

// write applies mutate inside the caller's Update scope, or a new single-write scope
func (b *bucket) write(ctx context.Context, mutate func()) error {
	tx := transactionFrom(ctx, b.db)
	if tx == nil {
		return b.db.Update(ctx, func(ctx context.Context) error {
			return b.write(ctx, mutate)
		})
	}
	tx.stage(b)
	b.mu.Lock()
	mutate()
	b.mu.Unlock()
	return nil
}

func (b *bucket) wrapErr(err error) error {
	return errors.Wrap(err, "Bucket "+b.name)
}

func encodeBucket(w io.Writer, b *bucket) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	enc := json.NewEncoder(w)
	enc.SetIndent("", "    ")
	enc.SetEscapeHTML(false)
	return enc.Encode(marshalBucket{Version: b.version, Data: b.data})
}

// saveBucket replaces the bucket's file by renaming a fully written temp file over it
func saveBucket(b *bucket) error {
	var file *os.File
	err := pipe.Steps{}.
		Then("create temp file", func() (err error) {
			file, err = ioutil.TempFile(filepath.Dir(b.path), filepath.Base(b.path)+".*.tmp")
			return
		}).
		Then("encode records", func() error {
			err := encodeBucket(file, b)
			if closeErr := file.Close(); err == nil {
				err = closeErr
			}
			return err
		}).
		Then("replace bucket file", func() error {
			return os.Rename(file.Name(), b.path)
		}).
		Run()
	if err != nil && file != nil {
		os.Remove(file.Name())
	}
	return b.wrapErr(err)
}

// assign stores source in the value dest points to
func assign(dest interface{}, source interface{}) (err error) {
	target := reflect.ValueOf(dest)
	if !target.IsValid() || target.Kind() != reflect.Ptr || target.IsNil() {
		return errors.Errorf("Destination must be a non-nil pointer, got %T", dest)
	}
	target = target.Elem()
	value := reflect.ValueOf(source)
	if !value.IsValid() || !value.Type().AssignableTo(target.Type()) {
		return errors.Errorf("Record of type %T cannot be read into %T", source, dest)
	}
	defer func() {
		if v := recover(); v != nil {
			err = errors.Errorf("Failed to assign record: %v", v)
		}
	}()
	target.Set(value)
	return nil
}
