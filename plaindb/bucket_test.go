package plaindb

import (
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var bgCtx = context.Background()

func intPtr(i int) *int {
	return &i
}

func strPtr(s string) *string {
	return &s
}

// mockBucket returns a bucket on a MockDB, recording saved bucket names in 'saved'
func mockBucket(t *testing.T, data map[string]interface{}, saved *[]string) *bucket {
	db := NewMockDB(MockConfig{
		FileReader: func(string) ([]byte, error) { return []byte(`{}`), nil },
		Saver: func(b Bucket) error {
			if saved != nil {
				*saved = append(*saved, b.(*bucket).name)
			}
			return nil
		},
	})
	b, err := db.Bucket("transactions", "1", &mockUpgrader{})
	require.NoError(t, err)
	for id, value := range data {
		b.(*bucket).data[id] = value
	}
	return b.(*bucket)
}

func TestAssign(t *testing.T) {
	for _, tc := range []interface{}{
		10,
		"some string",
		struct{ A string }{A: "hi"},
		&struct{ A string }{A: "hi"},
		struct {
			A *string
			B []string
		}{A: strPtr("hi"), B: []string{"hi", "there!"}},
	} {
		srcCopy := tc
		var dest interface{}
		assert.NoError(t, assign(&dest, tc))
		assert.Equal(t, tc, dest)
		assert.Equal(t, srcCopy, tc, "Source value should remain unaffected")
	}
}

func TestAssignErrors(t *testing.T) {
	for _, tc := range []struct {
		description  string
		src, dest    interface{}
		expectedDest interface{}
		expectedErr  string
	}{
		{
			description:  "happy path",
			src:          10,
			dest:         new(int),
			expectedDest: intPtr(10),
		},
		{
			description: "nil",
			src:         10,
			dest:        nil,
			expectedErr: "Destination must be a non-nil pointer, got <nil>",
		},
		{
			description: "typed nil",
			src:         10,
			dest:        (*int)(nil),
			expectedErr: "Destination must be a non-nil pointer, got *int",
		},
		{
			description: "incompatible types",
			src:         10,
			dest:        new(string),
			expectedErr: "Record of type int cannot be read into *string",
		},
		{
			description: "not a pointer",
			src:         10,
			dest:        "lol not a pointer",
			expectedErr: "Destination must be a non-nil pointer, got string",
		},
	} {
		t.Run(tc.description, func(t *testing.T) {
			err := assign(tc.dest, tc.src)
			if tc.expectedErr != "" {
				if assert.Error(t, err) {
					assert.Equal(t, tc.expectedErr, err.Error())
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedDest, tc.dest)
		})
	}
}

func TestBucketPutSave(t *testing.T) {
	tmpDir := tempDBDir(t)
	db, err := Open(tmpDir)
	require.NoError(t, err)
	b, err := db.Bucket("transactions", "1", &mockUpgrader{})
	require.NoError(t, err)
	b.(*bucket).data["a"] = "some string"
	b.(*bucket).data["b"] = 1

	require.NoError(t, b.Put(bgCtx, "c", true))

	data, err := ioutil.ReadFile(filepath.Join(tmpDir, "transactions.json"))
	require.NoError(t, err)
	assert.Equal(t, strings.TrimSpace(`
{
    "Version": "1",
    "Data": {
        "a": "some string",
        "b": 1,
        "c": true
    }
}
`)+"\n", string(data))
}

func TestBucketGet(t *testing.T) {
	b := mockBucket(t, map[string]interface{}{
		"a": "some string",
	}, nil)

	var value string

	found, err := b.Get("b", &value)
	assert.False(t, found)
	assert.NoError(t, err)

	found, err = b.Get("a", &value)
	assert.True(t, found)
	assert.NoError(t, err)
	assert.Equal(t, "some string", value)
}

func TestBucketPut(t *testing.T) {
	var saved []string
	b := mockBucket(t, map[string]interface{}{
		"a": "b",
		"c": 1,
	}, &saved)

	err := b.Put(bgCtx, "some ID", "some value")
	require.NoError(t, err)
	assert.Equal(t, []string{"transactions"}, saved)

	var value string
	found, err := b.Get("some ID", &value)
	assert.True(t, found)
	assert.NoError(t, err)
	assert.Equal(t, "some value", value)
}

func TestBucketDelete(t *testing.T) {
	var saved []string
	b := mockBucket(t, map[string]interface{}{
		"a": "b",
	}, &saved)

	require.NoError(t, b.Delete(bgCtx, "a"))
	assert.Equal(t, []string{"transactions"}, saved)
	var value string
	found, err := b.Get("a", &value)
	assert.NoError(t, err)
	assert.False(t, found)
}

func TestBucketIter(t *testing.T) {
	m := map[string]interface{}{
		"a": "some string",
		"b": true,
		"c": struct{ C string }{C: "some C"},
	}

	b := mockBucket(t, m, nil)

	t.Run("all records", func(t *testing.T) {
		var value interface{}
		times := 0
		err := b.Iter(&value, func(id string) bool {
			assert.Equal(t, m[id], value)
			times++
			return true
		})
		require.NoError(t, err)
		assert.Equal(t, len(m), times)
	})

	t.Run("2 records", func(t *testing.T) {
		var value interface{}
		times := 0
		err := b.Iter(&value, func(id string) bool {
			times++
			return times < 2
		})
		require.NoError(t, err)
		assert.Equal(t, 2, times)
	})

	t.Run("invalid destination", func(t *testing.T) {
		var value bool
		err := b.Iter(&value, func(id string) bool {
			return true
		})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), "Bucket transactions: ")
		}
	})
}

func TestSaveBucketFailure(t *testing.T) {
	tmpDir := tempDBDir(t)
	b := &bucket{name: "rules", path: filepath.Join(tmpDir, "missing", "rules.json"), data: map[string]interface{}{}}
	err := saveBucket(b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bucket rules: Failed to create temp file")

	b.path = filepath.Join(tmpDir, "rules.json")
	require.NoError(t, saveBucket(b))
	files, err := ioutil.ReadDir(tmpDir)
	require.NoError(t, err)
	require.Len(t, files, 1, "Temp files should be renamed into place")
	assert.Equal(t, "rules.json", files[0].Name())
}
