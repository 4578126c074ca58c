package plaindb

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUpgrader struct {
	parser   func(dataVersion, id string, data json.RawMessage) (interface{}, error)
	upgrader func(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error)
}

func (m *mockUpgrader) Parse(dataVersion, id string, data json.RawMessage) (interface{}, error) {
	return m.parser(dataVersion, id, data)
}

func (m *mockUpgrader) Upgrade(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	return m.upgrader(dataVersion, id, data)
}

func tempDBDir(t *testing.T) string {
	dir, err := ioutil.TempDir("", "plaindb")
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, os.RemoveAll(dir))
	})
	return dir
}

func TestOpenNewBucket(t *testing.T) {
	tmpDir := filepath.Join(tempDBDir(t), "data")
	db, err := Open(tmpDir)
	require.NoError(t, err)
	assert.DirExists(t, tmpDir)
	require.IsType(t, &database{}, db)

	b, err := db.Bucket("rules", "1", &mockUpgrader{})
	require.NoError(t, err)
	assert.Equal(t, "rules", b.(*bucket).name)
	assert.Equal(t, filepath.Join(tmpDir, "rules.json"), b.(*bucket).path)
	assert.Equal(t, "1", b.(*bucket).version)
	assert.Empty(t, b.(*bucket).data)

	same, err := db.Bucket("rules", "1", &mockUpgrader{})
	require.NoError(t, err)
	assert.Same(t, b, same, "Buckets should be cached by name")
}

func TestOpenVersionControl(t *testing.T) {
	tmpDir := tempDBDir(t)
	db, err := Open(tmpDir, VersionControl())
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(tmpDir, ".git"))

	b, err := db.Bucket("rules", "1", &mockUpgrader{parser: stringParser})
	require.NoError(t, err)
	require.NoError(t, b.Put(bgCtx, "a", "some rule"))
	assert.FileExists(t, filepath.Join(tmpDir, "rules.json"))
}

func TestClose(t *testing.T) {
	db := NewMockDB(MockConfig{
		FileReader: func(path string) ([]byte, error) {
			return []byte(`{}`), nil
		},
	})
	_, err := db.Bucket("something", "", &mockUpgrader{})
	require.NoError(t, err)
	assert.NoError(t, db.Close())
	assert.NoError(t, (*database)(nil).Close())
}

func intParser(dataVersion, id string, data json.RawMessage) (interface{}, error) {
	i, err := strconv.ParseInt(string(data), 10, 64)
	return int(i), err
}

func stringParser(dataVersion, id string, data json.RawMessage) (interface{}, error) {
	s, err := strconv.Unquote(string(data))
	return s, err
}

func intUpgrader(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	i, _ := strconv.ParseInt(dataVersion, 10, 64)
	return strconv.FormatInt(i+1, 10), data.(int) + 1, nil
}

func failUpgrader(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	return "", nil, errors.New("some failure")
}

func loopUpgrader(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	i, _ := strconv.ParseInt(dataVersion, 10, 64)
	return strconv.FormatInt(-i, 10), data.(int) + 1, nil
}

func staleUpgrader(dataVersion, id string, data interface{}) (newVersion string, newData interface{}, err error) {
	return dataVersion, data, nil
}

func TestBucket(t *testing.T) {
	someReadErr := errors.New("some read error")

	for _, tc := range []struct {
		description   string
		name, version string
		upgrader      Upgrader
		bucketData    string
		readErr       error

		expectedData map[string]interface{}
		expectedErr  string
	}{
		{
			description: "new bucket",
			name:        "transactions",
			version:     "1",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: intUpgrader},
			readErr:     os.ErrNotExist,
		},
		{
			description: "bad read",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: intUpgrader},
			readErr:     someReadErr,
			expectedErr: "some read error",
		},
		{
			description: "empty bucket file",
			name:        "transactions",
			version:     "1",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: intUpgrader},
			bucketData:  "",
			expectedErr: "unexpected end of JSON input",
		},
		{
			description: "nil upgrader error",
			upgrader:    nil,
			expectedErr: "Upgrader must not be nil",
		},
		{
			description: "upgrade once",
			name:        "transactions",
			version:     "2",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: intUpgrader},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": 1,
					"b": 2
				}
			}`,
			expectedData: map[string]interface{}{
				"a": 2,
				"b": 3,
			},
		},
		{
			description: "parse failure",
			name:        "transactions",
			version:     "2",
			upgrader:    &mockUpgrader{parser: intParser},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": "not an int",
					"b": 2
				}
			}`,
			expectedErr: "strconv.ParseInt",
		},
		{
			description: "upgrade once failure",
			name:        "transactions",
			version:     "2",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: failUpgrader},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": 1
				}
			}`,
			expectedErr: "some failure",
		},
		{
			description: "upgrade twice",
			name:        "transactions",
			version:     "3",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: intUpgrader},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": 1,
					"b": 2
				}
			}`,
			expectedData: map[string]interface{}{
				"a": 3,
				"b": 4,
			},
		},
		{
			description: "upgrade loop",
			name:        "transactions",
			version:     "2",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: loopUpgrader},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": 1
				}
			}`,
			expectedErr: "Too many upgrade attempts",
		},
		{
			description: "upgrade to same version",
			name:        "transactions",
			version:     "2",
			upgrader:    &mockUpgrader{parser: intParser, upgrader: staleUpgrader},
			bucketData: `
			{
				"Version": "1",
				"Data": {
					"a": 1
				}
			}`,
			expectedErr: `Could not upgrade "transactions" record "a" from version "1" to "2"`,
		},
	} {
		t.Run(tc.description, func(t *testing.T) {
			if tc.expectedData == nil {
				tc.expectedData = make(map[string]interface{})
			}

			var expectedBucketPath string
			db := NewMockDB(MockConfig{
				FileReader: func(path string) ([]byte, error) {
					assert.Equal(t, expectedBucketPath, path)
					return []byte(tc.bucketData), tc.readErr
				},
			})
			expectedBucketPath = filepath.Join("mock", tc.name+".json")

			b, err := db.Bucket(tc.name, tc.version, tc.upgrader)
			if tc.expectedErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.expectedErr)
				return
			}

			require.NoError(t, err)
			require.IsType(t, &bucket{}, b)
			assert.Equal(t, tc.name, b.(*bucket).name)
			assert.Equal(t, expectedBucketPath, b.(*bucket).path)
			assert.Equal(t, tc.version, b.(*bucket).version)
			assert.Equal(t, tc.expectedData, b.(*bucket).data)
		})
	}
}

func TestNewMockDB(t *testing.T) {
	// builtin FileReader
	db := NewMockDB(MockConfig{})
	_, err := db.Bucket("something", "", &mockUpgrader{})
	assert.Error(t, err)

	// builtin Saver
	db = NewMockDB(MockConfig{
		FileReader: func(path string) ([]byte, error) {
			return []byte(`{}`), nil
		},
	})
	b, err := db.Bucket("something", "1", &mockUpgrader{})
	require.NoError(t, err)
	assert.NoError(t, b.Put(bgCtx, "hi", "hi"))
}

func TestMockDBDump(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		db := NewMockDB(MockConfig{
			FileReader: func(path string) ([]byte, error) {
				return []byte(`{}`), nil
			},
		})
		b, err := db.Bucket("something", "1", &mockUpgrader{})
		require.NoError(t, err)
		assert.Equal(t, `{
    "Version": "1",
    "Data": {}
}
`, db.Dump(b))
	})

	t.Run("not a *bucket", func(t *testing.T) {
		type mockBucket struct {
			bucket
		}
		db := NewMockDB(MockConfig{})
		assert.Panics(t, func() {
			db.Dump(&mockBucket{})
		})
	})

	t.Run("not a mock bucket", func(t *testing.T) {
		db := NewMockDB(MockConfig{})
		assert.Panics(t, func() {
			db.Dump(&bucket{})
		})
	})

	t.Run("fail to encode", func(t *testing.T) {
		db := NewMockDB(MockConfig{
			FileReader: func(path string) ([]byte, error) {
				return []byte(`{}`), nil
			},
		})
		b, err := db.Bucket("something", "1", &mockUpgrader{})
		require.NoError(t, err)
		b.(*bucket).data["hi"] = json.RawMessage(`garbage`)
		assert.Panics(t, func() {
			db.Dump(b)
		})
	})
}
