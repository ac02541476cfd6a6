package datastore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func memoryJobConfig(tableName string) *Config {
	return &Config{
		Type:      SQLite,
		DBName:    ":memory:", // the memory database for testing purposes
		TableName: tableName,
		ColumnConfig: map[string]string{
			KJobIdColumnName: "TEXT PRIMARY KEY NOT NULL",
			KJobStatus:       "TEXT",
			KJobProgress:     "TEXT",
			KJobConfig:       "TEXT",
			KJobError:        "TEXT",
			KJobCancel:       "INT",
			KJobCreateTime:   "TEXT",
			KJobModifyTime:   "TEXT",
		},
		PrimaryKeyColumnName: KJobIdColumnName,
	}
}

func TestSQLiteDatastore(t *testing.T) {
	ds := NewSQLiteDatastore(memoryJobConfig("TestSQLiteDatastore"))
	defer ds.Close()

	key := "2023-01-01_000000"

	// Test Put.
	err := ds.Put(key, map[string]interface{}{
		KJobStatus: "queue",
		KJobCancel: 0,
	})
	assert.NoError(t, err)

	// Test Get.
	result, err := ds.Get(key, []string{KJobStatus, KJobCancel})
	assert.NoError(t, err)
	assert.Equal(t, "queue", result[KJobStatus].(string))
	assert.Equal(t, int64(0), result[KJobCancel].(int64))

	// Test partial Update leaves the other columns intact.
	err = ds.Update(key, map[string]interface{}{KJobCancel: 1})
	assert.NoError(t, err)
	result, err = ds.Get(key, []string{KJobStatus, KJobCancel})
	assert.NoError(t, err)
	assert.Equal(t, "queue", result[KJobStatus].(string))
	assert.Equal(t, int64(1), result[KJobCancel].(int64))

	// Test Delete.
	err = ds.Delete(key)
	assert.NoError(t, err)
	result, err = ds.Get(key, []string{KJobStatus})
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Test deleting a non-existent key.
	err = ds.Delete("non-existent key")
	assert.NoError(t, err)

	// Test Get with non-existent key.
	result, err = ds.Get("non-existent key", []string{KJobStatus})
	assert.NoError(t, err)
	assert.Nil(t, result)

	// Test Put with non-existent column.
	err = ds.Put(key, map[string]interface{}{"non_existent_column": "x"})
	assert.Error(t, err)
}

func TestListAll(t *testing.T) {
	ds := NewSQLiteDatastore(memoryJobConfig("TestListAll"))
	defer ds.Close()

	// Insert some test data.
	testData := map[string]map[string]interface{}{
		"job1": {KJobStatus: "queue", KJobCancel: 0},
		"job2": {KJobStatus: "inprogress", KJobCancel: 0},
		"job3": {KJobStatus: "finish", KJobCancel: 1},
	}
	for k, v := range testData {
		err := ds.Put(k, v)
		assert.NoError(t, err)
	}

	// Call ListAll with a column subset and check the result.
	result, err := ds.ListAll([]string{KJobStatus})
	assert.NoError(t, err)
	assert.Equal(t, len(testData), len(result))
	for k, v := range testData {
		r, ok := result[k]
		assert.True(t, ok)
		assert.Equal(t, v[KJobStatus], r[KJobStatus].(string))
		// Columns not asked for are not returned.
		_, hasCancel := r[KJobCancel]
		assert.False(t, hasCancel)
	}

	// Delete all data.
	for k := range testData {
		err = ds.Delete(k)
		assert.NoError(t, err)
	}

	// Call ListAll again and check the result.
	result, err = ds.ListAll([]string{KJobStatus})
	assert.NoError(t, err)
	assert.Equal(t, 0, len(result))
}
