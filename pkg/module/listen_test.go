package module

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/stretchr/testify/assert"
)

func newMemoryJobStore(t *testing.T) datastore.Datastore {
	cfg := datastore.NewSQLiteConfig(datastore.KJobTableName)
	cfg.DBName = ":memory:"
	return datastore.NewSQLiteDatastore(cfg)
}

func TestListenDbTaskCancel(t *testing.T) {
	store := newMemoryJobStore(t)
	defer store.Close()

	jobId := "2023-01-01_000000"
	assert.NoError(t, store.Put(jobId, map[string]interface{}{
		datastore.KJobStatus: config.JOB_INPROGRESS,
		datastore.KJobCancel: config.CANCEL_INVALID,
	}))

	task := NewListenDbTask(1, store)
	defer task.Close()

	var fired int32
	task.AddTask(jobId, func(v any) {
		atomic.AddInt32(&fired, 1)
	})

	// No cancel flag yet, the callback must not fire.
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))

	// Set the cancel flag and wait for the poller.
	assert.NoError(t, store.Update(jobId, map[string]interface{}{
		datastore.KJobCancel: config.CANCEL_VALID,
	}))
	deadline := time.Now().Add(5 * time.Second)
	for atomic.LoadInt32(&fired) == 0 && time.Now().Before(deadline) {
		time.Sleep(100 * time.Millisecond)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&fired))
}

func TestListenDbTaskDropsFinishedJobs(t *testing.T) {
	store := newMemoryJobStore(t)
	defer store.Close()

	jobId := "2023-01-02_000000"
	assert.NoError(t, store.Put(jobId, map[string]interface{}{
		datastore.KJobStatus: config.JOB_FINISH,
		datastore.KJobCancel: config.CANCEL_VALID,
	}))

	task := NewListenDbTask(1, store)
	defer task.Close()

	var fired int32
	task.AddTask(jobId, func(v any) {
		atomic.AddInt32(&fired, 1)
	})

	// Finished jobs never fire the cancel callback even with the flag set.
	time.Sleep(1500 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fired))
}
