package module

import (
	"testing"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLauncherEnv(t *testing.T) (*ExecLauncher, datastore.Datastore) {
	jobStore := newMemoryJobStore(t)
	t.Cleanup(func() { jobStore.Close() })
	return NewExecLauncher(jobStore, paths.NewResolver(t.TempDir())), jobStore
}

func putQueuedJob(t *testing.T, jobStore datastore.Datastore, jobId string) {
	require.NoError(t, jobStore.Put(jobId, map[string]interface{}{
		datastore.KJobStatus:     config.JOB_QUEUE,
		datastore.KJobProgress:   "",
		datastore.KJobError:      "",
		datastore.KJobCancel:     config.CANCEL_INVALID,
		datastore.KJobCreateTime: "1672531200",
		datastore.KJobModifyTime: "1672531200",
	}))
}

func setTrainShell(t *testing.T, shell string) {
	prev := config.ConfigGlobal.TrainShell
	config.ConfigGlobal.TrainShell = shell
	t.Cleanup(func() { config.ConfigGlobal.TrainShell = prev })
}

func TestLaunchFinish(t *testing.T) {
	launcher, jobStore := newLauncherEnv(t)
	setTrainShell(t, "echo epoch 1/1")
	putQueuedJob(t, jobStore, "2023-01-01_000000")

	launcher.Launch("2023-01-01_000000")

	row, err := jobStore.Get("2023-01-01_000000",
		[]string{datastore.KJobStatus, datastore.KJobError})
	require.NoError(t, err)
	assert.Equal(t, config.JOB_FINISH, row[datastore.KJobStatus])
	assert.Equal(t, "", row[datastore.KJobError])
}

func TestLaunchTrainerFailure(t *testing.T) {
	launcher, jobStore := newLauncherEnv(t)
	setTrainShell(t, "false")
	putQueuedJob(t, jobStore, "2023-01-01_000000")

	launcher.Launch("2023-01-01_000000")

	row, err := jobStore.Get("2023-01-01_000000",
		[]string{datastore.KJobStatus, datastore.KJobError})
	require.NoError(t, err)
	assert.Equal(t, config.JOB_FAILED, row[datastore.KJobStatus])
	assert.NotEmpty(t, row[datastore.KJobError])
}

func TestLaunchNoTrainerConfigured(t *testing.T) {
	launcher, jobStore := newLauncherEnv(t)
	setTrainShell(t, "")
	putQueuedJob(t, jobStore, "2023-01-01_000000")

	launcher.Launch("2023-01-01_000000")

	row, err := jobStore.Get("2023-01-01_000000",
		[]string{datastore.KJobStatus, datastore.KJobError})
	require.NoError(t, err)
	assert.Equal(t, config.JOB_FAILED, row[datastore.KJobStatus])
	assert.Contains(t, row[datastore.KJobError], "no trainer command")
}
