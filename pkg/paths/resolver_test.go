package paths

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/stretchr/testify/assert"
)

func makeSnapshots(t *testing.T, base string, timestamps ...string) {
	for _, ts := range timestamps {
		assert.NoError(t, os.MkdirAll(filepath.Join(base, ts), 0755))
	}
}

func makeCheckpoints(t *testing.T, r *Resolver, timestamp string, names ...string) {
	assert.NoError(t, os.MkdirAll(r.CheckpointsDir(timestamp), 0755))
	for _, name := range names {
		assert.NoError(t, os.WriteFile(r.CheckpointFile(timestamp, name), []byte("x"), 0644))
	}
}

func TestSelectSnapshot(t *testing.T) {
	base := t.TempDir()
	r := NewResolver(base)

	// Test no snapshots.
	_, err := r.SelectSnapshot()
	apiErr, ok := apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.NoModelsAvailable, apiErr.Kind)

	// Test latest timestamp wins.
	makeSnapshots(t, base, "2018-01-01_120000", "2019-05-05_120000")
	ts, err := r.SelectSnapshot()
	assert.NoError(t, err)
	assert.Equal(t, "2019-05-05_120000", ts)

	// Test reserved `api` snapshot wins over any timestamp.
	makeSnapshots(t, base, "api")
	ts, err = r.SelectSnapshot()
	assert.NoError(t, err)
	assert.Equal(t, "api", ts)
}

func TestSelectCheckpoint(t *testing.T) {
	base := t.TempDir()
	r := NewResolver(base)
	makeSnapshots(t, base, "2019-05-05_120000")

	// Test no checkpoints.
	_, err := r.SelectCheckpoint("2019-05-05_120000")
	apiErr, ok := apierror.AsError(err)
	assert.True(t, ok)
	assert.Equal(t, apierror.NoCheckpointsAvailable, apiErr.Kind)

	// Test latest checkpoint wins, non-checkpoint files ignored.
	makeCheckpoints(t, r, "2019-05-05_120000", "epoch-01.onnx", "epoch-09.onnx", "notes.txt")
	name, err := r.SelectCheckpoint("2019-05-05_120000")
	assert.NoError(t, err)
	assert.Equal(t, "epoch-09.onnx", name)

	// Test final model wins over any epoch checkpoint.
	makeCheckpoints(t, r, "2019-05-05_120000", "final_model.onnx")
	name, err = r.SelectCheckpoint("2019-05-05_120000")
	assert.NoError(t, err)
	assert.Equal(t, "final_model.onnx", name)
}

func TestCreateSnapshotDirs(t *testing.T) {
	r := NewResolver(t.TempDir())
	assert.NoError(t, r.CreateSnapshotDirs("2023-01-01_000000"))
	for _, dir := range []string{
		r.CheckpointsDir("2023-01-01_000000"),
		r.SplitsDir("2023-01-01_000000"),
		r.ConfDir("2023-01-01_000000"),
	} {
		info, err := os.Stat(dir)
		assert.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
