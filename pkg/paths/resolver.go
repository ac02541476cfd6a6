package paths

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/deepserve/image-classifier-api/pkg/apierror"
	"github.com/deepserve/image-classifier-api/pkg/config"
)

// Resolver maps the model directory layout:
//
//	<base>/<timestamp>/ckpts/<checkpoint>.onnx
//	<base>/<timestamp>/splits/classes.txt
//	<base>/<timestamp>/splits/info.txt
//	<base>/<timestamp>/config/conf.json
type Resolver struct {
	base string
}

func NewResolver(base string) *Resolver {
	return &Resolver{base: base}
}

func (r *Resolver) ModelsDir() string {
	return r.base
}

func (r *Resolver) SnapshotDir(timestamp string) string {
	return filepath.Join(r.base, timestamp)
}

func (r *Resolver) CheckpointsDir(timestamp string) string {
	return filepath.Join(r.base, timestamp, config.CheckpointsDirName)
}

func (r *Resolver) SplitsDir(timestamp string) string {
	return filepath.Join(r.base, timestamp, config.SplitsDirName)
}

func (r *Resolver) ConfDir(timestamp string) string {
	return filepath.Join(r.base, timestamp, config.ConfDirName)
}

func (r *Resolver) ConfFile(timestamp string) string {
	return filepath.Join(r.ConfDir(timestamp), config.ConfFileName)
}

func (r *Resolver) CheckpointFile(timestamp, name string) string {
	return filepath.Join(r.CheckpointsDir(timestamp), name)
}

// CreateSnapshotDirs make the snapshot skeleton for a new training run
func (r *Resolver) CreateSnapshotDirs(timestamp string) error {
	for _, dir := range []string{
		r.CheckpointsDir(timestamp),
		r.SplitsDir(timestamp),
		r.ConfDir(timestamp),
	} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// ListSnapshots immediate subdirectories of the models dir, sorted ascending
func (r *Resolver) ListSnapshots() ([]string, error) {
	entries, err := os.ReadDir(r.base)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	timestamps := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			timestamps = append(timestamps, e.Name())
		}
	}
	sort.Strings(timestamps)
	return timestamps, nil
}

// SelectSnapshot pick the snapshot to serve: the reserved `api` directory if
// present, otherwise the latest timestamp (timestamps sort chronologically).
func (r *Resolver) SelectSnapshot() (string, error) {
	timestamps, err := r.ListSnapshots()
	if err != nil {
		return "", err
	}
	if len(timestamps) == 0 {
		return "", apierror.New(apierror.NoModelsAvailable,
			"no models found under %s to be used for inference, the API can only be used for training", r.base)
	}
	for _, ts := range timestamps {
		if ts == config.ServingSnapshot {
			return ts, nil
		}
	}
	return timestamps[len(timestamps)-1], nil
}

// ListCheckpoints checkpoint files of a snapshot, sorted ascending
func (r *Resolver) ListCheckpoints(timestamp string) ([]string, error) {
	entries, err := os.ReadDir(r.CheckpointsDir(timestamp))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// SelectCheckpoint pick the checkpoint to load: `final_model.onnx` if present,
// otherwise the latest checkpoint with the expected extension.
func (r *Resolver) SelectCheckpoint(timestamp string) (string, error) {
	names, err := r.ListCheckpoints(timestamp)
	if err != nil {
		return "", err
	}
	candidates := make([]string, 0, len(names))
	for _, name := range names {
		if name == config.FinalModelName {
			return name, nil
		}
		if strings.HasSuffix(name, config.CheckpointExt) {
			candidates = append(candidates, name)
		}
	}
	if len(candidates) == 0 {
		return "", apierror.New(apierror.NoCheckpointsAvailable,
			"no checkpoints found under %s to be used for inference, the API can only be used for training",
			r.CheckpointsDir(timestamp))
	}
	return candidates[len(candidates)-1], nil
}
