package inference

import (
	"fmt"
	"sync"

	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/deepserve/image-classifier-api/pkg/trainconfig"
	"github.com/deepserve/image-classifier-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

// State the process-wide inference model cache: the loaded network, its
// training configuration, the ordered class list and per-class metadata.
// Loaded lazily on the first prediction, replaced as a whole on reload,
// readers hold the read lock for the duration of a prediction so they see
// either the previous or the new state, never a mix.
type State struct {
	mu        sync.RWMutex
	resolver  *paths.Resolver
	newRunner RunnerFactory

	loaded     bool
	runner     Runner
	conf       trainconfig.Conf
	classNames []string
	classInfo  []string
	snapshot   string
	checkpoint string
}

func NewState(resolver *paths.Resolver) *State {
	return &State{
		resolver:  resolver,
		newRunner: NewRunner,
	}
}

// NewStateWithFactory inject a runner factory, used by tests and by
// deployments with a custom runtime build.
func NewStateWithFactory(resolver *paths.Resolver, factory RunnerFactory) *State {
	return &State{
		resolver:  resolver,
		newRunner: factory,
	}
}

// EnsureLoaded load the serving model if not yet loaded. A no-op without any
// filesystem access when the state is already loaded.
func (s *State) EnsureLoaded() error {
	s.mu.RLock()
	loaded := s.loaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return nil
	}
	return s.loadLocked()
}

// acquireLoaded load if needed and return holding the read lock with a
// resident runner. A Release can land between the load and the read lock
// (starting a training run does exactly that), so the loaded flag is
// re-checked under the lock and the load retried. The caller must RUnlock.
func (s *State) acquireLoaded() error {
	for attempt := 0; attempt < 3; attempt++ {
		if err := s.EnsureLoaded(); err != nil {
			return err
		}
		s.mu.RLock()
		if s.loaded {
			return nil
		}
		s.mu.RUnlock()
	}
	return fmt.Errorf("model released while a prediction was queued")
}

// Reload force a fresh load, picking up newly trained snapshots. The only
// refresh path besides a process restart.
func (s *State) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Release discard the loaded network to free resources, e.g. before handing
// the machine to the trainer process.
func (s *State) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.discardLocked()
}

func (s *State) discardLocked() {
	if s.runner != nil {
		s.runner.Close()
		s.runner = nil
	}
	s.loaded = false
}

// loadLocked the full load sequence: snapshot selection, checkpoint
// selection, discard of the previous network, class list + metadata, training
// configuration, network weights. Caller holds the write lock.
func (s *State) loadLocked() error {
	snapshot, err := s.resolver.SelectSnapshot()
	if err != nil {
		return err
	}
	checkpoint, err := s.resolver.SelectCheckpoint(snapshot)
	if err != nil {
		return err
	}
	logrus.Infof("loading snapshot=%s checkpoint=%s", snapshot, checkpoint)

	s.discardLocked()

	classNames, err := LoadClassNames(s.resolver.SplitsDir(snapshot))
	if err != nil {
		return fmt.Errorf("load class names: %w", err)
	}
	if len(classNames) == 0 {
		return fmt.Errorf("classes.txt of snapshot %s is empty", snapshot)
	}
	classInfo := LoadClassInfo(s.resolver.SplitsDir(snapshot), len(classNames))

	conf, err := trainconfig.Load(s.resolver.ConfFile(snapshot))
	if err != nil {
		return fmt.Errorf("load training conf: %w", err)
	}

	ckptPath := s.resolver.CheckpointFile(snapshot, checkpoint)
	if md5sum, err := utils.FileMD5(ckptPath); err == nil {
		logrus.Debugf("checkpoint %s md5=%s", checkpoint, md5sum)
	}
	runner, err := s.newRunner(ckptPath, conf.ImageSize(), len(classNames))
	if err != nil {
		return fmt.Errorf("load checkpoint %s: %w", checkpoint, err)
	}

	s.runner = runner
	s.conf = conf
	s.classNames = classNames
	s.classInfo = classInfo
	s.snapshot = snapshot
	s.checkpoint = checkpoint
	s.loaded = true
	return nil
}

// Loaded report whether a model is resident
func (s *State) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Active the snapshot and checkpoint currently served, empty when unloaded
func (s *State) Active() (snapshot, checkpoint string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot, s.checkpoint
}
