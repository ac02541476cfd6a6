package module

import (
	"bufio"
	"fmt"
	"sync"
	"syscall"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/deepserve/image-classifier-api/pkg/log"
	"github.com/deepserve/image-classifier-api/pkg/paths"
	"github.com/deepserve/image-classifier-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

// Launcher starts and cancels external training runs
type Launcher interface {
	Launch(jobId string)
	Cancel(jobId string)
}

// ExecLauncher run the configured trainer command in its own process group,
// stream its output through the train log, and keep the job row current.
// The trainer reads the persisted conf.json of the snapshot, this process
// never interprets checkpoint internals.
type ExecLauncher struct {
	jobStore datastore.Datastore
	resolver *paths.Resolver
	procs    sync.Map // jobId -> pgid
}

func NewExecLauncher(jobStore datastore.Datastore, resolver *paths.Resolver) *ExecLauncher {
	return &ExecLauncher{
		jobStore: jobStore,
		resolver: resolver,
	}
}

// Launch run the trainer to completion, blocking. Meant to be called from a
// goroutine, one training run at a time is assumed.
func (l *ExecLauncher) Launch(jobId string) {
	if config.ConfigGlobal.TrainShell == "" {
		l.finishJob(jobId, config.JOB_FAILED, "no trainer command configured")
		return
	}
	// the trainer expects the dataset on local disk
	PullData(config.ConfigGlobal.DataDir)

	shell := fmt.Sprintf("%s --timestamp %s --conf %s",
		config.ConfigGlobal.TrainShell, jobId, l.resolver.ConfFile(jobId))
	execItem, err := utils.DoExecAsync(shell, "", nil)
	if err != nil {
		l.finishJob(jobId, config.JOB_FAILED, err.Error())
		return
	}
	l.procs.Store(jobId, execItem.Pid)
	defer l.procs.Delete(jobId)

	l.updateJob(jobId, map[string]interface{}{
		datastore.KJobStatus: config.JOB_INPROGRESS,
	})

	// forward trainer output with the jobId attached
	log.TrainLogInstance.SetJobId(jobId)
	scanner := bufio.NewScanner(execItem.Stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.TrainLogInstance.LogFlow <- scanner.Text()
	}
	log.TrainLogInstance.SetJobId("")

	if err := execItem.Cmd.Wait(); err != nil {
		// a cancelled job keeps its cancelled status
		if ret, getErr := l.jobStore.Get(jobId, []string{datastore.KJobStatus}); getErr == nil && ret != nil {
			if status, _ := ret[datastore.KJobStatus].(string); status == config.JOB_CANCELLED {
				return
			}
		}
		l.finishJob(jobId, config.JOB_FAILED, err.Error())
		return
	}
	l.finishJob(jobId, config.JOB_FINISH, "")

	SyncModels(l.resolver.ModelsDir())
}

// Cancel kill the trainer process group of a job
func (l *ExecLauncher) Cancel(jobId string) {
	pidVal, ok := l.procs.Load(jobId)
	if !ok {
		logrus.WithFields(logrus.Fields{"jobId": jobId}).Warn("cancel: no running trainer process")
		return
	}
	pid := pidVal.(int)
	l.updateJob(jobId, map[string]interface{}{
		datastore.KJobStatus: config.JOB_CANCELLED,
	})
	if err := syscall.Kill(-pid, syscall.SIGKILL); err != nil {
		logrus.WithFields(logrus.Fields{"jobId": jobId}).Errorf("kill trainer pgid=%d err: %v", pid, err)
	}
}

func (l *ExecLauncher) finishJob(jobId, status, errMsg string) {
	values := map[string]interface{}{
		datastore.KJobStatus: status,
	}
	if errMsg != "" {
		values[datastore.KJobError] = errMsg
		logrus.WithFields(logrus.Fields{"jobId": jobId}).Errorf("train job failed: %s", errMsg)
	}
	l.updateJob(jobId, values)
}

func (l *ExecLauncher) updateJob(jobId string, values map[string]interface{}) {
	values[datastore.KJobModifyTime] = fmt.Sprintf("%d", utils.TimestampS())
	if err := l.jobStore.Update(jobId, values); err != nil {
		logrus.WithFields(logrus.Fields{"jobId": jobId}).Errorf("update job row err: %v", err)
	}
}
