package module

import (
	"sync"
	"time"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/datastore"
	"github.com/sirupsen/logrus"
)

type CallBack func(v any)

type dbJobItem struct {
	callBack CallBack
}

// ListenDbTask poll train job rows for the cancel flag and fire the
// registered callback. Finished jobs drop out of the watch set.
type ListenDbTask struct {
	jobStore       datastore.Datastore
	intervalSecond int32
	jobs           *sync.Map
	stop           chan struct{}
}

func NewListenDbTask(intervalSecond int32, jobStore datastore.Datastore) *ListenDbTask {
	listenTask := &ListenDbTask{
		jobStore:       jobStore,
		intervalSecond: intervalSecond,
		jobs:           new(sync.Map),
		stop:           make(chan struct{}),
	}
	go listenTask.init()
	return listenTask
}

// init listen
func (l *ListenDbTask) init() {
	ticker := time.NewTicker(time.Duration(l.intervalSecond) * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			l.jobs.Range(func(key, value any) bool {
				l.cancelTask(key.(string), value.(*dbJobItem))
				return true
			})
		}
	}
}

// cancelTask check one watched job row
func (l *ListenDbTask) cancelTask(jobId string, item *dbJobItem) {
	ret, err := l.jobStore.Get(jobId, []string{datastore.KJobCancel, datastore.KJobStatus})
	if err != nil || ret == nil {
		l.jobs.Delete(jobId)
		return
	}
	// terminal states drop out of the watch set
	status, _ := ret[datastore.KJobStatus].(string)
	if status == config.JOB_FINISH || status == config.JOB_FAILED || status == config.JOB_CANCELLED {
		l.jobs.Delete(jobId)
		return
	}
	cancelVal, _ := ret[datastore.KJobCancel].(int64)
	if cancelVal == int64(config.CANCEL_VALID) {
		logrus.WithFields(logrus.Fields{"jobId": jobId}).Info("cancel signal received")
		item.callBack(nil)
		l.jobs.Delete(jobId)
	}
}

// AddTask watch a job for the cancel signal
func (l *ListenDbTask) AddTask(jobId string, callBack CallBack) {
	l.jobs.Store(jobId, &dbJobItem{callBack: callBack})
}

// Close close listen
func (l *ListenDbTask) Close() {
	close(l.stop)
}
