package log

import (
	"encoding/json"
	"sync"

	"github.com/deepserve/image-classifier-api/pkg/config"
	"github.com/deepserve/image-classifier-api/pkg/utils"
	"github.com/sirupsen/logrus"
)

const (
	defaultCacheCount = 64
	defaultCacheSize  = 16 * 1024 // 16KB
	logPath           = "collect/log"
)

var TrainLogInstance = NewTrainLog()

// Log one trainer output line shipped to the remote collector
type Log struct {
	Level  string `json:"level"`
	Ts     int64  `json:"ts"`
	Msg    string `json:"msg"`
	JobID  string `json:"jobID"`
	Source string `json:"source"`
}

func (l *Log) Size() int {
	return len(l.Msg)
}

// TrainLog consumes trainer stdout lines, tags them with the running jobId
// and optionally batches them to the remote collector.
type TrainLog struct {
	mu       sync.RWMutex
	jobId    string
	cacheLog []*Log
	LogFlow  chan string
	closeLog chan struct{}
}

func NewTrainLog() *TrainLog {
	trainLog := &TrainLog{
		LogFlow:  make(chan string, 8192),
		cacheLog: make([]*Log, 0, defaultCacheCount),
		closeLog: make(chan struct{}),
	}
	go trainLog.consumeLog()
	return trainLog
}

func (s *TrainLog) consumeLog() {
	cacheSize := 0
	for {
		select {
		case logStr := <-s.LogFlow:
			jobId := s.getJobId()
			if jobId != "" {
				logrus.WithFields(logrus.Fields{
					"jobId": jobId,
				}).Info(logStr)
			} else {
				logrus.Info(logStr)
			}
			if config.ConfigGlobal.SendLogToRemote() {
				logObj := &Log{
					Msg:    logStr,
					Ts:     utils.TimestampS(),
					JobID:  jobId,
					Source: config.ConfigGlobal.ServerName,
					Level:  "info",
				}
				if cacheSize >= defaultCacheSize || len(s.cacheLog) >= defaultCacheCount {
					s.flush()
					cacheSize = 0
				}
				s.cacheLog = append(s.cacheLog, logObj)
				cacheSize += logObj.Size()
			}
		case <-s.closeLog:
			return
		}
	}
}

func (s *TrainLog) flush() {
	if len(s.cacheLog) == 0 {
		return
	}
	if body, err := json.Marshal(s.cacheLog); err == nil {
		go monitor.Post(body, logPath)
	}
	s.cacheLog = s.cacheLog[:0]
}

func (s *TrainLog) SetJobId(jobId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobId = jobId
}

func (s *TrainLog) getJobId() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jobId
}

func (s *TrainLog) Close() {
	s.closeLog <- struct{}{}
	// ship whatever is still cached
	if len(s.cacheLog) > 0 {
		if body, err := json.Marshal(s.cacheLog); err == nil {
			monitor.Post(body, logPath)
		}
	}
}
