package concurrency

import "sync/atomic"

// Gate bounds the number of in-flight prediction requests. Admission only,
// requests already running are never cancelled or timed out.
type Gate struct {
	sem      chan struct{}
	inFlight int32
}

func NewGate(limit int32) *Gate {
	if limit <= 0 {
		limit = 1
	}
	return &Gate{
		sem: make(chan struct{}, limit),
	}
}

// Acquire try to admit a request without blocking
func (g *Gate) Acquire() bool {
	select {
	case g.sem <- struct{}{}:
		atomic.AddInt32(&g.inFlight, 1)
		return true
	default:
		return false
	}
}

func (g *Gate) Release() {
	atomic.AddInt32(&g.inFlight, -1)
	<-g.sem
}

// InFlight currently admitted requests
func (g *Gate) InFlight() int32 {
	return atomic.LoadInt32(&g.inFlight)
}
