package gossip

import (
	"sync"
	"time"
)

// AntiEntropyTicker drives C5: every interval it asks the Engine to
// broadcast a full status Digest to every neighbor, the liveness mechanism
// that bounds convergence time under packet loss. Shutdown shape (stopCh +
// WaitGroup) mirrors the teacher's FailureDetector.detectionLoop.
type AntiEntropyTicker struct {
	engine   *Engine
	interval time.Duration

	stopCh chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once
}

// NewAntiEntropyTicker builds a ticker that broadcasts every interval.
func NewAntiEntropyTicker(engine *Engine, interval time.Duration) *AntiEntropyTicker {
	return &AntiEntropyTicker{
		engine:   engine,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Serve runs the tick loop until Stop is called. Blocks; run in its own
// goroutine.
func (a *AntiEntropyTicker) Serve() {
	a.wg.Add(1)
	defer a.wg.Done()

	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.engine.BroadcastStatus()
		}
	}
}

// Stop terminates the tick loop. Idempotent.
func (a *AntiEntropyTicker) Stop() {
	a.closeOnce.Do(func() { close(a.stopCh) })
	a.wg.Wait()
}
