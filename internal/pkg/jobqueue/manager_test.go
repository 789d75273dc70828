package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestManagerStopReleasesBackgroundWorkers starts the ticker goroutines
// directly and checks that Stop returns once they have exited. The stop
// channel must stay non-nil while workers are still draining, otherwise a
// worker re-entering its select would block on a nil channel forever.
func TestManagerStopReleasesBackgroundWorkers(t *testing.T) {
	m := &Manager{
		queue:  NewQueue(1),
		stopCh: make(chan struct{}),
	}
	m.running = true
	m.counterFlushTicker = time.NewTicker(time.Hour)
	m.sessionSweepTicker = time.NewTicker(time.Hour)

	m.wg.Add(2)
	go m.counterFlushWorker()
	go m.sessionSweepWorker()

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return, background workers never exited")
	}

	assert.False(t, m.IsRunning())
	assert.NotNil(t, m.stopCh)

	// Second Stop on an already stopped manager is a no-op.
	m.Stop()
}
