package search

import (
	"sync"
	"testing"
)

// Closing the logger while workers are still emitting lines must be safe:
// late lines are dropped, never written to a closed file.
func TestCloseLoggerWhileLogging(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				logDebug("worker %d line %d", worker, j)
			}
		}(i)
	}

	CloseLogger()
	wg.Wait()

	// after close every level is a no-op
	logInfo("dropped")
	logError("dropped")
}
