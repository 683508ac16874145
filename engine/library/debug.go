package library

import (
	"time"

	"github.com/sasha-s/go-deadlock"
)

// SlowWork is how long a unit of stream work may run before it is reported.
var SlowWork = 5 * time.Second

// ValidateSaneExecutionTime must be paired with a call to the returned func once the work
// named by label is finished. Work that outlives SlowWork is logged, and work that outlives
// deadlock.Opts.DeadlockTimeout is reported by the deadlock detector with its stack.
func ValidateSaneExecutionTime(label string, log Logger) func() {
	started := time.Now()
	mu := deadlock.Mutex{}
	mu.Lock()
	go func() {
		mu.Lock()
		mu.Unlock()
	}()
	timer := time.AfterFunc(SlowWork, func() {
		log.Warn("work is taking too long", Fields{"work": label, "elapsed": time.Since(started).String()})
	})
	return func() {
		timer.Stop()
		mu.Unlock()
	}
}
