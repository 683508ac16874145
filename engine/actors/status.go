package actors

import (
	"sync"
)

var terminateChan = make(chan struct{})
var terminateOnce sync.Once

func GetTerminateChan() chan struct{} {
	return terminateChan
}

// Shutdown closes the terminate channel. It is safe to call from several places.
func Shutdown() {
	terminateOnce.Do(func() {
		close(terminateChan)
	})
}
