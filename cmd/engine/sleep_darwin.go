//go:build darwin

package main

import (
	"github.com/prashantgupta24/mac-sleep-notifier/notifier"
	"trustmesh/engine/library"
)

// sleeper calls onSleep when the machine goes to sleep; the live stream does not survive it.
func sleeper(onSleep func()) {
	sleepNotifier := notifier.GetInstance().Start()
	go func() {
		for activity := range sleepNotifier {
			if activity.Type == notifier.Sleep {
				library.LogCLI("system sleep detected, terminating application", library.LevelWarn)
				onSleep()
				return
			}
		}
	}()
}
