package sched

import "time"

// sleepOrStop sleeps for d, returning early if stop is closed, so the
// dispatcher and workers never block scheduler-stop behind a long poll
// interval (spec §5: "no lock is held across a tick wait... Cancellation:
// stop signal wakes all waiters").
func sleepOrStop(stop <-chan struct{}, d time.Duration) {
	select {
	case <-time.After(d):
	case <-stop:
	}
}
