package submission

import "time"

// Scheduler runs f once after d. Scheduled work is never cancelled.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// RealScheduler uses the runtime timer.
type RealScheduler struct{}

func (RealScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}
