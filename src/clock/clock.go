// Package clock provides an injectable time source for polling loops.
//
// Production code takes a Clock instead of calling time.Now or time.Sleep
// directly. Real() is backed by the time package; Fake() advances only when
// told to, which lets a poll loop that sleeps for minutes run instantly in a
// test while still reporting the simulated elapsed time.
package clock

import "time"

// Clock abstracts the time operations used by the watcher.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// Sleep blocks the calling goroutine for at least d.
	// It is not interruptible.
	Sleep(d time.Duration)
}

// Real returns a Clock backed by the standard time package.
func Real() Clock { return realClock{} }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) Sleep(d time.Duration) { time.Sleep(d) }
