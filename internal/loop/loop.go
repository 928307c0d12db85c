// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package loop provides the single-goroutine, run-to-completion executor that
// every feed session runs on. Components owned by a session are not
// goroutine-safe; they rely on all of their methods being invoked from the
// session loop.
package loop

import "time"

// Loop serialises work onto one goroutine.
type Loop interface {
	// Post enqueues fn to run on the loop after the current task completes.
	Post(fn func())
	// AfterFunc runs fn on the loop once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer
	// Go runs work off the loop and posts the continuation it returns (if
	// non-nil) back onto the loop. This is the only way a loop task may block.
	Go(work func() func())
	// Now reports the loop's notion of the current time.
	Now() time.Time
}

// Timer is a pending AfterFunc callback.
type Timer interface {
	// Stop prevents the callback from running. It reports whether the call
	// stopped the timer before it ran.
	Stop() bool
}
