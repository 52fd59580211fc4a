// Package debounce collapses bursts of calls into a single delayed call.
//
// Every wrapper returned here holds at most one pending invocation. Calling
// the wrapper again before the delay elapses cancels that invocation and
// schedules a new one with the latest arguments, so a burst of calls spaced
// closer than the delay fires the wrapped function exactly once.
//
// The delay is passed to time.AfterFunc unchanged. A zero or negative delay
// fires as soon as the runtime schedules the timer.
package debounce

import (
	"sync"
	"time"
)

// Debounce returns a function that delays calling fn until interval has passed
// without another call. The argument of the last call in a burst is the one fn
// receives. Use a struct for T to carry several arguments.
//
// The returned function never blocks and is safe for concurrent use. fn runs
// on the timer's goroutine.
func Debounce[T any](fn func(T), interval time.Duration) func(T) {
	var (
		mu    sync.Mutex
		timer *time.Timer
	)

	return func(arg T) {
		mu.Lock()
		defer mu.Unlock()

		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(interval, func() { fn(arg) })
	}
}

// Method is Debounce for a method expression such as (*Handler).Reload.
// The receiver of the last call is the one the method runs on.
func Method[R, A any](fn func(R, A), interval time.Duration) func(R, A) {
	type call struct {
		recv R
		arg  A
	}

	debounced := Debounce(func(c call) { fn(c.recv, c.arg) }, interval)
	return func(recv R, arg A) {
		debounced(call{recv: recv, arg: arg})
	}
}

// Func is Debounce for functions without arguments.
func Func(fn func(), interval time.Duration) func() {
	debounced := Debounce(func(struct{}) { fn() }, interval)
	return func() {
		debounced(struct{}{})
	}
}
