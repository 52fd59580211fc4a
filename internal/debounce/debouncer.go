package debounce

import (
	"sync"
	"time"
)

// Debouncer debounces calls per key. Keys are independent: a call for one key
// never cancels the pending call of another.
type Debouncer struct {
	timers map[string]*slot
	after  time.Duration
	mu     sync.Mutex
}

type slot struct {
	timer *time.Timer
	gen   uint64
}

// New returns a Debouncer that waits after between the last call for a key
// and running its function.
func New(after time.Duration) *Debouncer {
	return &Debouncer{
		timers: make(map[string]*slot),
		after:  after,
	}
}

// Call schedules f for key, replacing whatever was pending for that key.
func (d *Debouncer) Call(key string, f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.timers[key]
	if ok {
		s.timer.Stop()
	} else {
		s = &slot{}
		d.timers[key] = s
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(d.after, func() {
		if d.release(key, gen) {
			f()
		}
	})
}

// release drops the slot for key if gen is still current. A false result
// means the timer was superseded or stopped after it had already fired.
func (d *Debouncer) release(key string, gen uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	s, ok := d.timers[key]
	if !ok || s.gen != gen {
		return false
	}
	delete(d.timers, key)
	return true
}

// Pending returns the number of keys with a scheduled call.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return len(d.timers)
}

// Stop cancels every pending call without running it.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for key, s := range d.timers {
		s.timer.Stop()
		delete(d.timers, key)
	}
}
