package valved

import (
	"sync"
	"sync/atomic"
)

// tripState is the single shared cell behind a tripwire lineage. Every
// Tripwire copy and the Trigger created alongside them point at the same
// instance. The closed channel doubles as the waiter registry: goroutines
// park by selecting on it, and closing it wakes all of them at once.
type tripState struct {
	fired atomic.Bool
	once  sync.Once
	done  chan struct{}
}

// Tripwire is a one-shot, multi-consumer close notification. It is a cheap
// value type: copying a Tripwire yields another handle onto the same shared
// state, and every copy observes the same fire event. The zero value is not
// usable; obtain one from NewTripwire or NewValve.
type Tripwire struct {
	s *tripState
}

// Trigger is the unique capability to fire the Tripwire it was created with.
// Close fires at most once; Go cannot consume a receiver at the type level,
// so a second Close is a no-op rather than a compile error.
type Trigger struct {
	s *tripState
}

// NewTripwire creates a tripwire in its armed state, returning the one
// Trigger allowed to fire it together with a Tripwire handle.
func NewTripwire() (*Trigger, Tripwire) {
	s := &tripState{
		done: make(chan struct{}),
	}
	return &Trigger{s: s}, Tripwire{s: s}
}

// Done returns a channel that is closed once the tripwire has fired. It is
// the same channel for every copy of the Tripwire, so any number of
// goroutines may select on it concurrently.
func (tw Tripwire) Done() <-chan struct{} {
	return tw.s.done
}

// Fired reports whether the tripwire has fired. It is a single atomic load,
// safe from any goroutine, and stays true forever once set. Fired is set
// before Done is closed, so observing the closed channel implies Fired.
func (tw Tripwire) Fired() bool {
	return tw.s.fired.Load()
}

// Close fires the tripwire, permanently waking everything parked on any
// copy's Done channel. Calling Close again, or firing with no listeners at
// all, is harmless.
func (t *Trigger) Close() {
	t.s.once.Do(func() {
		t.s.fired.Store(true)
		close(t.s.done)
	})
}

// Closed reports whether this trigger's tripwire has already fired.
func (t *Trigger) Closed() bool {
	return t.s.fired.Load()
}
