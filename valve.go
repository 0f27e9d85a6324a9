package valved

import (
	"context"
	"errors"
	"iter"
)

// Valve mints guarded streams sharing one fire event. It is a copyable value
// around a Tripwire: any number of copies may coexist, and every stream
// wrapped through any of them terminates when the associated Trigger is
// closed. Obtain one from NewValve or ValveContext.
type Valve struct {
	tw Tripwire
}

// NewValve creates a valve together with the Trigger that shuts down every
// stream it will ever wrap.
func NewValve() (*Trigger, Valve) {
	t, tw := NewTripwire()
	return t, Valve{tw: tw}
}

// Tripwire returns the valve's underlying tripwire, for selecting on the
// fire event directly.
func (v Valve) Tripwire() Tripwire {
	return v.tw
}

// Wrap guards s with v's tripwire. The result yields exactly what s yields
// until the valve's trigger is closed, after which it reports end of stream
// on its next poll and forever after, without drawing anything further from
// s. Wrap has no effect on s until the result is polled; the same valve may
// wrap any number of streams.
//
// Wrap is a package-level function because Go methods cannot introduce type
// parameters.
func Wrap[T any](v Valve, s Stream[T]) *Valved[T] {
	return &Valved[T]{inner: s, tw: v.tw}
}

// NewValved guards s with a fresh valve and returns the trigger that stops
// it. Shorthand for NewValve followed by Wrap when only one stream needs
// guarding.
func NewValved[T any](s Stream[T]) (*Trigger, *Valved[T]) {
	t, v := NewValve()
	return t, Wrap(v, s)
}

// Valved is a stream that additionally terminates when its tripwire fires.
// Each instance is polled independently and holds its own wrapped stream;
// instances built from the same valve share only their termination fate.
// Discarding a Valved never affects its siblings or the trigger.
type Valved[T any] struct {
	inner    Stream[T]
	tw       Tripwire
	terminal bool
}

// Next implements Stream. The fired check comes before the wrapped stream is
// consulted, so a fire wins any race with an item that was already waiting:
// at most one in-flight poll completes after the trigger closes. A poll
// parked inside the wrapped stream when the fire lands is woken by context
// cancellation and reports end of stream.
func (v *Valved[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if v.terminal {
		return zero, ErrEndOfStream
	}
	if v.tw.Fired() {
		v.terminal = true
		return zero, ErrEndOfStream
	}

	innerCtx, cancel := context.WithCancel(ctx)
	unpark := make(chan struct{})
	go func() {
		select {
		case <-v.tw.Done():
			cancel()
		case <-unpark:
		}
	}()

	item, err := v.inner.Next(innerCtx)
	close(unpark)
	cancel()

	if err == nil {
		// The wrapped stream committed to this item before the fire (if
		// any) was observed; deliver it. The following poll is terminal.
		return item, nil
	}
	if errors.Is(err, ErrEndOfStream) {
		v.terminal = true
		return zero, ErrEndOfStream
	}
	if v.tw.Fired() && errors.Is(err, context.Canceled) && ctx.Err() == nil {
		// Our own cancellation unparked the delegated poll.
		v.terminal = true
		return zero, ErrEndOfStream
	}
	return zero, err
}

// WrapChan guards a receive channel with v's tripwire. The returned channel
// carries items from in and is closed when in closes or the valve fires,
// whichever comes first. The fire event has priority at each forwarding
// step, though an item already in the final send race with a concurrent
// receiver can still be delivered; callers needing the strict ordering
// should poll a Valved instead.
func WrapChan[T any](v Valve, in <-chan T) <-chan T {
	out := make(chan T)
	done := v.tw.Done()
	go func() {
		defer close(out)
		for {
			if v.tw.Fired() {
				return
			}
			select {
			case <-done:
				return
			case item, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- item:
				case <-done:
					return
				}
			}
		}
	}()
	return out
}

// WrapSeq guards an iter.Seq with v's tripwire. The fired check happens
// before each element is drawn, so once the valve fires nothing more is
// pulled from seq, even mid-iteration.
func WrapSeq[T any](v Valve, seq iter.Seq[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		next, stop := iter.Pull(seq)
		defer stop()
		for {
			if v.tw.Fired() {
				return
			}
			item, ok := next()
			if !ok {
				return
			}
			if !yield(item) {
				return
			}
		}
	}
}
