package valved

import "context"

type valvedKey string

var valveKey valvedKey = valvedKey("valve")

// ValveContext creates a new valve and embeds it in a child of parent, so
// code further down the call tree can wrap its streams through UseValve
// without the trigger being threaded through every signature.
func ValveContext(parent context.Context) (context.Context, *Trigger, Valve) {
	t, v := NewValve()
	return context.WithValue(parent, valveKey, v), t, v
}

// UseValve retrieves the valve embedded by ValveContext, if any.
func UseValve(ctx context.Context) (Valve, bool) {
	v, ok := ctx.Value(valveKey).(Valve)
	return v, ok
}

// Context returns a child of parent that is cancelled when the tripwire
// fires, bridging the fire event into context-aware code. The returned
// CancelFunc releases the watching goroutine and must be called once the
// context is no longer needed.
func (tw Tripwire) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-tw.Done():
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}
