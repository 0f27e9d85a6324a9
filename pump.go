package valved

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/avast/retry-go/v3"
	"github.com/charmbracelet/log"
)

// PumpHandler processes one item drawn from a stream.
type PumpHandler[T any] func(ctx context.Context, item T) error

// Pump drains a stream into a handler on its own goroutine, one item at a
// time, until the stream ends (naturally or through a valve), the handler
// fails permanently, or the pump is stopped. It is the consumption loop for
// streams guarded by this package: fire the trigger and the pump winds down
// after at most the in-flight item.
type Pump[T any] struct {
	stream   Stream[T]
	handler  PumpHandler[T]
	attempts uint
	onStop   func()
	running  atomic.Bool
	stopCh   chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

type PumpOption[T any] func(*Pump[T])

// WithRetry makes the pump retry a failing handler up to attempts times per
// item before giving up and stopping.
func WithRetry[T any](attempts uint) PumpOption[T] {
	return func(p *Pump[T]) {
		p.attempts = attempts
	}
}

// WithOnStop registers a callback invoked once when the pump's goroutine
// exits, whatever the reason.
func WithOnStop[T any](fn func()) PumpOption[T] {
	return func(p *Pump[T]) {
		p.onStop = fn
	}
}

func NewPump[T any](stream Stream[T], handler PumpHandler[T], opts ...PumpOption[T]) *Pump[T] {
	p := &Pump[T]{
		stream:  stream,
		handler: handler,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts the pump. It returns a channel on which at most one error is
// delivered before the channel is closed; a clean end of stream closes the
// channel without an error. Run returns nil if the pump is already running.
func (p *Pump[T]) Run(ctx context.Context) chan error {
	if !p.running.CompareAndSwap(false, true) {
		return nil // already running
	}

	p.ctx, p.cancel = context.WithCancel(ctx)
	p.stopCh = make(chan struct{})

	errChan := make(chan error, 1)

	p.wg.Add(1)
	go func() {
		defer p.cleanup(errChan)

		log.Debug("[Pump] goroutine start")
		for {
			select {
			case <-p.ctx.Done():
				errChan <- p.ctx.Err()
				return
			case <-p.stopCh:
				log.Debug("[Pump] stop requested")
				return
			default:
				item, err := p.stream.Next(p.ctx)
				if err != nil {
					if errors.Is(err, ErrEndOfStream) {
						log.Debug("[Pump] end of stream")
						return
					}
					errChan <- err
					return
				}
				if err := p.handle(item); err != nil {
					log.Error("[Pump] handler failed", "err", err)
					errChan <- err
					return
				}
			}
		}
	}()

	return errChan
}

func (p *Pump[T]) handle(item T) error {
	if p.attempts <= 1 {
		return p.handler(p.ctx, item)
	}
	return retry.Do(func() error {
		return p.handler(p.ctx, item)
	}, retry.Attempts(p.attempts))
}

func (p *Pump[T]) cleanup(errChan chan error) {
	p.cancel()
	if p.onStop != nil {
		p.onStop()
	}
	close(errChan)
	p.running.Store(false)
	p.wg.Done()
	log.Debug("[Pump] goroutine done")
}

// Stop asks the pump to exit before drawing its next item. A pull already
// blocked inside the stream is not interrupted; use Cancel for that.
func (p *Pump[T]) Stop() {
	close(p.stopCh)
}

// Cancel aborts the run context, unblocking an in-flight pull.
func (p *Pump[T]) Cancel() {
	if p.cancel != nil {
		p.cancel()
	}
}

// Wait blocks until the pump's goroutine has exited.
func (p *Pump[T]) Wait() {
	p.wg.Wait()
}
