package valved

import (
	"context"
	"errors"
	"iter"
)

// ErrEndOfStream is returned by Stream.Next once a stream has no further
// items. Every subsequent call returns it again.
var ErrEndOfStream = errors.New("end of stream")

// Stream is the pull contract wrapped by this package: each Next call blocks
// until the next item is available, the stream ends, or ctx ends. After
// returning ErrEndOfStream a stream must keep returning it; any other error
// is a delivery failure and does not have to be terminal.
type Stream[T any] interface {
	Next(ctx context.Context) (T, error)
}

// StreamFunc adapts a function to the Stream interface.
type StreamFunc[T any] func(ctx context.Context) (T, error)

func (f StreamFunc[T]) Next(ctx context.Context) (T, error) {
	return f(ctx)
}

type sliceStream[T any] struct {
	items []T
	index int
}

func (s *sliceStream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if s.index >= len(s.items) {
		return zero, ErrEndOfStream
	}
	item := s.items[s.index]
	s.index++
	return item, nil
}

// FromSlice returns a stream yielding the elements of items in order.
func FromSlice[T any](items []T) Stream[T] {
	return &sliceStream[T]{items: items}
}

type chanStream[T any] struct {
	in <-chan T
}

func (s *chanStream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	select {
	case item, ok := <-s.in:
		if !ok {
			return zero, ErrEndOfStream
		}
		return item, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// FromChan returns a stream that receives from in until it is closed.
func FromChan[T any](in <-chan T) Stream[T] {
	return &chanStream[T]{in: in}
}

type seqStream[T any] struct {
	next func() (T, bool)
	stop func()
}

func (s *seqStream[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	item, ok := s.next()
	if !ok {
		s.stop()
		return zero, ErrEndOfStream
	}
	return item, nil
}

// FromSeq returns a stream pulling from seq. The sequence is advanced one
// element per Next call and released once exhausted.
func FromSeq[T any](seq iter.Seq[T]) Stream[T] {
	next, stop := iter.Pull(seq)
	return &seqStream[T]{next: next, stop: stop}
}

// Collect drains s into a slice. It stops at end of stream, returning the
// items gathered so far; any other error is returned alongside them.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, error) {
	var out []T
	for {
		item, err := s.Next(ctx)
		if err != nil {
			if errors.Is(err, ErrEndOfStream) {
				return out, nil
			}
			return out, err
		}
		out = append(out, item)
	}
}
