package watermillextension

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/davidroman0O/valved"
)

// ValvedSubscriber decorates a watermill subscriber so that every
// subscription it hands out terminates when the valve fires. Messages pulled
// from the underlying subscription but not yet delivered when the fire lands
// are Nacked, leaving redelivery to the broker.
type ValvedSubscriber struct {
	valve  valved.Valve
	sub    message.Subscriber
	logger watermill.LoggerAdapter
}

// NewValvedSubscriber wraps sub with v. A nil logger falls back to
// watermill's standard logger.
func NewValvedSubscriber(v valved.Valve, sub message.Subscriber, logger watermill.LoggerAdapter) *ValvedSubscriber {
	if logger == nil {
		logger = watermill.NewStdLogger(false, false)
	}
	return &ValvedSubscriber{
		valve:  v,
		sub:    sub,
		logger: logger,
	}
}

// Subscribe implements message.Subscriber. The returned channel carries
// messages from the underlying subscription and is closed when that
// subscription ends or the valve fires, whichever comes first.
func (s *ValvedSubscriber) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	in, err := s.sub.Subscribe(ctx, topic)
	if err != nil {
		return nil, err
	}

	tw := s.valve.Tripwire()
	out := make(chan *message.Message)

	go func() {
		defer close(out)
		for {
			if tw.Fired() {
				s.logger.Debug("Valve fired, ending subscription", watermill.LogFields{"topic": topic})
				return
			}
			select {
			case <-tw.Done():
				s.logger.Debug("Valve fired, ending subscription", watermill.LogFields{"topic": topic})
				return
			case msg, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-tw.Done():
					msg.Nack()
					s.logger.Debug("Valve fired, nacking in-flight message", watermill.LogFields{
						"topic":        topic,
						"message_uuid": msg.UUID,
					})
					return
				}
			}
		}
	}()

	return out, nil
}

// Close implements message.Subscriber by closing the underlying subscriber.
func (s *ValvedSubscriber) Close() error {
	return s.sub.Close()
}
