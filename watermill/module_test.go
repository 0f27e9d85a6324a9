package watermillextension

import (
	"context"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/davidroman0O/valved"
)

func TestValvedSubscriberDeliversUntilFire(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubSub.Close()

	trigger, valve := valved.NewValve()
	sub := NewValvedSubscriber(valve, pubSub, logger)

	messages, err := sub.Subscribe(ctx, "events")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	if err := pubSub.Publish("events", message.NewMessage(watermill.NewUUID(), []byte("one"))); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case msg, ok := <-messages:
		if !ok {
			t.Fatal("subscription closed before fire")
		}
		if string(msg.Payload) != "one" {
			t.Errorf("expected payload one, got %s", msg.Payload)
		}
		msg.Ack()
	case <-time.After(2 * time.Second):
		t.Fatal("message never delivered")
	}

	trigger.Close()

	select {
	case msg, ok := <-messages:
		if ok {
			// A message already in the final send race can still land; the
			// channel must close right after it.
			msg.Ack()
			select {
			case _, ok := <-messages:
				if ok {
					t.Fatal("subscription kept delivering after fire")
				}
			case <-time.After(2 * time.Second):
				t.Fatal("subscription never closed after fire")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("subscription never closed after fire")
	}
}

func TestValvedSubscriberSharedFate(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)
	defer pubSub.Close()

	trigger, valve := valved.NewValve()
	sub := NewValvedSubscriber(valve, pubSub, logger)

	first, err := sub.Subscribe(ctx, "a")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}
	second, err := sub.Subscribe(ctx, "b")
	if err != nil {
		t.Fatalf("subscribe failed: %v", err)
	}

	trigger.Close()

	for name, ch := range map[string]<-chan *message.Message{"first": first, "second": second} {
		select {
		case _, ok := <-ch:
			if ok {
				t.Errorf("%s subscription delivered after fire", name)
			}
		case <-time.After(2 * time.Second):
			t.Errorf("%s subscription never closed after fire", name)
		}
	}
}

func TestValvedSubscriberClose(t *testing.T) {
	logger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, logger)

	_, valve := valved.NewValve()
	sub := NewValvedSubscriber(valve, pubSub, nil)

	if err := sub.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
}
