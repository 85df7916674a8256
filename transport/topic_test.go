package transport

import (
	"testing"

	"go.viam.com/test"
)

func TestPublishFansOutToAllSubscribers(t *testing.T) {
	topic := NewTopic[int](1)
	a := topic.Subscribe()
	b := topic.Subscribe()
	topic.Publish(42)

	test.That(t, <-a.C(), test.ShouldEqual, 42)
	test.That(t, <-b.C(), test.ShouldEqual, 42)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	topic := NewTopic[int](1)
	sub := topic.Subscribe()
	sub.Unsubscribe()
	test.That(t, topic.NumSubscribers(), test.ShouldEqual, 0)
	topic.Publish(1) // must not panic with no subscribers
}

func TestFullBufferDoesNotBlockPublisher(t *testing.T) {
	topic := NewTopic[int](1)
	sub := topic.Subscribe()
	topic.Publish(1)
	topic.Publish(2) // buffer already full; must be dropped, not block
	test.That(t, <-sub.C(), test.ShouldEqual, 1)
}
