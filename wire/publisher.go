package wire

import (
	"github.com/Kabilan-n/voxblox/tsdf"
	"github.com/Kabilan-n/voxblox/transport"
)

// Publisher publishes layer messages on a transport.Topic, tracking the
// subscriber count so that the first publish after a new subscriber joins
// is always a full replace, even if the caller only asked for a delta.
type Publisher struct {
	topic       *transport.Topic[LayerMessage]
	lastSubs    int
}

// NewPublisher wraps topic with new-subscriber tracking.
func NewPublisher(topic *transport.Topic[LayerMessage]) *Publisher {
	return &Publisher{topic: topic}
}

// PublishDelta publishes a delta message, upgrading to a full replace if a
// subscriber has joined since the last publish.
func (p *Publisher) PublishDelta(layer *tsdf.Layer) {
	subs := p.topic.NumSubscribers()
	if subs > p.lastSubs {
		p.lastSubs = subs
		p.topic.Publish(EncodeFull(layer))
		return
	}
	p.lastSubs = subs
	p.topic.Publish(EncodeDelta(layer))
}

// PublishFull always publishes a full replace, e.g. in response to the
// publish_map command.
func (p *Publisher) PublishFull(layer *tsdf.Layer) {
	p.lastSubs = p.topic.NumSubscribers()
	p.topic.Publish(EncodeFull(layer))
}
