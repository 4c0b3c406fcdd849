package actor

import (
	"context"
	"errors"
	"reflect"
)

// Broker is a service actor routing typed topic messages from publishers to
// subscribers. Subscribers register a weak typed sender for a topic type;
// publishing delivers to every live subscriber and prunes dead ones. All
// routing flows through the broker's own mailbox, so the usual per-mailbox
// ordering guarantees apply transitively: two publishes of the same topic
// reach every subscriber in publish order.
type Broker struct {
	BaseActor[*Broker]

	subs map[reflect.Type][]brokerSub
}

// brokerSub is an erased weak subscription for one topic type.
type brokerSub struct {
	id      string
	deliver func(topic any) error
	stopped func() bool
}

// Default implements DefaultActor; it is what FromRegistry launches.
func (*Broker) Default() *Broker {
	return &Broker{
		subs: make(map[reflect.Type][]brokerSub),
	}
}

// RegisterHandlers implements ServiceActor.
func (*Broker) RegisterHandlers(b *Builder[*Broker]) {
	Handle(b, (*Broker).handleSubscribe)
	Handle(b, (*Broker).handlePublish)
}

// subscribeReq registers a subscriber for a topic type.
type subscribeReq struct {
	topic reflect.Type
	sub   brokerSub
}

// publishReq fans a topic value out to its subscribers.
type publishReq struct {
	topic reflect.Type
	value any
}

func (b *Broker) handleSubscribe(_ context.Context, _ *Context[*Broker],
	req subscribeReq) {

	if b.subs == nil {
		b.subs = make(map[reflect.Type][]brokerSub)
	}
	b.subs[req.topic] = append(b.subs[req.topic], req.sub)

	log.Debugf("Broker subscription added, topic=%v, subscriber=%s",
		req.topic, req.sub.id)
}

func (b *Broker) handlePublish(_ context.Context, _ *Context[*Broker],
	req publishReq) {

	subs := b.subs[req.topic]
	live := subs[:0]
	for _, sub := range subs {
		if sub.stopped() {
			continue
		}

		err := sub.deliver(req.value)
		if errors.Is(err, ErrAlreadyStopped) {
			continue
		}

		live = append(live, sub)
	}

	if len(live) != len(subs) {
		log.Debugf("Broker pruned subscribers, topic=%v, pruned=%d",
			req.topic, len(subs)-len(live))
	}
	b.subs[req.topic] = live
}

// Subscribe registers acx's actor for every future publish of topic type T.
// The actor must handle T. The subscription is weak: it never prolongs the
// subscriber, and the broker prunes it once the subscriber stops.
// Package-level generic function because methods cannot have their own type
// parameters.
func Subscribe[T, A any](ctx context.Context, acx *Context[A]) error {
	self, err := weakSenderFor[T](acx.core)
	if err != nil {
		return err
	}

	broker, err := FromRegistry[*Broker](ctx)
	if err != nil {
		return err
	}
	defer broker.Release()

	return Send(ctx, broker, subscribeReq{
		topic: msgType[T](),
		sub: brokerSub{
			id: self.ID(),
			deliver: func(topic any) error {
				return self.TrySend(topic.(T))
			},
			stopped: self.Stopped,
		},
	})
}

// Publish delivers topic to every current subscriber of its type, through
// the broker service's mailbox.
func Publish[T any](ctx context.Context, topic T) error {
	broker, err := FromRegistry[*Broker](ctx)
	if err != nil {
		return err
	}
	defer broker.Release()

	return Send(ctx, broker, publishReq{
		topic: msgType[T](),
		value: topic,
	})
}
