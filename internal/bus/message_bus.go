package bus

import (
	"context"
	"sync"
)

const defaultQueueSize = 256

// MessageBus is the in-process implementation of EventPublisher and
// MessageRouter shared by the agent runtime and its tools. Event broadcast
// is synchronous fan-out to subscribed handlers; inbound/outbound routing
// is buffered channels so a tool (e.g. SessionsSendTool, the delegate
// announce path) can hand off a message without blocking on a consumer.
// A single process has exactly one MessageBus.
type MessageBus struct {
	mu       sync.RWMutex
	handlers map[string]EventHandler

	inbound  chan InboundMessage
	outbound chan OutboundMessage
}

// New returns an empty MessageBus with buffered inbound/outbound queues.
func New() *MessageBus {
	return &MessageBus{
		handlers: make(map[string]EventHandler),
		inbound:  make(chan InboundMessage, defaultQueueSize),
		outbound: make(chan OutboundMessage, defaultQueueSize),
	}
}

func (b *MessageBus) Subscribe(id string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[id] = handler
}

func (b *MessageBus) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.handlers, id)
}

func (b *MessageBus) Broadcast(event Event) {
	b.mu.RLock()
	handlers := make([]EventHandler, 0, len(b.handlers))
	for _, h := range b.handlers {
		handlers = append(handlers, h)
	}
	b.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

// PublishInbound enqueues an inbound message (e.g. a tool re-injecting a
// message as if it arrived from a channel). Drops the message rather than
// blocking once the buffered queue is full, which is where an
// unconsumed queue ends up (the standalone-CLI default).
func (b *MessageBus) PublishInbound(msg InboundMessage) {
	select {
	case b.inbound <- msg:
	default:
	}
}

// ConsumeInbound blocks until a message is available or ctx is done.
func (b *MessageBus) ConsumeInbound(ctx context.Context) (InboundMessage, bool) {
	select {
	case msg := <-b.inbound:
		return msg, true
	case <-ctx.Done():
		return InboundMessage{}, false
	}
}

// PublishOutbound enqueues a message for delivery to a channel.
func (b *MessageBus) PublishOutbound(msg OutboundMessage) {
	select {
	case b.outbound <- msg:
	default:
	}
}

// SubscribeOutbound blocks until a message is available or ctx is done.
func (b *MessageBus) SubscribeOutbound(ctx context.Context) (OutboundMessage, bool) {
	select {
	case msg := <-b.outbound:
		return msg, true
	case <-ctx.Done():
		return OutboundMessage{}, false
	}
}
