// bus.go
package bus

import (
	"context"
	"reflect"
	"sync"

	"pulsedpin-go/errcode"
	"pulsedpin-go/x/conv"
)

// Wildcard tokens. "+" matches exactly one level, "#" matches zero or more
// trailing levels and must be last.
const (
	Single = "+"
	Multi  = "#"
)

// -----------------------------------------------------------------------------
// Topics
// -----------------------------------------------------------------------------

// Topic is a sequence of comparable tokens (strings or ints in practice).
type Topic []any

// T builds a topic. It panics on a non-comparable token, which would
// otherwise panic later as a map key.
func T(tokens ...any) Topic {
	for _, tok := range tokens {
		if tok == nil || !reflect.TypeOf(tok).Comparable() {
			panic("bus: topic token is not comparable")
		}
	}
	return Topic(tokens)
}

func (t Topic) Len() int     { return len(t) }
func (t Topic) At(i int) any { return t[i] }
func (t Topic) Append(tok ...any) Topic {
	out := make(Topic, 0, len(t)+len(tok))
	out = append(out, t...)
	return append(out, tok...)
}

// String renders the topic as "a/b/3" for logs.
func (t Topic) String() string {
	var b []byte
	for i, tok := range t {
		if i > 0 {
			b = append(b, '/')
		}
		switch v := tok.(type) {
		case string:
			b = append(b, v...)
		case int:
			b = appendInt(b, int64(v))
		default:
			b = append(b, '?')
		}
	}
	return string(b)
}

func appendInt(b []byte, v int64) []byte {
	u := uint64(v)
	if v < 0 {
		b = append(b, '-')
		u = -u
	}
	var buf [20]byte
	return append(b, conv.Utoa(buf[:], u)...)
}

// -----------------------------------------------------------------------------
// Message
// -----------------------------------------------------------------------------

type Message struct {
	Topic    Topic
	Payload  any
	Retained bool
	ReplyTo  Topic
}

// -----------------------------------------------------------------------------
// Subscription
// -----------------------------------------------------------------------------

type Subscription struct {
	topic Topic
	ch    chan *Message
	conn  *Connection
}

func (s *Subscription) Topic() Topic             { return s.topic }
func (s *Subscription) Channel() <-chan *Message { return s.ch }
func (s *Subscription) Unsubscribe()             { s.conn.Unsubscribe(s) }

// deliver never blocks the publisher: when the queue is full the oldest
// message is dropped.
func (s *Subscription) deliver(m *Message) {
	for {
		select {
		case s.ch <- m:
			return
		default:
		}
		select {
		case <-s.ch:
		default:
		}
	}
}

// -----------------------------------------------------------------------------
// Trie
// -----------------------------------------------------------------------------

type node struct {
	children map[any]*node
	subs     []*Subscription
	retained *Message
}

func (n *node) child(tok any, create bool) *node {
	if c, ok := n.children[tok]; ok {
		return c
	}
	if !create {
		return nil
	}
	if n.children == nil {
		n.children = make(map[any]*node)
	}
	c := &node{}
	n.children[tok] = c
	return c
}

// match collects subscriptions whose filter matches topic[i:].
func (n *node) match(topic Topic, i int, out []*Subscription) []*Subscription {
	if m := n.children[Multi]; m != nil {
		out = append(out, m.subs...)
	}
	if i == len(topic) {
		return append(out, n.subs...)
	}
	if c := n.children[topic[i]]; c != nil {
		out = c.match(topic, i+1, out)
	}
	if c := n.children[Single]; c != nil {
		out = c.match(topic, i+1, out)
	}
	return out
}

// retainedFor collects retained messages matching filter[i:].
func (n *node) retainedFor(filter Topic, i int, out []*Message) []*Message {
	if i == len(filter) {
		if n.retained != nil {
			out = append(out, n.retained)
		}
		return out
	}
	switch filter[i] {
	case Multi:
		return n.walkRetained(out)
	case Single:
		for _, c := range n.children {
			out = c.retainedFor(filter, i+1, out)
		}
		return out
	}
	if c := n.children[filter[i]]; c != nil {
		out = c.retainedFor(filter, i+1, out)
	}
	return out
}

func (n *node) walkRetained(out []*Message) []*Message {
	if n.retained != nil {
		out = append(out, n.retained)
	}
	for _, c := range n.children {
		out = c.walkRetained(out)
	}
	return out
}

// -----------------------------------------------------------------------------
// Bus
// -----------------------------------------------------------------------------

// Bus is an in-process topic bus. Subscriptions are filters that may contain
// wildcards; published topics are concrete. Filters and retained messages
// live in separate tries; retained messages are replayed to new matching
// subscriptions.
type Bus struct {
	mu   sync.RWMutex
	subs *node
	keep *node
	qLen int
	seq  uint32
}

// NewBus creates a new bus with the given subscription queue length.
func NewBus(queueLen int) *Bus {
	if queueLen <= 0 {
		queueLen = 8
	}
	return &Bus{subs: &node{}, keep: &node{}, qLen: queueLen}
}

func (b *Bus) NewMessage(t Topic, payload any, retained bool) *Message {
	return &Message{Topic: t, Payload: payload, Retained: retained}
}

// Publish delivers msg to every matching subscription. A retained message
// with a nil payload clears the retained slot.
func (b *Bus) Publish(msg *Message) {
	b.mu.Lock()
	if msg.Retained {
		n := b.keep
		for _, tok := range msg.Topic {
			n = n.child(tok, true)
		}
		if msg.Payload == nil {
			n.retained = nil
		} else {
			n.retained = msg
		}
	}
	// Deliver under the lock so Unsubscribe cannot close a channel mid-send.
	for _, s := range b.subs.match(msg.Topic, 0, nil) {
		s.deliver(msg)
	}
	b.mu.Unlock()
}

func (b *Bus) addSubscription(sub *Subscription) {
	b.mu.Lock()
	n := b.subs
	for _, tok := range sub.topic {
		n = n.child(tok, true)
	}
	n.subs = append(n.subs, sub)
	for _, m := range b.keep.retainedFor(sub.topic, 0, nil) {
		sub.deliver(m)
	}
	b.mu.Unlock()
}

func (b *Bus) removeSubscription(sub *Subscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	path := make([]*node, 0, len(sub.topic)+1)
	n := b.subs
	path = append(path, n)
	for _, tok := range sub.topic {
		if n = n.child(tok, false); n == nil {
			return
		}
		path = append(path, n)
	}
	for i, s := range n.subs {
		if s == sub {
			n.subs = append(n.subs[:i], n.subs[i+1:]...)
			break
		}
	}

	// Prune empty nodes bottom-up.
	for i := len(sub.topic) - 1; i >= 0; i-- {
		parent, c := path[i], path[i+1]
		if len(c.subs) != 0 || len(c.children) != 0 {
			break
		}
		delete(parent.children, sub.topic[i])
	}
}

func (b *Bus) nextReplyTopic(id string) Topic {
	b.mu.Lock()
	b.seq++
	n := int(b.seq)
	b.mu.Unlock()
	return Topic{"_rr", id, n}
}

// -----------------------------------------------------------------------------
// Connection
// -----------------------------------------------------------------------------

// Connection owns a set of subscriptions on behalf of one service.
type Connection struct {
	bus  *Bus
	id   string
	mu   sync.Mutex
	subs []*Subscription
}

// NewConnection creates a new connection bound to this bus.
func (b *Bus) NewConnection(id string) *Connection {
	return &Connection{bus: b, id: id}
}

func (c *Connection) ID() string { return c.id }

func (c *Connection) NewMessage(t Topic, payload any, retained bool) *Message {
	return c.bus.NewMessage(t, payload, retained)
}

func (c *Connection) Publish(msg *Message) { c.bus.Publish(msg) }

// Subscribe registers a filter owned by this connection.
func (c *Connection) Subscribe(filter Topic) *Subscription {
	sub := &Subscription{
		topic: filter,
		ch:    make(chan *Message, c.bus.qLen),
		conn:  c,
	}
	c.mu.Lock()
	c.subs = append(c.subs, sub)
	c.mu.Unlock()
	c.bus.addSubscription(sub)
	return sub
}

// Unsubscribe removes sub and closes its channel.
func (c *Connection) Unsubscribe(sub *Subscription) {
	c.mu.Lock()
	found := false
	for i, s := range c.subs {
		if s == sub {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			found = true
			break
		}
	}
	c.mu.Unlock()
	if !found {
		return
	}
	c.bus.removeSubscription(sub)
	close(sub.ch)
}

// Disconnect closes all subscriptions.
func (c *Connection) Disconnect() {
	c.mu.Lock()
	subs := c.subs
	c.subs = nil
	c.mu.Unlock()

	for _, sub := range subs {
		c.bus.removeSubscription(sub)
		close(sub.ch)
	}
}

// Request publishes msg with a fresh ReplyTo topic and returns the
// subscription on which replies arrive. The caller unsubscribes.
func (c *Connection) Request(msg *Message) *Subscription {
	msg.ReplyTo = c.bus.nextReplyTopic(c.id)
	sub := c.Subscribe(msg.ReplyTo)
	c.Publish(msg)
	return sub
}

// RequestWait sends msg and waits for the first reply or ctx expiry.
func (c *Connection) RequestWait(ctx context.Context, msg *Message) (*Message, error) {
	sub := c.Request(msg)
	defer c.Unsubscribe(sub)

	select {
	case m := <-sub.Channel():
		return m, nil
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return nil, errcode.Timeout
		}
		return nil, ctx.Err()
	}
}

// Reply answers req on its ReplyTo topic. Requests without one are ignored.
func (c *Connection) Reply(req *Message, payload any, retained bool) {
	if req == nil || len(req.ReplyTo) == 0 {
		return
	}
	c.Publish(c.NewMessage(req.ReplyTo, payload, retained))
}
