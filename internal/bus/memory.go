package bus

import (
	"context"
	"sync"

	"github.com/errorterry/algotrack-agent/internal/messages"
)

// subscriberBuffer bounds how far one slow subscriber can fall behind
// before deliveries to it are dropped.
const subscriberBuffer = 64

type subscriber struct {
	topic string
	ch    chan messages.Envelope
	done  chan struct{}
}

// Memory is the in-process transport: every context runs in one process
// and topics are plain fan-out channels. Each subscriber gets its own
// pump goroutine so handlers in one context run in order without blocking
// publishers in another.
type Memory struct {
	mu     sync.Mutex
	subs   map[int]*subscriber
	nextID int
	closed bool
	wg     sync.WaitGroup
}

// NewMemory creates an in-process bus.
func NewMemory() *Memory {
	return &Memory{subs: make(map[int]*subscriber)}
}

// Publish delivers env to every subscriber of topic. Subscribers with a
// full buffer are skipped.
func (b *Memory) Publish(_ context.Context, topic string, env messages.Envelope) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	for _, sub := range b.subs {
		if sub.topic != topic {
			continue
		}
		select {
		case sub.ch <- env:
		default:
		}
	}
	return nil
}

// Subscribe registers h for topic.
func (b *Memory) Subscribe(topic string, h Handler) (cancel func()) {
	sub := &subscriber{
		topic: topic,
		ch:    make(chan messages.Envelope, subscriberBuffer),
		done:  make(chan struct{}),
	}

	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = sub
	b.mu.Unlock()

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case env := <-sub.ch:
				h(context.Background(), env)
			case <-sub.done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(sub.done)
		})
	}
}

// Close drops all subscriptions and waits for pumps to stop.
func (b *Memory) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[int]*subscriber)
	b.mu.Unlock()

	for _, sub := range subs {
		close(sub.done)
	}
	b.wg.Wait()
	return nil
}
