package storage

import (
	"strings"
	"sync"
)

// broker fans a sequence of Events out to prefix-filtered subscribers. It is
// the watch fabric beneath Store.Watch, adapted from the teacher's
// pkg/events.Broker: a buffered input channel, a single dispatch goroutine,
// and per-subscriber non-blocking sends so one slow watcher cannot stall
// delivery to the others.
type broker struct {
	mu          sync.RWMutex
	subscribers map[chan Event]string // channel -> prefix filter
	eventCh     chan Event
	stopCh      chan struct{}
	once        sync.Once
}

func newBroker() *broker {
	b := &broker{
		subscribers: make(map[chan Event]string),
		eventCh:     make(chan Event, 256),
		stopCh:      make(chan struct{}),
	}
	go b.run()
	return b
}

func (b *broker) publish(ev Event) {
	select {
	case b.eventCh <- ev:
	case <-b.stopCh:
	}
}

func (b *broker) run() {
	for {
		select {
		case ev := <-b.eventCh:
			b.broadcast(ev)
		case <-b.stopCh:
			return
		}
	}
}

func (b *broker) broadcast(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for sub, prefix := range b.subscribers {
		if !strings.HasPrefix(ev.Key, prefix) {
			continue
		}
		select {
		case sub <- ev:
		default:
			// Slow subscriber: drop. The Informer's periodic resync (spec.md
			// §4.4) repairs any events missed this way.
		}
	}
}

// subscribe registers a new prefix-filtered subscriber and returns its
// channel plus an unsubscribe func.
func (b *broker) subscribe(prefix string) (chan Event, func()) {
	ch := make(chan Event, 64)
	b.mu.Lock()
	b.subscribers[ch] = prefix
	b.mu.Unlock()

	unsub := func() {
		b.mu.Lock()
		if _, ok := b.subscribers[ch]; ok {
			delete(b.subscribers, ch)
			close(ch)
		}
		b.mu.Unlock()
	}
	return ch, unsub
}

func (b *broker) close() {
	b.once.Do(func() {
		close(b.stopCh)
		b.mu.Lock()
		for sub := range b.subscribers {
			delete(b.subscribers, sub)
			close(sub)
		}
		b.mu.Unlock()
	})
}
