package session

import (
	"sync"

	"thoughtbox/internal/editor"
)

// feedBuffer is how many status changes a slow subscriber may fall behind
// before it starts missing intermediate ones.
const feedBuffer = 8

// statusFeed fans a session's status changes out to its subscribers.
// Publish never blocks: the status machine calls it with its lock held.
type statusFeed struct {
	mu     sync.Mutex
	subs   map[chan editor.Status]struct{}
	closed bool
}

func newStatusFeed() *statusFeed {
	return &statusFeed{subs: make(map[chan editor.Status]struct{})}
}

func (f *statusFeed) publish(s editor.Status) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for ch := range f.subs {
		select {
		case ch <- s:
		default:
			// Drop the oldest so the latest status always gets through
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// subscribe returns a channel of status changes and a function that ends
// the subscription. The channel is closed when either runs.
func (f *statusFeed) subscribe() (<-chan editor.Status, func()) {
	ch := make(chan editor.Status, feedBuffer)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return ch, func() {}
	}
	f.subs[ch] = struct{}{}
	return ch, func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if _, ok := f.subs[ch]; ok {
			delete(f.subs, ch)
			close(ch)
		}
	}
}

func (f *statusFeed) close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for ch := range f.subs {
		delete(f.subs, ch)
		close(ch)
	}
}
