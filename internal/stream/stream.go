// Package stream fan-outs city announcements to live subscribers
// (SSE clients on the portal dashboard).
package stream

import (
	"context"
	"sync"
	"time"
)

// Announcement is one broadcast as seen by a live subscriber.
type Announcement struct {
	Kind      string    `json:"kind"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Stream delivers announcements to all active subscribers.
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Announcement
	next int
}

func New() *Stream {
	return &Stream{subs: make(map[int]chan Announcement)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// announcements. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Announcement {
	ch := make(chan Announcement, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish fan-outs the announcement to all subscribers.
func (s *Stream) Publish(a Announcement) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- a:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}

// SubscriberCount reports how many channels are currently registered.
func (s *Stream) SubscriberCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.subs)
}
