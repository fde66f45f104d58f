package stream

import (
	"context"
	"testing"
	"time"
)

func TestPublishReachesSubscribers(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx)
	s.Publish(Announcement{Kind: "FIRE", Message: "downtown", Timestamp: time.Now()})

	select {
	case got := <-ch:
		if got.Kind != "FIRE" || got.Message != "downtown" {
			t.Fatalf("unexpected announcement: %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("announcement not delivered")
	}
}

func TestSlowSubscriberIsNotBlocking(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_ = s.Subscribe(ctx)
	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			s.Publish(Announcement{Message: "flood"})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestUnsubscribeOnContextEnd(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Subscribe(ctx)
	cancel()

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				if n := s.SubscriberCount(); n != 0 {
					t.Fatalf("subscriber still registered: %d", n)
				}
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after context cancel")
		}
	}
}
