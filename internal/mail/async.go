package mail

import (
	"sync"

	"qala.org/internal/obs"
)

type job struct {
	to, subject, body string
}

// AsyncMailer offloads delivery to a single worker goroutine so callers
// never block on a slow SMTP exchange. Fire-and-forget: results reach the
// caller only through the optional OnResult callback, never shared state.
// No cancellation or timeout is applied to an in-flight send.
type AsyncMailer struct {
	inner    Mailer
	jobs     chan job
	OnResult func(to string, ok bool, message string)

	closeOnce sync.Once
	done      chan struct{}
}

// NewAsyncMailer starts the worker over the given delivery backend.
func NewAsyncMailer(inner Mailer, queueSize int) *AsyncMailer {
	if queueSize <= 0 {
		queueSize = 64
	}
	a := &AsyncMailer{
		inner: inner,
		jobs:  make(chan job, queueSize),
		done:  make(chan struct{}),
	}
	go a.run()
	return a
}

func (a *AsyncMailer) run() {
	defer close(a.done)
	for j := range a.jobs {
		ok, msg := a.inner.Send(j.to, j.subject, j.body)
		if !ok {
			obs.Trace("mail.send_failed", map[string]any{"to": j.to, "reason": msg})
		}
		if a.OnResult != nil {
			a.OnResult(j.to, ok, msg)
		}
	}
}

// Send enqueues the message and reports acceptance, not delivery. A full
// queue drops the message: best effort by contract.
func (a *AsyncMailer) Send(to, subject, body string) (bool, string) {
	select {
	case a.jobs <- job{to: to, subject: subject, body: body}:
		return true, "Email queued."
	default:
		obs.Trace("mail.queue_full", map[string]any{"to": to})
		return false, "Mail Could Not Be Sent: queue full"
	}
}

// Close stops accepting work and waits for the worker to drain the queue.
func (a *AsyncMailer) Close() {
	a.closeOnce.Do(func() {
		close(a.jobs)
		<-a.done
	})
}
