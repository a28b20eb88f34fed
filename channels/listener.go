package channels

import (
	"context"
	"errors"
	"sync"
	"time"
)

// errAwaitTimeout is returned by await when the timeout fires before a
// matching notification arrives. Callers map it to the appropriate
// typed error for the operation that was in flight.
var errAwaitTimeout = errors.New("timed out awaiting gateway notification")

// Listener consumes a gateway's notification stream and resolves
// awaitable futures registered against it. There is one listener per
// gateway connection; the head manager and the payment executor share
// it so that a single reader loop owns the stream.
type Listener struct {
	mtx     sync.Mutex
	waiters map[uint64]*waiter
	nextID  uint64
}

type waiter struct {
	match func(Notification) bool
	ch    chan Notification
}

// NewListener starts a listener over the gateway's notification
// stream. The run loop exits when the gateway closes its channel.
func NewListener(gateway Gateway) *Listener {
	l := &Listener{waiters: make(map[uint64]*waiter)}
	go l.run(gateway)
	return l
}

func (l *Listener) run(gateway Gateway) {
	for n := range gateway.Notifications() {
		l.dispatch(n)
	}
}

func (l *Listener) dispatch(n Notification) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	for _, w := range l.waiters {
		if !w.match(n) {
			continue
		}
		select {
		case w.ch <- n:
		default:
		}
	}
}

func (l *Listener) register(match func(Notification) bool) (uint64, chan Notification) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	id := l.nextID
	l.nextID++
	ch := make(chan Notification, 1)
	l.waiters[id] = &waiter{match: match, ch: ch}
	return id, ch
}

func (l *Listener) deregister(id uint64) {
	l.mtx.Lock()
	defer l.mtx.Unlock()

	delete(l.waiters, id)
}

// Await blocks until a notification matching the predicate arrives,
// the timeout fires, or the context is canceled. Cancellation stops
// the wait without retracting the command that was issued.
func (l *Listener) Await(ctx context.Context, timeout time.Duration, match func(Notification) bool) (Notification, error) {
	id, ch := l.register(match)
	defer l.deregister(id)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case n := <-ch:
		return n, nil
	case <-timer.C:
		return Notification{}, errAwaitTimeout
	case <-ctx.Done():
		return Notification{}, ctx.Err()
	}
}
