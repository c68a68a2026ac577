package intake

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
)

// Limiter admits at most one event per interval into the verification
// pipeline. Pending events coalesce: when a slot opens only the most
// recently arrived event is admitted and the backlog is discarded. Runs are
// serialized; a window that opens mid-run holds the pending event until the
// run finishes.
type Limiter struct {
	interval time.Duration
	poll     time.Duration
	admit    func(types.Event)

	mu        sync.Mutex
	pending   *types.Event
	dropped   int
	lastAdmit time.Time
	inFlight  bool
}

func New(interval, poll time.Duration, admit func(types.Event)) *Limiter {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if poll <= 0 {
		poll = 10 * time.Second
	}
	return &Limiter{
		interval: interval,
		poll:     poll,
		admit:    admit,
		// The first admission waits a full interval after startup.
		lastAdmit: time.Now(),
	}
}

// Submit queues an event for admission, superseding any older pending one.
func (l *Limiter) Submit(ev types.Event) {
	l.mu.Lock()
	if l.pending != nil {
		l.dropped++
	}
	l.pending = &ev
	l.mu.Unlock()

	l.tryAdmit()
}

// Start runs the periodic admission check until ctx is done, covering the
// case where no new event arrives to trigger the check inline.
func (l *Limiter) Start(ctx context.Context) {
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.tryAdmit()
		}
	}
}

func (l *Limiter) tryAdmit() {
	l.mu.Lock()
	if l.pending == nil || l.inFlight || time.Since(l.lastAdmit) < l.interval {
		l.mu.Unlock()
		return
	}
	ev := *l.pending
	dropped := l.dropped
	l.pending = nil
	l.dropped = 0
	l.lastAdmit = time.Now()
	l.inFlight = true
	l.mu.Unlock()

	if dropped > 0 {
		log.Printf("intake: admitting event %s, dropped %d superseded", ev.ID, dropped)
	}

	go func() {
		defer func() {
			l.mu.Lock()
			l.inFlight = false
			l.mu.Unlock()
			l.tryAdmit()
		}()
		l.admit(ev)
	}()
}
