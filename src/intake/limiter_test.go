package intake

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nostrlabs/nostroracle/src/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu       sync.Mutex
	admitted []types.Event
}

func (r *recorder) admit(ev types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.admitted = append(r.admitted, ev)
}

func (r *recorder) events() []types.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.Event, len(r.admitted))
	copy(out, r.admitted)
	return out
}

func event(i int) types.Event {
	return types.Event{ID: fmt.Sprintf("ev%d", i), Content: fmt.Sprintf("content %d", i)}
}

func TestBurstCoalescesToNewestEvent(t *testing.T) {
	rec := &recorder{}
	l := New(60*time.Millisecond, 5*time.Millisecond, rec.admit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	for i := 1; i <= 5; i++ {
		l.Submit(event(i))
	}

	// Nothing is admitted before the interval elapses.
	time.Sleep(20 * time.Millisecond)
	assert.Empty(t, rec.events())

	time.Sleep(80 * time.Millisecond)
	got := rec.events()
	require.Len(t, got, 1)
	assert.Equal(t, "ev5", got[0].ID)
}

func TestOneAdmissionPerInterval(t *testing.T) {
	rec := &recorder{}
	l := New(50*time.Millisecond, 5*time.Millisecond, rec.admit)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	// Keep the queue non-empty across two intervals.
	for i := 0; i < 12; i++ {
		l.Submit(event(i))
		time.Sleep(10 * time.Millisecond)
	}

	got := rec.events()
	assert.GreaterOrEqual(t, len(got), 1)
	assert.LessOrEqual(t, len(got), 2)
}

func TestRunsAreSerialized(t *testing.T) {
	release := make(chan struct{})
	var mu sync.Mutex
	running := 0
	maxRunning := 0

	l := New(10*time.Millisecond, 5*time.Millisecond, func(types.Event) {
		mu.Lock()
		running++
		if running > maxRunning {
			maxRunning = running
		}
		mu.Unlock()
		<-release
		mu.Lock()
		running--
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Start(ctx)

	l.Submit(event(1))
	time.Sleep(30 * time.Millisecond)
	// First run is in flight and blocked; later submissions must queue.
	l.Submit(event(2))
	l.Submit(event(3))
	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, maxRunning)
	mu.Unlock()

	close(release)
	time.Sleep(40 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 1, maxRunning)
	mu.Unlock()
}
