package worker

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/dispatch"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/transport"
)

var dev = router.Destination{Kind: router.Channel, Name: "dev"}

type fakeSender struct {
	mu      sync.Mutex
	batches []queue.Snapshot
	active  atomic.Int32
	overlap atomic.Bool
	delay   time.Duration
}

func (s *fakeSender) SendBatch(ctx context.Context, snap queue.Snapshot) dispatch.Result {
	if s.active.Add(1) > 1 {
		s.overlap.Store(true)
	}
	defer s.active.Add(-1)

	time.Sleep(s.delay)
	s.mu.Lock()
	s.batches = append(s.batches, snap)
	s.mu.Unlock()
	return dispatch.Result{Sent: snap.Len()}
}

func (s *fakeSender) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, snap := range s.batches {
		for _, b := range snap {
			out = append(out, b.Messages...)
		}
	}
	return out
}

func TestFlushOnceIdle(t *testing.T) {
	s := &fakeSender{}
	f := NewFlusher(queue.NewBuffer(), s, time.Second)

	assert.Equal(t, dispatch.Result{}, f.FlushOnce(context.Background()))
	assert.Empty(t, s.batches, "empty buffer is never handed to the sender")
}

func TestFlushOnceDrainsEverything(t *testing.T) {
	buf := queue.NewBuffer()
	buf.Enqueue(dev, "one")
	buf.Enqueue(dev, "two")
	s := &fakeSender{}

	res := NewFlusher(buf, s, time.Second).FlushOnce(context.Background())

	assert.Equal(t, 2, res.Sent)
	assert.Equal(t, []string{"one", "two"}, s.messages())
	assert.Equal(t, 0, buf.Len())
}

func TestFlusherLoopNeverOverlaps(t *testing.T) {
	buf := queue.NewBuffer()
	s := &fakeSender{delay: 15 * time.Millisecond}
	f := NewFlusher(buf, s, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	f.Start(ctx)

	for i := 0; i < 20; i++ {
		buf.Enqueue(dev, "m")
		time.Sleep(3 * time.Millisecond)
	}

	require.Eventually(t, func() bool { return len(s.messages()) == 20 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, f.Stop(context.Background()))

	assert.False(t, s.overlap.Load(), "two flushes ran concurrently")
}

func TestFlusherFinalFlushOnStop(t *testing.T) {
	buf := queue.NewBuffer()
	s := &fakeSender{}
	f := NewFlusher(buf, s, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	f.Start(ctx)

	// First cycle runs immediately on an empty buffer, then sleeps an hour.
	time.Sleep(20 * time.Millisecond)
	buf.Enqueue(dev, "late")
	cancel()
	require.NoError(t, f.Stop(context.Background()))

	assert.Equal(t, []string{"late"}, s.messages())
}

func TestFlusherFinishesBatchInterruptedByCancel(t *testing.T) {
	buf := queue.NewBuffer()
	for i := 0; i < 10; i++ {
		buf.Enqueue(dev, fmt.Sprintf("m%d", i))
	}
	dry := transport.NewDryRun()
	d := dispatch.New(dry, dispatch.Options{SendInterval: 20 * time.Millisecond})
	f := NewFlusher(buf, d, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	f.Start(ctx)

	require.Eventually(t, func() bool { return len(dry.Sent()) >= 2 }, 2*time.Second, time.Millisecond)
	cancel()
	require.NoError(t, f.Stop(context.Background()))

	sent := dry.Sent()
	require.Len(t, sent, 10)
	assert.Equal(t, "m9", sent[9].Text)
	assert.Equal(t, 0, buf.Len())
}

func TestFlushOnceAllFailed(t *testing.T) {
	buf := queue.NewBuffer()
	buf.Enqueue(dev, "")
	d := dispatch.New(transport.NewDryRun(), dispatch.Options{})

	res := NewFlusher(buf, d, time.Second).FlushOnce(context.Background())

	assert.Equal(t, dispatch.Result{Failed: 1}, res)
}

func TestFlusherStopTimeout(t *testing.T) {
	buf := queue.NewBuffer()
	buf.Enqueue(dev, "slow")
	s := &fakeSender{delay: 200 * time.Millisecond}
	f := NewFlusher(buf, s, time.Hour)

	f.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, f.Stop(ctx), context.DeadlineExceeded)
}
