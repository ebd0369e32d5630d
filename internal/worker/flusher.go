package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/dispatch"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
)

// shutdownFlushTimeout bounds the last flush after Stop
const shutdownFlushTimeout = 30 * time.Second

// Sender delivers a drained snapshot
type Sender interface {
	SendBatch(ctx context.Context, snap queue.Snapshot) dispatch.Result
}

// Flusher periodically drains the buffer and hands the snapshot to the sender.
// One cycle is drain, send, then sleep, so two drains never overlap.
type Flusher struct {
	buffer   *queue.Buffer
	sender   Sender
	interval time.Duration
	wg       sync.WaitGroup
	log      *logger.Logger
}

// NewFlusher creates a new flusher
func NewFlusher(buf *queue.Buffer, sender Sender, interval time.Duration) *Flusher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &Flusher{
		buffer:   buf,
		sender:   sender,
		interval: interval,
		log:      logger.Get().With("component", "flusher"),
	}
}

// Start runs the flush loop in the background
func (f *Flusher) Start(ctx context.Context) {
	f.log.Infof("Flushing every %v", f.interval)

	f.wg.Add(1)
	go func() {
		defer f.wg.Done()
		f.Run(ctx)
	}()
}

// Run flushes until ctx is cancelled, then flushes once more so the
// current window is not lost on shutdown.
func (f *Flusher) Run(ctx context.Context) {
	for {
		f.cycle(ctx)

		t := time.NewTimer(f.interval)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			f.finalFlush()
			return
		}
	}
}

// cycle runs one flush that keeps sending after ctx is cancelled, for at
// most shutdownFlushTimeout, so a drained snapshot is never thrown away.
func (f *Flusher) cycle(ctx context.Context) {
	sendCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	stop := context.AfterFunc(ctx, func() {
		t := time.AfterFunc(shutdownFlushTimeout, cancel)
		<-sendCtx.Done()
		t.Stop()
	})
	defer stop()

	f.FlushOnce(sendCtx)
}

func (f *Flusher) finalFlush() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownFlushTimeout)
	defer cancel()

	if n := f.buffer.Len(); n > 0 {
		f.log.Infof("Flushing %d pending message(s) before exit", n)
	}
	f.FlushOnce(ctx)
}

// FlushOnce drains the buffer and sends what it held, synchronously
func (f *Flusher) FlushOnce(ctx context.Context) dispatch.Result {
	snap := f.buffer.Drain()
	if snap == nil {
		flushes.WithLabelValues("idle").Inc()
		f.log.Debugf("Buffer is empty")
		return dispatch.Result{}
	}

	f.log.Infof("Flushing %d message(s): %v", snap.Len(), snap.Counts())

	step := f.log.Step("Flush")
	res := f.sender.SendBatch(ctx, snap)
	if res.Sent == 0 && res.Failed > 0 {
		flushes.WithLabelValues("failed").Inc()
		step.Fail(fmt.Errorf("all %d message(s) failed", res.Failed))
		return res
	}
	if res.Failed > 0 {
		flushes.WithLabelValues("partial").Inc()
		f.log.Warnf("Flush finished: sent=%d suppressed=%d failed=%d", res.Sent, res.Suppressed, res.Failed)
	} else {
		flushes.WithLabelValues("ok").Inc()
		f.log.Debugf("Flush finished: sent=%d suppressed=%d", res.Sent, res.Suppressed)
	}
	step.Complete()

	return res
}

// Stop waits for the flush loop to exit after its context is cancelled
func (f *Flusher) Stop(ctx context.Context) error {
	f.log.Info("Stopping flusher...")

	done := make(chan struct{})
	go func() {
		f.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		f.log.Info("Flusher stopped")
		return nil
	case <-ctx.Done():
		f.log.Warn("Timeout waiting for flusher")
		return ctx.Err()
	}
}
