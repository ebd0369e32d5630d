package events

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
)

// State is the listener's position in its reconnect cycle
type State int32

const (
	StateConnecting State = iota
	StateStreaming
	StateDisconnected
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateDisconnected:
		return "disconnected"
	case StateStopped:
		return "stopped"
	}
	return "unknown"
}

const maxLineBytes = 1 << 20

// Handler receives every classified record. It must not block on delivery.
type Handler func(ctx context.Context, r *Record)

// ListenerOptions tunes the listener
type ListenerOptions struct {
	ReconnectDelay time.Duration // Wait after a lost stream (default 3s)
	DebugEvents    bool          // Log every record with its raw JSON
	OnStateChange  func(State)   // Optional observer, called synchronously
}

// Listener consumes the Gerrit event stream and reconnects forever
type Listener struct {
	source     Source
	classifier *Classifier
	handler    Handler
	opts       ListenerOptions
	state      atomic.Int32
	log        *logger.Logger
}

// NewListener creates a new event listener
func NewListener(src Source, classifier *Classifier, handler Handler, opts ListenerOptions) *Listener {
	if opts.ReconnectDelay <= 0 {
		opts.ReconnectDelay = 3 * time.Second
	}
	return &Listener{
		source:     src,
		classifier: classifier,
		handler:    handler,
		opts:       opts,
		log:        logger.Get().With("component", "listener"),
	}
}

// State returns the current listener state
func (l *Listener) State() State {
	return State(l.state.Load())
}

func (l *Listener) setState(s State) {
	l.state.Store(int32(s))
	listenerState.Set(float64(s))
	if l.opts.OnStateChange != nil {
		l.opts.OnStateChange(s)
	}
}

// Run streams events until ctx is cancelled. A lost stream is reopened
// after ReconnectDelay; nothing is carried over between connections.
func (l *Listener) Run(ctx context.Context) error {
	defer l.setState(StateStopped)

	for {
		l.setState(StateConnecting)

		err := l.streamOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.setState(StateDisconnected)
		reconnects.Inc()
		if err != nil {
			l.log.Warnf("Connection to Gerrit lost: %v, reconnecting in %v", err, l.opts.ReconnectDelay)
		} else {
			l.log.Warnf("Gerrit stream ended, reconnecting in %v", l.opts.ReconnectDelay)
		}

		t := time.NewTimer(l.opts.ReconnectDelay)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
}

// streamOnce opens one stream and reads it to the end
func (l *Listener) streamOnce(ctx context.Context) error {
	l.log.Infof("Connecting to event stream...")

	stream, err := l.source.Open(ctx)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}

	l.setState(StateStreaming)
	l.log.Infof("Connected, listening for events...")

	reader := bufio.NewReaderSize(stream, 64*1024)
	var readErr error
	for ctx.Err() == nil {
		line, err := readLine(reader, maxLineBytes)
		if errors.Is(err, errLineTooLong) {
			parseErrors.Inc()
			l.log.Warnf("Skipping event line longer than %d bytes", maxLineBytes)
			continue
		}
		if len(line) > 0 {
			l.handleLine(ctx, line)
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				readErr = err
			}
			break
		}
	}
	closeErr := stream.Close()

	if readErr != nil {
		return fmt.Errorf("read stream: %w", readErr)
	}
	return closeErr
}

var errLineTooLong = errors.New("event line too long")

// readLine returns the next line without its terminator. A line longer than
// limit is consumed up to its newline and reported as errLineTooLong so the
// stream stays usable.
func readLine(r *bufio.Reader, limit int) ([]byte, error) {
	var line []byte
	tooLong := false
	for {
		chunk, err := r.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > limit+1 {
				tooLong, line = true, nil
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if tooLong {
			if err == nil {
				return nil, errLineTooLong
			}
			return nil, err
		}
		return bytes.TrimRight(line, "\r\n"), err
	}
}

func (l *Listener) handleLine(ctx context.Context, line []byte) {
	rec, err := l.classifier.Parse(line)
	if err != nil {
		if errors.Is(err, ErrEmptyLine) {
			return
		}
		parseErrors.Inc()
		l.log.Warnf("Failed to parse event: %v", err)
		l.log.Debugf("Raw event: %s", line)
		return
	}

	eventsReceived.WithLabelValues(rec.Type, rec.Kind.String()).Inc()

	if l.opts.DebugEvents {
		l.log.Infof("Event %s %s #%d kind=%s commented=%t merged=%t human=%t: %s",
			rec.Type, rec.Project, rec.ChangeNumber, rec.Kind, rec.Commented, rec.Merged, rec.Human, rec.Raw)
	}

	l.handler(ctx, rec)
}
