package dispatch

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/queue"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/router"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/transport"
)

type fakeTransport struct {
	mu     sync.Mutex
	sent   []transport.Message
	at     []time.Time
	failOn string
}

func (f *fakeTransport) Send(_ context.Context, msg transport.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.at = append(f.at, time.Now())
	if f.failOn != "" && strings.Contains(msg.Text, f.failOn) {
		return errors.New("rate_limited")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeTransport) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, m := range f.sent {
		out = append(out, m.Channel+" "+m.Text)
	}
	return out
}

var (
	backend = router.Destination{Kind: router.Channel, Name: "backend"}
	alice   = router.Destination{Kind: router.User, Name: "alice"}
)

func snapshot() queue.Snapshot {
	return queue.Snapshot{
		{Destination: backend, Messages: []string{"b1", "b2 spam", "b3"}},
		{Destination: alice, Messages: []string{"a1"}},
	}
}

func TestSendBatchSuppressesIgnoreWords(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft, Options{IgnoreWords: []string{"spam"}})

	res := d.SendBatch(context.Background(), snapshot())

	assert.Equal(t, Result{Sent: 3, Suppressed: 1}, res)
	assert.Equal(t, []string{"#backend b1", "#backend b3", "@alice a1"}, ft.texts())
}

func TestIgnoredIsCaseSensitive(t *testing.T) {
	d := New(&fakeTransport{}, Options{IgnoreWords: []string{"WIP", ""}})

	assert.True(t, d.Ignored("[WIP] refactor"))
	assert.False(t, d.Ignored("wip refactor"))
	assert.False(t, New(&fakeTransport{}, Options{}).Ignored("anything"))
}

func TestSendBatchContinuesAfterFailure(t *testing.T) {
	ft := &fakeTransport{failOn: "b2"}
	d := New(ft, Options{})

	res := d.SendBatch(context.Background(), snapshot())

	assert.Equal(t, Result{Sent: 3, Failed: 1}, res)
	assert.Equal(t, []string{"#backend b1", "#backend b3", "@alice a1"}, ft.texts())
	assert.Len(t, ft.at, 4, "failed message is attempted once, never retried")
}

func TestSendBatchCarriesIdentity(t *testing.T) {
	ft := &fakeTransport{}
	id := transport.Identity{Username: "gerrit", IconEmoji: ":gerrit:"}
	New(ft, Options{Identity: id}).SendBatch(context.Background(), queue.Snapshot{{Destination: backend, Messages: []string{"x"}}})

	require.Len(t, ft.sent, 1)
	assert.Equal(t, id, ft.sent[0].Identity)
}

func TestSendBatchPacesAcrossDestinations(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft, Options{SendInterval: 30 * time.Millisecond})

	d.SendBatch(context.Background(), snapshot())

	require.Len(t, ft.at, 4)
	for i := 1; i < len(ft.at); i++ {
		gap := ft.at[i].Sub(ft.at[i-1])
		assert.GreaterOrEqual(t, gap, 25*time.Millisecond, "gap %d too short: %v", i, gap)
	}
}

func TestSendBatchStopsOnCancel(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft, Options{SendInterval: time.Hour})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	res := d.SendBatch(ctx, snapshot())

	assert.Equal(t, 1, res.Sent)
	assert.Equal(t, 3, res.Failed)
}

func TestSendBatchEmpty(t *testing.T) {
	assert.Equal(t, Result{}, New(&fakeTransport{}, Options{}).SendBatch(context.Background(), nil))
}
