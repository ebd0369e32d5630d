package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gerrit-ai-review/gerrit-notifier/internal/config"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/events"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/logger"
	"github.com/gerrit-ai-review/gerrit-notifier/internal/transport"
)

const testConfig = `
slack:
  dry_run: true
routing:
  channels:
    backend:
      projects: [api]
      owners: [alice]
    "#everything":
      projects: ["*"]
      emoji: ":eyes:"
  users:
    Alice: alice.slack
flush:
  interval: 1h
  send_interval: 1ms
`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o600))
	return path
}

// execute runs the root command with args against a fresh viper instance
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)

	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func decode(t *testing.T, out string) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	return resp
}

func TestRoutesCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "--config", path, "--env-file", "", "routes", "api", "alice")
	require.NoError(t, err)
	assert.Equal(t, "#backend\n#everything\n", out)

	out, err = execute(t, "--config", path, "--env-file", "", "routes", "web")
	require.NoError(t, err)
	assert.Equal(t, "#everything\n", out)
}

func TestRoutesCommandJSON(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "--config", path, "--env-file", "", "--format", "json", "routes", "api")
	require.NoError(t, err)

	resp := decode(t, out)
	assert.True(t, resp.Success)
	assert.Equal(t, "routes", resp.Command)
	assert.Equal(t, []interface{}{"#backend", "#everything"}, resp.Data)
}

func TestAnnounceCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "--config", path, "--env-file", "", "--format", "json", "announce", "deploy", "at", "5pm")
	require.NoError(t, err)

	resp := decode(t, out)
	require.True(t, resp.Success)
	assert.Equal(t, map[string]interface{}{"sent": 2.0, "suppressed": 0.0, "failed": 0.0}, resp.Data)
}

func TestNotifyUserCommand(t *testing.T) {
	path := writeConfig(t)

	out, err := execute(t, "--config", path, "--env-file", "", "notify-user", "alice", "your", "change", "is", "stale")
	require.NoError(t, err)
	assert.Equal(t, "sent=1 suppressed=0 failed=0\n", out)
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "--config", filepath.Join(t.TempDir(), "nope.yaml"), "--env-file", "", "routes", "api")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestCommandArgs(t *testing.T) {
	path := writeConfig(t)

	_, err := execute(t, "--config", path, "--env-file", "", "announce")
	assert.Error(t, err)

	_, err = execute(t, "--config", path, "--env-file", "", "notify-user", "alice")
	assert.Error(t, err)

	_, err = execute(t, "--config", path, "--env-file", "", "routes")
	assert.Error(t, err)
}

func TestNewAppSelectsDryRun(t *testing.T) {
	cfg := &config.Config{
		Slack: config.SlackConfig{DryRun: true},
		Flush: config.FlushConfig{Interval: time.Hour},
	}
	a := newApp(cfg, nil)
	_, ok := a.transport.(*transport.DryRun)
	assert.True(t, ok)
}

// onceSource serves one stream, then fails every later open
type onceSource struct {
	mu     sync.Mutex
	data   string
	opened bool
}

func (s *onceSource) Open(ctx context.Context) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.opened {
		return nil, errors.New("stream unavailable")
	}
	s.opened = true
	return io.NopCloser(strings.NewReader(s.data)), nil
}

func TestServeFlushesPendingOnShutdown(t *testing.T) {
	dry := transport.NewDryRun()
	cfg := &config.Config{
		Messages: config.MessagesConfig{LineBreak: "\n>"},
		Routing: config.RoutingConfig{
			Channels: map[string]config.ChannelRule{"backend": {Projects: []string{"api"}}},
		},
		Flush: config.FlushConfig{Interval: time.Hour, SendInterval: time.Millisecond},
	}
	a := newApp(cfg, dry)

	line := `{"type":"patchset-created","change":{"project":"api","branch":"main","number":7,"subject":"Add retries","url":"https://review/7","owner":{"name":"Alice","username":"alice"}},"patchSet":{"number":1,"revision":"abc"},"uploader":{"name":"Alice","username":"alice"}}` + "\n"
	src := &onceSource{data: line}
	listener := events.NewListener(src, a.classifier, a.notifier.Process, events.ListenerOptions{ReconnectDelay: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- serve(ctx, a, listener, logger.Get()) }()

	require.Eventually(t, func() bool {
		return a.buffer.Len() > 0 || len(dry.Sent()) > 0
	}, 2*time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}

	sent := dry.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "#backend", sent[0].Channel)
	assert.Contains(t, sent[0].Text, "Add retries")
	assert.Equal(t, 0, a.buffer.Len())
}
