package actions

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
)

const watchConfig = `
env:
  OUT: %s
jobs:
  - name: src
    paths: [src]
    ignore: ["*.tmp"]
    cmd: echo "$SETTLE_TRIGGER" >> "$OUT"
    policy:
      wait: %s
`

type watchRun struct {
	cancel context.CancelFunc
	done   chan *models.Result
	logs   *syncBuffer
}

func startWatch(t *testing.T, root, wait string, opts ...WatchOption) (*watchRun, string) {
	t.Helper()
	out := filepath.Join(t.TempDir(), "out.txt")
	writeFile(t, filepath.Join(root, "src", ".keep"), "")
	cfg := loadConfig(t, root, fmt.Sprintf(watchConfig, out, wait))

	logs := &syncBuffer{}
	ready := make(chan struct{})
	opts = append(opts, WithReady(func(string) { close(ready) }))
	action := NewWatchAction(cfg, logger.NewWithWriter(logger.DebugLevel, logs), opts...)

	ctx, cancel := context.WithCancel(context.Background())
	run := &watchRun{cancel: cancel, done: make(chan *models.Result, 1), logs: logs}
	go func() {
		result, err := action.Execute(ctx, nil)
		assert.NoError(t, err)
		run.done <- result
	}()

	select {
	case <-ready:
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatal("watcher never became ready")
	}
	return run, out
}

func (r *watchRun) stop(t *testing.T) *models.Result {
	t.Helper()
	r.cancel()
	select {
	case result := <-r.done:
		return result
	case <-time.After(10 * time.Second):
		t.Fatal("watch did not stop")
		return nil
	}
}

func TestWatchAction_RunsOnChange(t *testing.T) {
	root := t.TempDir()
	run, out := startWatch(t, root, "50ms")

	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")

	assert.Eventually(t, func() bool {
		lines := readLines(t, out)
		return len(lines) == 1 && strings.HasSuffix(lines[0], "main.go")
	}, 5*time.Second, 20*time.Millisecond)

	writeFile(t, filepath.Join(root, "src", "scratch.tmp"), "ignored")
	time.Sleep(200 * time.Millisecond)

	result := run.stop(t)
	assert.Len(t, readLines(t, out), 1)
	assert.Len(t, result.Runs, 1)
	assert.Empty(t, result.Failed)
}

func TestWatchAction_CancelsPendingOnExit(t *testing.T) {
	root := t.TempDir()
	run, out := startWatch(t, root, "1h")

	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	assert.Eventually(t, func() bool {
		return strings.Contains(run.logs.String(), `"message":"change"`)
	}, 5*time.Second, 20*time.Millisecond)

	result := run.stop(t)
	assert.Nil(t, readLines(t, out))
	assert.Empty(t, result.Runs)
}

func TestWatchAction_FlushOnExit(t *testing.T) {
	root := t.TempDir()
	run, out := startWatch(t, root, "1h", WithFlushOnExit(true))

	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")
	assert.Eventually(t, func() bool {
		return strings.Contains(run.logs.String(), `"message":"change"`)
	}, 5*time.Second, 20*time.Millisecond)

	result := run.stop(t)
	require.Len(t, readLines(t, out), 1)
	assert.Len(t, result.Runs, 1)
}

func TestWatchAction_UnknownJob(t *testing.T) {
	root := t.TempDir()
	cfg := loadConfig(t, root, fmt.Sprintf(watchConfig, "out.txt", "10ms"))

	action := NewWatchAction(cfg, logger.Nop())
	_, err := action.Execute(context.Background(), []string{"nope"})
	assert.Error(t, err)
}

func TestWatchAction_MissingPath(t *testing.T) {
	root := t.TempDir()
	cfg := loadConfig(t, root, fmt.Sprintf(watchConfig, "out.txt", "10ms"))

	action := NewWatchAction(cfg, logger.Nop())
	_, err := action.Execute(context.Background(), nil)
	assert.Error(t, err, "src does not exist")
}

func TestWatchAction_DryRun(t *testing.T) {
	root := t.TempDir()
	cfg := loadConfig(t, root, fmt.Sprintf(watchConfig, "out.txt", "10ms"))

	logs := &syncBuffer{}
	action := NewWatchAction(cfg, logger.NewWithWriter(logger.InfoLevel, logs))
	require.NoError(t, action.DryRun(nil))

	output := logs.String()
	assert.Contains(t, output, `"component":"src"`)
	assert.Contains(t, output, "wait=10ms")
	assert.Contains(t, output, `SETTLE_TRIGGER`)
}
