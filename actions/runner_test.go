package actions

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vcnkl/settle/models"
)

func newTestRunner(t *testing.T, job *models.Job) (*Runner, string, string) {
	t.Helper()
	root := t.TempDir()
	out := filepath.Join(t.TempDir(), "out.txt")

	r := NewRunner(job, RunnerOptions{
		Root:  root,
		Shell: "/bin/sh",
		Env:   map[string]string{"OUT": out},
	})
	return r, root, out
}

func TestRunner_Run(t *testing.T) {
	job := &models.Job{Name: "echo", Cmd: `echo "$SETTLE_JOB:$SETTLE_TRIGGER" >> "$OUT"`}
	r, _, out := newTestRunner(t, job)

	run, err := r.Run(context.Background(), "main.go")
	require.NoError(t, err)
	require.NotNil(t, run)

	assert.Equal(t, "echo", run.Job)
	assert.Equal(t, "main.go", run.Trigger)
	assert.False(t, run.Skipped)
	assert.False(t, run.Started.IsZero())
	assert.Equal(t, []string{"echo:main.go"}, readLines(t, out))

	result := r.Result()
	assert.Len(t, result.Runs, 1)
	assert.Empty(t, result.Failed)
}

func TestRunner_Failure(t *testing.T) {
	job := &models.Job{Name: "broken", Cmd: "exit 3"}
	r, _, _ := newTestRunner(t, job)

	run, err := r.Run(context.Background(), "x")
	require.Error(t, err)
	assert.Nil(t, run)
	assert.Contains(t, err.Error(), "job broken")

	result := r.Result()
	require.Len(t, result.Failed, 1)
	assert.Equal(t, 3, result.Failed[0].ExitCode)
	assert.Equal(t, "x", result.Failed[0].Trigger)
	assert.Empty(t, result.Runs)
}

func TestRunner_SkipUnchanged(t *testing.T) {
	job := &models.Job{
		Name:          "build",
		Cmd:           `echo "$SETTLE_TRIGGER" >> "$OUT"`,
		Paths:         []string{"src"},
		Ignore:        []string{"*.log"},
		SkipUnchanged: true,
	}
	r, root, out := newTestRunner(t, job)
	writeFile(t, filepath.Join(root, "src", "main.go"), "package main")

	run, err := r.Run(context.Background(), "first")
	require.NoError(t, err)
	assert.False(t, run.Skipped)
	assert.NotEmpty(t, run.InputHash)

	run, err = r.Run(context.Background(), "second")
	require.NoError(t, err)
	assert.True(t, run.Skipped)

	writeFile(t, filepath.Join(root, "src", "debug.log"), "noise")
	run, err = r.Run(context.Background(), "ignored")
	require.NoError(t, err)
	assert.True(t, run.Skipped, "ignored files do not change the input hash")

	writeFile(t, filepath.Join(root, "src", "main.go"), "package main\n\nfunc main() {}")
	run, err = r.Run(context.Background(), "third")
	require.NoError(t, err)
	assert.False(t, run.Skipped)

	assert.Equal(t, []string{"first", "third"}, readLines(t, out))
	result := r.Result()
	assert.Len(t, result.Runs, 2)
	assert.Len(t, result.Skipped, 2)
}

func TestRunner_FailedRunIsRetried(t *testing.T) {
	job := &models.Job{
		Name:          "flaky",
		Cmd:           `test -f "$OUT.ok" || { touch "$OUT.ok"; exit 1; }`,
		Paths:         []string{"."},
		SkipUnchanged: true,
	}
	r, _, _ := newTestRunner(t, job)

	_, err := r.Run(context.Background(), "a")
	require.Error(t, err)

	run, err := r.Run(context.Background(), "b")
	require.NoError(t, err)
	assert.False(t, run.Skipped, "a failed run does not record its hash")
}

func TestMerge(t *testing.T) {
	a := &models.Result{Runs: []*models.Run{{Job: "a"}}}
	b := &models.Result{
		Skipped: []*models.Run{{Job: "b"}},
		Failed:  []models.FailedRun{{Job: "b"}},
	}

	merged := merge([]*models.Result{a, b})
	assert.Len(t, merged.Runs, 1)
	assert.Len(t, merged.Skipped, 1)
	assert.Len(t, merged.Failed, 1)
}
