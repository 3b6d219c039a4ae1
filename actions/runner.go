package actions

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/cache/hashing"
	settleexec "github.com/vcnkl/settle/exec"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/watcher"
)

// Runner executes one job's command. It is the target wrapped by a
// debouncer, so Run is never called concurrently for the same job.
type Runner struct {
	root  string
	shell string
	env   map[string]string
	job   *models.Job
	log   logger.Logger

	lastHash string
	tally    *tally
}

type RunnerOptions struct {
	Root  string
	Shell string
	Env   map[string]string
	Log   logger.Logger
}

func NewRunner(job *models.Job, opts RunnerOptions) *Runner {
	log := opts.Log
	if log == nil {
		log = logger.Nop()
	}

	return &Runner{
		root:  opts.Root,
		shell: opts.Shell,
		env:   opts.Env,
		job:   job,
		log:   log.WithPrefix(job.Name),
		tally: &tally{},
	}
}

// Run executes the job for trigger. With skip_unchanged set, a run whose
// input hash matches the last successful run is recorded as skipped.
func (r *Runner) Run(ctx context.Context, trigger string) (*models.Run, error) {
	run := &models.Run{
		Job:     r.job.Name,
		Trigger: trigger,
		Started: time.Now(),
	}

	if r.job.SkipUnchanged {
		hash, err := hashing.HashInputs(r.root, r.job.Paths, r.skipFunc())
		if err != nil {
			r.log.Warn("failed to hash inputs", logger.Err(err))
		}
		run.InputHash = hash
		if hash != "" && hash == r.lastHash {
			run.Skipped = true
			r.log.Debug("inputs unchanged, skipping", logger.String("hash", hash))
			r.tally.skip(run)
			return run, nil
		}
	}

	r.log.Info("running...", logger.String("trigger", trigger))

	err := settleexec.RunCommand(ctx, r.job.Cmd, &settleexec.ShellOptions{
		WorkDir: settleexec.ResolveWorkDir(r.root, r.job),
		Env:     settleexec.ComposeEnv(r.root, r.env, r.job, trigger),
		Shell:   r.shell,
		Stdout:  r.log.Writer(),
		Stderr:  r.log.Writer(),
	})
	run.Duration = time.Since(run.Started)

	if err != nil {
		r.log.Error("failed", logger.Err(err), logger.Duration("duration", run.Duration))
		r.tally.fail(models.FailedRun{
			Job:      r.job.Name,
			Trigger:  trigger,
			Error:    err,
			ExitCode: settleexec.ExitStatus(err),
		})
		return nil, errors.Wrapf(err, "job %s", r.job.Name)
	}

	r.lastHash = run.InputHash
	r.log.Info("done", logger.Duration("duration", run.Duration))
	r.tally.ran(run)

	return run, nil
}

func (r *Runner) Result() *models.Result {
	return r.tally.result()
}

func (r *Runner) skipFunc() hashing.SkipFunc {
	return func(path string) bool {
		return watcher.SkippedDir(filepath.Base(path)) || watcher.Ignored(r.root, path, r.job.Ignore)
	}
}

type tally struct {
	mu  sync.Mutex
	res models.Result
}

func (t *tally) ran(run *models.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.res.Runs = append(t.res.Runs, run)
}

func (t *tally) skip(run *models.Run) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.res.Skipped = append(t.res.Skipped, run)
}

func (t *tally) fail(f models.FailedRun) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.res.Failed = append(t.res.Failed, f)
}

func (t *tally) result() *models.Result {
	t.mu.Lock()
	defer t.mu.Unlock()

	return &models.Result{
		Runs:    append([]*models.Run(nil), t.res.Runs...),
		Skipped: append([]*models.Run(nil), t.res.Skipped...),
		Failed:  append([]models.FailedRun(nil), t.res.Failed...),
	}
}

// merge folds several per-job results into one.
func merge(results []*models.Result) *models.Result {
	out := &models.Result{}
	for _, r := range results {
		out.Runs = append(out.Runs, r.Runs...)
		out.Skipped = append(out.Skipped, r.Skipped...)
		out.Failed = append(out.Failed, r.Failed...)
	}
	return out
}
