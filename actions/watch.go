package actions

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/debounce"
	settleexec "github.com/vcnkl/settle/exec"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/watcher"
)

const flushTimeout = 30 * time.Second

type WatchAction struct {
	config      *config.Config
	log         logger.Logger
	clock       clockwork.Clock
	flushOnExit bool
	ready       func(job string)
}

type WatchOption func(*WatchAction)

// WithFlushOnExit runs pending work once more on shutdown instead of
// dropping it.
func WithFlushOnExit(enabled bool) WatchOption {
	return func(a *WatchAction) {
		a.flushOnExit = enabled
	}
}

func WithClock(clock clockwork.Clock) WatchOption {
	return func(a *WatchAction) {
		a.clock = clock
	}
}

// WithReady is called once a job's watcher is registered.
func WithReady(fn func(job string)) WatchOption {
	return func(a *WatchAction) {
		a.ready = fn
	}
}

func NewWatchAction(cfg *config.Config, log logger.Logger, opts ...WatchOption) *WatchAction {
	a := &WatchAction{
		config: cfg,
		log:    log,
		clock:  clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Execute watches the named jobs, or every job when none are named,
// until ctx is done.
func (a *WatchAction) Execute(ctx context.Context, jobNames []string) (*models.Result, error) {
	start := time.Now()

	jobs, err := a.config.SelectJobs(jobNames)
	if err != nil {
		return nil, err
	}

	var frames *debounce.FrameLoop
	if a.config.Settings().Frames.Enabled {
		interval, err := a.config.Settings().FrameInterval()
		if err != nil {
			return nil, err
		}
		frames = debounce.NewFrameLoop(a.clock, interval)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if frames != nil {
		go func() {
			_ = frames.Run(ctx)
		}()
	}

	var wg sync.WaitGroup
	results := make([]*models.Result, len(jobs))
	errCh := make(chan error, len(jobs))

	for i, job := range jobs {
		wg.Add(1)
		go func(i int, job *models.Job) {
			defer wg.Done()
			res, err := a.watchJob(ctx, job, frames)
			results[i] = res
			if err != nil {
				errCh <- err
				cancel()
			}
		}(i, job)
	}

	wg.Wait()
	close(errCh)

	result := merge(results)
	result.Duration = time.Since(start)

	if err := <-errCh; err != nil {
		return result, err
	}
	return result, nil
}

func (a *WatchAction) watchJob(ctx context.Context, job *models.Job, frames *debounce.FrameLoop) (*models.Result, error) {
	jobLog := a.log.WithPrefix(job.Name)

	ops, err := watcher.ParseOps(job.Events)
	if err != nil {
		return &models.Result{}, err
	}

	runCtx := ctx
	if a.flushOnExit {
		runCtx = context.WithoutCancel(ctx)
	}

	runner := NewRunner(job, RunnerOptions{
		Root:  a.config.Root(),
		Shell: a.config.Shell(),
		Env:   a.config.Env(),
		Log:   a.log,
	})

	opts := append(job.Policy.Options(),
		debounce.WithScheduler(debounce.NewClockScheduler(a.clock)),
		debounce.WithLogger(jobLog),
		// The runner logs and tallies its own failures.
		debounce.WithErrorHandler(func(error) {}),
	)
	if frames != nil && job.Policy.WaitOmitted() {
		opts = append(opts, debounce.WithFrameScheduler(frames))
	}

	d, err := debounce.New(func(trigger string) (*models.Run, error) {
		return runner.Run(runCtx, trigger)
	}, opts...)
	if err != nil {
		return &models.Result{}, err
	}

	w, err := watcher.NewWatcher(watcher.Options{
		Root:        a.config.Root(),
		Paths:       job.Paths,
		Ignore:      job.Ignore,
		Ops:         ops,
		TrackedOnly: job.TrackedOnly,
		Log:         jobLog,
		OnReady: func() {
			if a.ready != nil {
				a.ready(job.Name)
			}
		},
	})
	if err != nil {
		return &models.Result{}, err
	}
	defer w.Stop()

	w.OnChange(func(ev watcher.Event) {
		jobLog.Debug("change", logger.String("path", ev.Path), logger.String("op", ev.Op.String()))
		_, _ = d.Call(ev.Path)
	})

	jobLog.Info("watching",
		logger.Any("paths", job.Paths),
		logger.String("policy", job.Policy.String()))

	err = w.Start(ctx)

	a.shutdown(d, jobLog)

	return runner.Result(), err
}

func (a *WatchAction) shutdown(d *debounce.Debouncer[string, *models.Run], log logger.Logger) {
	if !a.flushOnExit {
		if d.Pending() {
			log.Debug("dropping pending run")
		}
		d.Cancel()
		return
	}

	if d.Pending() {
		log.Info("flushing pending run")
	}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = d.Flush()
	}()

	select {
	case <-done:
	case <-time.After(flushTimeout):
		log.Warn("flush timed out", logger.Duration("timeout", flushTimeout))
	}
}

// DryRun logs what each selected job would run without watching.
func (a *WatchAction) DryRun(jobNames []string) error {
	jobs, err := a.config.SelectJobs(jobNames)
	if err != nil {
		return err
	}

	for _, job := range jobs {
		jobLog := a.log.WithPrefix(job.Name)
		jobLog.Info("job",
			logger.Any("paths", job.Paths),
			logger.Any("ignore", job.Ignore),
			logger.Any("events", job.Events),
			logger.String("policy", job.Policy.String()))
		jobLog.Info("workdir", logger.String("path", settleexec.ResolveWorkDir(a.config.Root(), job)))
		jobLog.Info("command", logger.String("cmd", job.Cmd))
		for _, e := range settleexec.ComposeEnv(a.config.Root(), a.config.Env(), job, "") {
			jobLog.Debug("env", logger.String("var", e))
		}
	}
	return nil
}
