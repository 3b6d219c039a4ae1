package actions

import (
	"bufio"
	"context"
	"io"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/debounce"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
)

// MaxLineSize bounds a single input line.
const MaxLineSize = 16 << 20

type PipeOptions struct {
	Cmd    string
	Shell  string
	Root   string
	Env    map[string]string
	Policy models.Policy
	Clock  clockwork.Clock
}

// PipeAction debounces lines read from a stream. Each execution sees the
// most recent line as SETTLE_TRIGGER.
type PipeAction struct {
	opts PipeOptions
	log  logger.Logger
}

func NewPipeAction(opts PipeOptions, log logger.Logger) *PipeAction {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Root == "" {
		opts.Root, _ = os.Getwd()
	}
	return &PipeAction{opts: opts, log: log}
}

// Execute consumes r until EOF, then flushes so the last line is never
// lost. If ctx ends first, pending work is cancelled.
func (a *PipeAction) Execute(ctx context.Context, r io.Reader) (*models.Result, error) {
	start := time.Now()

	job := &models.Job{
		Name:   "pipe",
		Cmd:    a.opts.Cmd,
		Policy: a.opts.Policy,
	}
	runner := NewRunner(job, RunnerOptions{
		Root:  a.opts.Root,
		Shell: a.opts.Shell,
		Env:   a.opts.Env,
		Log:   a.log,
	})

	opts := append(job.Policy.Options(),
		debounce.WithScheduler(debounce.NewClockScheduler(a.opts.Clock)),
		debounce.WithLogger(a.log.WithPrefix(job.Name)),
		debounce.WithErrorHandler(func(error) {}),
	)
	d, err := debounce.New(func(line string) (*models.Run, error) {
		return runner.Run(ctx, line)
	}, opts...)
	if err != nil {
		return nil, err
	}

	lines := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			d.Cancel()
			result := runner.Result()
			result.Duration = time.Since(start)
			return result, nil
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-readErr:
				default:
				}
				_, _ = d.Flush()

				result := runner.Result()
				result.Duration = time.Since(start)
				if err != nil {
					return result, errors.Wrap(err, "failed to read input")
				}
				return result, nil
			}
			_, _ = d.Call(line)
		}
	}
}
