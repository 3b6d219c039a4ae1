package exec

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bitfield/script"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/models"
)

type ShellOptions struct {
	WorkDir string
	Env     []string
	Shell   string
	Stdout  io.Writer
	Stderr  io.Writer
	Timeout time.Duration
}

// RunCommand runs cmdStr through the configured shell and waits for it,
// or for ctx, whichever ends first.
func RunCommand(ctx context.Context, cmdStr string, opts *ShellOptions) error {
	if opts.Shell == "" {
		opts.Shell = "/bin/sh"
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	wrapped := cmdStr
	if opts.WorkDir != "" {
		wrapped = fmt.Sprintf("cd %q && (\n%s\n)", opts.WorkDir, cmdStr)
	}
	fullCmd := strings.Join(append(strings.Fields(opts.Shell), "-c", shellQuote(wrapped)), " ")

	done := make(chan error, 1)
	go func() {
		pipe := script.NewPipe().
			WithEnv(opts.Env).
			WithStderr(opts.Stderr).
			Exec(fullCmd).
			WithStdout(opts.Stdout)
		_, err := pipe.Stdout()
		if status := pipe.ExitStatus(); status != 0 {
			err = &ExitError{Status: status}
		}
		done <- err
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "'\"'\"'") + "'"
}

// ExitError reports a command that ran but exited non-zero.
type ExitError struct {
	Status int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("command exited with status %d", e.Status)
}

// ExitStatus extracts the exit status from err, or -1 when err does not
// carry one.
func ExitStatus(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Status
	}
	return -1
}

// ResolveWorkDir picks the directory a job's command runs in. "local"
// and "" mean the config root.
func ResolveWorkDir(root string, job *models.Job) string {
	workDir := job.WorkingDir
	switch workDir {
	case "", "local":
		return root
	default:
		if filepath.IsAbs(workDir) {
			return workDir
		}
		return filepath.Join(root, workDir)
	}
}
