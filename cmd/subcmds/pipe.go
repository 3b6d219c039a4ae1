package subcmds

import (
	"os"
	"strings"
	"time"

	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"

	"github.com/urfave/cli/v2"
)

func PipeCmd() *cli.Command {
	return &cli.Command{
		Name:  "pipe",
		Usage: "Read lines from stdin and run a command once they settle",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "cmd",
				Usage:    "Command to run; the latest line is passed as $SETTLE_TRIGGER",
				Required: true,
			},
			&cli.DurationFlag{
				Name:  "wait",
				Value: 300 * time.Millisecond,
				Usage: "Quiet period before the trailing run",
			},
			&cli.DurationFlag{
				Name:  "max-wait",
				Usage: "Longest a run may be deferred while lines keep arriving (0: unbounded)",
			},
			&cli.BoolFlag{
				Name:  "leading",
				Usage: "Run on the first line of a burst",
			},
			&cli.BoolFlag{
				Name:  "no-trailing",
				Usage: "Skip the run at the end of a burst",
			},
			&cli.StringFlag{
				Name:  "shell",
				Value: "/bin/sh",
				Usage: "Shell used to run the command",
			},
		},
		Action: func(ctx *cli.Context) error {
			log := newLogger(ctx, logger.InfoLevel)

			cmdStr := ctx.String("cmd")
			if strings.TrimSpace(cmdStr) == "" {
				return cli.Exit("error: --cmd must not be empty", 1)
			}

			policy := pipePolicy(
				ctx.Duration("wait"),
				ctx.Duration("max-wait"),
				ctx.Bool("leading"),
				!ctx.Bool("no-trailing"))

			action := actions.NewPipeAction(actions.PipeOptions{
				Cmd:    cmdStr,
				Shell:  ctx.String("shell"),
				Policy: policy,
			}, log)

			result, err := action.Execute(ctx.Context, os.Stdin)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			log.Debug("pipe closed",
				logger.Int("runs", len(result.Runs)),
				logger.Int("failed", len(result.Failed)),
				logger.Duration("duration", result.Duration))

			if len(result.Failed) > 0 {
				return cli.Exit("pipe: command failed", 1)
			}
			return nil
		},
	}
}

// pipePolicy maps the pipe flags to a policy. A max wait of 0 or less
// leaves the max wait unset, so runs are deferred for as long as lines
// keep arriving.
func pipePolicy(wait, maxWait time.Duration, leading, trailing bool) models.Policy {
	policy := models.Policy{
		Wait:     &wait,
		Leading:  leading,
		Trailing: trailing,
	}
	if maxWait > 0 {
		policy.MaxWait = &maxWait
	}
	return policy
}
