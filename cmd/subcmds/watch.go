package subcmds

import (
	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/logger"

	"github.com/urfave/cli/v2"
)

func WatchCmd() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Watch files and run each job's command once changes settle",
		ArgsUsage: "[jobs...]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "flush-on-exit",
				Usage: "Run pending work once more on shutdown instead of dropping it",
			},
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print what would be executed without watching",
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			log := newLogger(ctx, cfg.LogLevel())

			if len(cfg.Jobs()) == 0 {
				log.Info("no jobs configured")
				return nil
			}

			action := actions.NewWatchAction(cfg, log,
				actions.WithFlushOnExit(ctx.Bool("flush-on-exit")))

			if ctx.Bool("dry-run") {
				if err = action.DryRun(ctx.Args().Slice()); err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
				return nil
			}

			result, err := action.Execute(ctx.Context, ctx.Args().Slice())
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			log.Info("watch stopped",
				logger.Int("runs", len(result.Runs)),
				logger.Int("skipped", len(result.Skipped)),
				logger.Int("failed", len(result.Failed)),
				logger.Duration("duration", result.Duration))

			return nil
		},
	}
}
