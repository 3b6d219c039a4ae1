package subcmds

import (
	"os"
	"path/filepath"

	"github.com/vcnkl/settle/actions"
	"github.com/vcnkl/settle/git"
	"github.com/vcnkl/settle/logger"

	"github.com/urfave/cli/v2"
)

func InitCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Write a starter config at the repository root",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "force",
				Usage: "Overwrite an existing config",
			},
			&cli.BoolFlag{
				Name:  "toml",
				Usage: "Write settle.toml instead of settle.yml",
			},
		},
		Action: func(ctx *cli.Context) error {
			log := newLogger(ctx, logger.InfoLevel)

			dir := filepath.Dir(ctx.String("config"))
			if !ctx.IsSet("config") {
				cwd, err := os.Getwd()
				if err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
				if dir, err = git.FindRoot(cwd); err != nil {
					return cli.Exit("error: "+err.Error(), 1)
				}
			}

			action := actions.NewInitAction(dir, log, ctx.Bool("force"), ctx.Bool("toml"))
			if _, err := action.Execute(); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			return nil
		},
	}
}
