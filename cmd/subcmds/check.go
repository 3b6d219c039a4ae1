package subcmds

import (
	"github.com/vcnkl/settle/actions"

	"github.com/urfave/cli/v2"
)

func CheckCmd() *cli.Command {
	return &cli.Command{
		Name:  "check",
		Usage: "Validate the config and print each job's debounce policy",
		Action: func(ctx *cli.Context) error {
			cfg, err := loadConfig(ctx)
			if err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}

			if err = actions.NewCheckAction(cfg, ctx.App.Writer).Execute(); err != nil {
				return cli.Exit("error: "+err.Error(), 1)
			}
			return nil
		},
	}
}
