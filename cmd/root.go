package cmd

import (
	"github.com/vcnkl/settle/cmd/subcmds"

	"github.com/urfave/cli/v2"
)

func NewApp() *cli.App {
	return &cli.App{
		Name:    "settle",
		Usage:   "Debounced command runner for file changes and input streams",
		Version: "0.1.0",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "Enable debug logging",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to settle.yml or settle.toml (default: auto-detect via git root)",
			},
		},
		Commands: []*cli.Command{
			subcmds.InitCmd(),
			subcmds.CheckCmd(),
			subcmds.WatchCmd(),
			subcmds.PipeCmd(),
		},
	}
}
