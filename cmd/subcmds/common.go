package subcmds

import (
	"github.com/vcnkl/settle/config"
	"github.com/vcnkl/settle/logger"

	"github.com/urfave/cli/v2"
)

// newLogger honours --debug over the configured level.
func newLogger(ctx *cli.Context, level logger.Level) logger.Logger {
	if ctx.Bool("debug") {
		level = logger.DebugLevel
	}
	return logger.New(level)
}

func loadConfig(ctx *cli.Context) (*config.Config, error) {
	return config.Load(ctx.String("config"))
}
