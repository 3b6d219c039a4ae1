package actions

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/vcnkl/settle/config"
)

type CheckAction struct {
	config *config.Config
	out    io.Writer
}

func NewCheckAction(cfg *config.Config, out io.Writer) *CheckAction {
	return &CheckAction{config: cfg, out: out}
}

// Execute prints one line per job with its effective policy. Loading the
// config has already validated it.
func (a *CheckAction) Execute() error {
	settings := a.config.Settings()

	fmt.Fprintf(a.out, "config: %s\n", a.config.Path())
	if settings.Frames.Enabled {
		fmt.Fprintf(a.out, "frames: every %s\n", settings.Frames.Interval)
	} else {
		fmt.Fprintln(a.out, "frames: disabled")
	}
	fmt.Fprintln(a.out)

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tPATHS\tEVENTS\tPOLICY")
	for _, job := range a.config.Jobs() {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			job.Name,
			strings.Join(job.Paths, ","),
			strings.Join(job.Events, ","),
			job.Policy)
	}
	return tw.Flush()
}
