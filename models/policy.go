package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/vcnkl/settle/debounce"
)

// Policy is the configured form of a debounce policy. A nil Wait means
// the wait was omitted, which lets frame scheduling take over when it is
// enabled.
type Policy struct {
	Wait     *time.Duration
	MaxWait  *time.Duration
	Leading  bool
	Trailing bool
}

func (p Policy) WaitOmitted() bool {
	return p.Wait == nil
}

func (p Policy) Options() []debounce.Option {
	opts := []debounce.Option{
		debounce.WithLeading(p.Leading),
		debounce.WithTrailing(p.Trailing),
	}
	if p.Wait != nil {
		opts = append(opts, debounce.WithWait(*p.Wait))
	}
	if p.MaxWait != nil {
		opts = append(opts, debounce.WithMaxWait(*p.MaxWait))
	}
	return opts
}

func (p Policy) String() string {
	var b strings.Builder

	if p.Wait == nil {
		b.WriteString("wait=frame")
	} else {
		fmt.Fprintf(&b, "wait=%s", *p.Wait)
	}
	if p.MaxWait != nil {
		fmt.Fprintf(&b, " max_wait=%s", max(*p.MaxWait, p.waitOrZero()))
	}
	fmt.Fprintf(&b, " leading=%t trailing=%t", p.Leading, p.Trailing)

	return b.String()
}

func (p Policy) waitOrZero() time.Duration {
	if p.Wait == nil {
		return 0
	}
	return *p.Wait
}
