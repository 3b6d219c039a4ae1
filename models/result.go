package models

import "time"

type Result struct {
	Runs     []*Run
	Skipped  []*Run
	Failed   []FailedRun
	Duration time.Duration
}

type FailedRun struct {
	Job      string
	Trigger  string
	Error    error
	ExitCode int
}
