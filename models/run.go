package models

import "time"

// Run describes one execution of a job's command.
type Run struct {
	Job       string
	Trigger   string
	Started   time.Time
	Duration  time.Duration
	InputHash string
	Skipped   bool
}
