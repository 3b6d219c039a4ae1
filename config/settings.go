package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
	"github.com/vcnkl/settle/watcher"
)

var ErrInvalidConfig = errors.New("invalid config")

type Settings struct {
	Shell    string            `koanf:"shell"`
	LogLevel string            `koanf:"log_level"`
	Env      map[string]string `koanf:"env"`
	Frames   FramesConfig      `koanf:"frames"`
	Jobs     []JobConfig       `koanf:"jobs"`
}

type FramesConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Interval string `koanf:"interval"`
}

type JobConfig struct {
	Name          string            `koanf:"name"`
	Paths         []string          `koanf:"paths"`
	Ignore        []string          `koanf:"ignore"`
	Events        []string          `koanf:"events"`
	Cmd           interface{}       `koanf:"cmd"`
	Env           map[string]string `koanf:"env"`
	Dotenv        *bool             `koanf:"dotenv"`
	WorkingDir    string            `koanf:"working_dir"`
	SkipUnchanged bool              `koanf:"skip_unchanged"`
	TrackedOnly   bool              `koanf:"tracked_only"`
	Policy        PolicyConfig      `koanf:"policy"`
}

// PolicyConfig keeps durations as strings so "omitted" and "0s" stay
// distinguishable.
type PolicyConfig struct {
	Wait     string `koanf:"wait"`
	MaxWait  string `koanf:"max_wait"`
	Leading  bool   `koanf:"leading"`
	Trailing *bool  `koanf:"trailing"`
}

var defaultEvents = []string{"write", "create", "remove", "rename"}

func (s *Settings) SetDefaults() {
	if s.Shell == "" {
		s.Shell = "/bin/sh"
	}
	if s.LogLevel == "" {
		s.LogLevel = "info"
	}
	if s.Env == nil {
		s.Env = make(map[string]string)
	}
	if s.Frames.Interval == "" {
		s.Frames.Interval = "16ms"
	}
	for i := range s.Jobs {
		s.Jobs[i].SetDefaults()
	}
}

func (j *JobConfig) SetDefaults() {
	if j.Paths == nil {
		j.Paths = []string{"."}
	}
	if j.Ignore == nil {
		j.Ignore = []string{}
	}
	if j.Events == nil {
		j.Events = append([]string(nil), defaultEvents...)
	}
	if j.Env == nil {
		j.Env = make(map[string]string)
	}
	if j.Dotenv == nil {
		enabled := true
		j.Dotenv = &enabled
	}
	if j.WorkingDir == "" {
		j.WorkingDir = "local"
	}
	if j.Policy.Trailing == nil {
		trailing := true
		j.Policy.Trailing = &trailing
	}
}

func (j *JobConfig) GetCmd() string {
	switch v := j.Cmd.(type) {
	case string:
		return v
	case []interface{}:
		var cmds []string
		for _, c := range v {
			if s, ok := c.(string); ok {
				cmds = append(cmds, s)
			}
		}
		return strings.Join(cmds, "\n")
	case []string:
		return strings.Join(v, "\n")
	}
	return ""
}

func (s *Settings) FrameInterval() (time.Duration, error) {
	d, err := parseDuration("frames.interval", s.Frames.Interval)
	if err != nil {
		return 0, err
	}
	if d == nil || *d == 0 {
		return 0, errors.Wrap(ErrInvalidConfig, "frames.interval must be positive")
	}
	return *d, nil
}

// Validate expects SetDefaults to have run.
func (s *Settings) Validate() error {
	if _, err := logger.ParseLevel(s.LogLevel); err != nil {
		return errors.Wrapf(ErrInvalidConfig, "log_level: %v", err)
	}
	if _, err := s.FrameInterval(); err != nil {
		return err
	}

	seen := make(map[string]bool, len(s.Jobs))
	for i := range s.Jobs {
		job := &s.Jobs[i]
		if job.Name == "" {
			return errors.Wrapf(ErrInvalidConfig, "jobs[%d]: name is required", i)
		}
		if seen[job.Name] {
			return errors.Wrapf(ErrInvalidConfig, "jobs[%d]: duplicate job name %q", i, job.Name)
		}
		seen[job.Name] = true

		if _, err := job.Job(); err != nil {
			return err
		}
	}

	return nil
}

// Job converts the raw job config into a validated models.Job.
func (j *JobConfig) Job() (*models.Job, error) {
	cmd := j.GetCmd()
	if strings.TrimSpace(cmd) == "" {
		return nil, errors.Wrapf(ErrInvalidConfig, "job %s: cmd is required", j.Name)
	}
	if len(j.Paths) == 0 {
		return nil, errors.Wrapf(ErrInvalidConfig, "job %s: at least one path is required", j.Name)
	}
	if _, err := watcher.ParseOps(j.Events); err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "job %s: %v", j.Name, err)
	}

	policy, err := j.Policy.Policy()
	if err != nil {
		return nil, errors.Wrapf(err, "job %s", j.Name)
	}

	return &models.Job{
		Name:          j.Name,
		Paths:         j.Paths,
		Ignore:        j.Ignore,
		Events:        j.Events,
		Cmd:           cmd,
		Env:           j.Env,
		Dotenv:        j.Dotenv != nil && *j.Dotenv,
		WorkingDir:    j.WorkingDir,
		SkipUnchanged: j.SkipUnchanged,
		TrackedOnly:   j.TrackedOnly,
		Policy:        policy,
	}, nil
}

func (p PolicyConfig) Policy() (models.Policy, error) {
	wait, err := parseDuration("policy.wait", p.Wait)
	if err != nil {
		return models.Policy{}, err
	}
	maxWait, err := parseDuration("policy.max_wait", p.MaxWait)
	if err != nil {
		return models.Policy{}, err
	}

	return models.Policy{
		Wait:     wait,
		MaxWait:  maxWait,
		Leading:  p.Leading,
		Trailing: p.Trailing == nil || *p.Trailing,
	}, nil
}

// parseDuration returns nil for an empty value. Negative durations are
// rejected here even though the debouncer itself would coerce them.
func parseDuration(key, value string) (*time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidConfig, "%s: %v", key, err)
	}
	if d < 0 {
		return nil, errors.Wrap(ErrInvalidConfig, fmt.Sprintf("%s: must not be negative, got %s", key, value))
	}
	return &d, nil
}
