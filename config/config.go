package config

import (
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/logger"
	"github.com/vcnkl/settle/models"
)

var ErrJobNotFound = errors.New("job not found")

type Config struct {
	path     string
	root     string
	settings *Settings
	jobs     []*models.Job
}

func newConfig(path string, settings *Settings) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve config path %s", path)
	}

	cfg := &Config{
		path:     abs,
		root:     filepath.Dir(abs),
		settings: settings,
		jobs:     make([]*models.Job, 0, len(settings.Jobs)),
	}

	for i := range settings.Jobs {
		job, err := settings.Jobs[i].Job()
		if err != nil {
			return nil, err
		}
		cfg.jobs = append(cfg.jobs, job)
	}

	return cfg, nil
}

func (c *Config) Path() string {
	return c.path
}

// Root is the directory holding the config file. Relative job paths are
// resolved against it.
func (c *Config) Root() string {
	return c.root
}

func (c *Config) Settings() *Settings {
	return c.settings
}

func (c *Config) Shell() string {
	return c.settings.Shell
}

func (c *Config) Env() map[string]string {
	return c.settings.Env
}

func (c *Config) LogLevel() logger.Level {
	level, _ := logger.ParseLevel(c.settings.LogLevel)
	return level
}

func (c *Config) Jobs() []*models.Job {
	return c.jobs
}

func (c *Config) Job(name string) (*models.Job, error) {
	for _, job := range c.jobs {
		if job.Name == name {
			return job, nil
		}
	}
	return nil, errors.Wrapf(ErrJobNotFound, "%q", name)
}

// SelectJobs returns the named jobs in order, or every job when names
// is empty.
func (c *Config) SelectJobs(names []string) ([]*models.Job, error) {
	if len(names) == 0 {
		return c.jobs, nil
	}

	jobs := make([]*models.Job, 0, len(names))
	for _, name := range names {
		job, err := c.Job(name)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
