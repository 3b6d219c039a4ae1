package actions

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/vcnkl/settle/logger"
)

var ErrConfigExists = errors.New("config file already exists")

const starterYAML = `# settle configuration
shell: /bin/sh
log_level: info

frames:
  enabled: false
  interval: 16ms

jobs:
  - name: test
    paths: ["."]
    ignore: ["*.tmp", ".git/**"]
    events: [write, create, remove, rename]
    cmd: echo "changed: $SETTLE_TRIGGER"
    skip_unchanged: true
    policy:
      wait: 300ms
      max_wait: 2s
      leading: false
      trailing: true
`

const starterTOML = `# settle configuration
shell = "/bin/sh"
log_level = "info"

[frames]
enabled = false
interval = "16ms"

[[jobs]]
name = "test"
paths = ["."]
ignore = ["*.tmp", ".git/**"]
events = ["write", "create", "remove", "rename"]
cmd = 'echo "changed: $SETTLE_TRIGGER"'
skip_unchanged = true

[jobs.policy]
wait = "300ms"
max_wait = "2s"
leading = false
trailing = true
`

type InitAction struct {
	dir   string
	log   logger.Logger
	force bool
	toml  bool
}

func NewInitAction(dir string, log logger.Logger, force, toml bool) *InitAction {
	return &InitAction{
		dir:   dir,
		log:   log,
		force: force,
		toml:  toml,
	}
}

// Execute writes the starter config into dir and returns its path.
func (a *InitAction) Execute() (string, error) {
	name, content := "settle.yml", starterYAML
	if a.toml {
		name, content = "settle.toml", starterTOML
	}
	path := filepath.Join(a.dir, name)

	if _, err := os.Stat(path); err == nil && !a.force {
		return "", errors.Wrap(ErrConfigExists, path)
	}

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", path)
	}

	a.log.Info("wrote config", logger.String("path", path))
	return path, nil
}
