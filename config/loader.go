package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/pkg/errors"

	"github.com/vcnkl/settle/git"
)

// FileNames are probed in order when no config path is given.
var FileNames = []string{"settle.yml", "settle.yaml", "settle.toml"}

// DefaultPath looks for a config file at the git root, then in the
// working directory. It returns the first candidate when none exists.
func DefaultPath() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "failed to get working directory")
	}
	root, err := git.FindRoot(cwd)
	if err != nil {
		return "", err
	}

	for _, dir := range []string{root, cwd} {
		for _, name := range FileNames {
			candidate := filepath.Join(dir, name)
			if _, err = os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return filepath.Join(root, FileNames[0]), nil
}

// Load reads, defaults and validates the config at path. An empty path
// means DefaultPath.
func Load(path string) (*Config, error) {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	parser, err := parserFor(path)
	if err != nil {
		return nil, err
	}

	k := koanf.New(".")
	if err = k.Load(file.Provider(path), parser); err != nil {
		return nil, errors.Wrapf(err, "failed to read config at %s", path)
	}

	var settings Settings
	if err = k.Unmarshal("", &settings); err != nil {
		return nil, errors.Wrapf(err, "failed to parse config at %s", path)
	}

	settings.SetDefaults()
	if err = settings.Validate(); err != nil {
		return nil, errors.Wrapf(err, "config %s", path)
	}

	return newConfig(path, &settings)
}

func parserFor(path string) (koanf.Parser, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return yaml.Parser(), nil
	case ".toml":
		return TOMLParser(), nil
	}
	return nil, errors.Wrapf(ErrInvalidConfig, "unsupported config format %q", filepath.Ext(path))
}
