package git

import (
	"os"
	"os/exec"
	"strings"

	"github.com/pkg/errors"
)

// FindRoot returns the top level of the git work tree containing dir,
// or dir itself when it is not inside one.
func FindRoot(dir string) (string, error) {
	if dir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", errors.Wrap(err, "failed to get working directory")
		}
		dir = cwd
	}

	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		return dir, nil
	}
	return strings.TrimSpace(string(output)), nil
}

// IsTracked reports whether git knows about path, asking from inside
// root. Paths outside a work tree are reported as untracked.
func IsTracked(root, path string) (bool, error) {
	cmd := exec.Command("git", "ls-files", "--error-unmatch", path)
	cmd.Dir = root
	err := cmd.Run()
	if err != nil {
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return false, nil
		}
		return false, errors.Wrapf(err, "failed to run git ls-files for %s", path)
	}
	return true, nil
}
