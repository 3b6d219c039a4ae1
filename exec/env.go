package exec

import (
	"bufio"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/vcnkl/settle/models"
)

// ComposeEnv builds a job's environment. Later sources win: process env,
// global config env, settle variables, job env, then the root .env file
// when the job enables dotenv.
func ComposeEnv(root string, global map[string]string, job *models.Job, trigger string) []string {
	var overrides []string

	for k, v := range global {
		overrides = append(overrides, k+"="+v)
	}

	overrides = append(overrides,
		"SETTLE_ROOT="+root,
		"SETTLE_JOB="+job.Name,
		"SETTLE_TRIGGER="+trigger,
	)

	for k, v := range job.Env {
		overrides = append(overrides, k+"="+v)
	}

	if job.Dotenv {
		dotenvVars, err := LoadDotenv(filepath.Join(root, ".env"))
		if err == nil {
			for k, v := range dotenvVars {
				overrides = append(overrides, k+"="+v)
			}
		}
	}

	return MergeEnv(os.Environ(), overrides)
}

func LoadDotenv(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	result := make(map[string]string)
	scanner := bufio.NewScanner(file)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimPrefix(line, "export ")

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)

		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		result[key] = value
	}

	return result, scanner.Err()
}

// MergeEnv overlays override on base by key. The result is sorted so
// the child process sees each key once.
func MergeEnv(base, override []string) []string {
	envMap := make(map[string]string, len(base)+len(override))

	for _, list := range [][]string{base, override} {
		for _, e := range list {
			if k, v, ok := strings.Cut(e, "="); ok {
				envMap[k] = v
			}
		}
	}

	result := make([]string, 0, len(envMap))
	for k, v := range envMap {
		result = append(result, k+"="+v)
	}
	slices.Sort(result)

	return result
}
