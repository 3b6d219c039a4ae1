package hashing

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// SkipFunc reports whether a path should be left out of a hash. For a
// directory it prunes the whole subtree.
type SkipFunc func(path string) bool

// HashInputs hashes every regular file reachable from patterns. A
// pattern is a file, a directory (hashed recursively) or a glob, and
// relative patterns are resolved against root. The digest covers file
// paths as well as contents, so renames change it too.
func HashInputs(root string, patterns []string, skip SkipFunc) (string, error) {
	if skip == nil {
		skip = func(string) bool { return false }
	}

	seen := make(map[string]bool)
	for _, pattern := range patterns {
		fullPattern := pattern
		if !filepath.IsAbs(pattern) {
			fullPattern = filepath.Join(root, pattern)
		}

		matches, err := expandGlob(fullPattern)
		if err != nil {
			return "", errors.Wrapf(err, "failed to expand glob pattern %s", pattern)
		}

		for _, match := range matches {
			if err = collectFiles(match, skip, seen); err != nil {
				return "", err
			}
		}
	}

	files := make([]string, 0, len(seen))
	for file := range seen {
		files = append(files, file)
	}
	sort.Strings(files)

	h := sha256.New()
	for _, file := range files {
		fileHash, err := HashFile(file)
		if err != nil {
			return "", err
		}
		rel, err := filepath.Rel(root, file)
		if err != nil {
			rel = file
		}
		h.Write([]byte(filepath.ToSlash(rel)))
		h.Write([]byte{0})
		h.Write([]byte(fileHash))
	}

	return "sha256:" + hex.EncodeToString(h.Sum(nil)), nil
}

func collectFiles(path string, skip SkipFunc, seen map[string]bool) error {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	if !info.IsDir() {
		if !skip(path) {
			seen[path] = true
		}
		return nil
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if skip(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type().IsRegular() {
			seen[p] = true
		}
		return nil
	})
}

func expandGlob(pattern string) ([]string, error) {
	if strings.Contains(pattern, "**") {
		return expandDoubleStarGlob(pattern)
	}
	return filepath.Glob(pattern)
}

func expandDoubleStarGlob(pattern string) ([]string, error) {
	baseDir, suffix, _ := strings.Cut(pattern, "**")
	baseDir = strings.TrimSuffix(baseDir, "/")
	if baseDir == "" {
		baseDir = "."
	}
	suffix = strings.TrimPrefix(suffix, "/")

	var matches []string
	err := filepath.WalkDir(baseDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}

		if suffix == "" {
			matches = append(matches, path)
			return nil
		}
		if matched, _ := filepath.Match(suffix, filepath.Base(path)); matched {
			matches = append(matches, path)
		}
		return nil
	})

	return matches, err
}

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to open file %s", path)
	}
	defer f.Close()

	h := sha256.New()
	if _, err = io.Copy(h, f); err != nil {
		return "", errors.Wrapf(err, "failed to hash file %s", path)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
