// Package pathutil keeps user-supplied paths inside known directories.
package pathutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// StateDirName is the per-user directory under $HOME for config and backups.
const StateDirName = ".stuckpick"

var (
	// ErrOutside is returned when a path resolves outside every allowed directory.
	ErrOutside = errors.New("path is outside the allowed directories")

	// ErrBadPath is returned for empty paths or paths containing NUL.
	ErrBadPath = errors.New("invalid path")
)

// UserStateDir returns ~/.stuckpick.
func UserStateDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, StateDirName), nil
}

// RedactPath shortens a path to its last two elements for messages that may
// reach a client, e.g. ".../backups/b.json".
func RedactPath(path string) string {
	if path == "" {
		return ""
	}
	clean := filepath.Clean(path)
	parent := filepath.Base(filepath.Dir(clean))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(clean)
	}
	return ".../" + parent + "/" + filepath.Base(clean)
}

// ValidatePath returns nil when path, after symlinks in its existing
// ancestors are resolved, lies inside one of allowedDirs. The file itself
// need not exist.
func ValidatePath(path string, allowedDirs []string) error {
	if path == "" || strings.ContainsRune(path, 0) {
		return fmt.Errorf("%w: %q", ErrBadPath, path)
	}
	if len(allowedDirs) == 0 {
		return fmt.Errorf("%w: none configured", ErrOutside)
	}

	target, err := resolve(path)
	if err != nil {
		return err
	}
	for _, dir := range allowedDirs {
		base, err := resolve(dir)
		if err != nil {
			continue
		}
		if within(target, base) {
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrOutside, RedactPath(target))
}

// resolve makes path absolute and evaluates symlinks on the deepest
// ancestor that exists, keeping the missing tail as written.
func resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadPath, err)
	}

	var tail []string
	cur := abs
	for {
		if real, err := filepath.EvalSymlinks(cur); err == nil {
			for i := len(tail) - 1; i >= 0; i-- {
				real = filepath.Join(real, tail[i])
			}
			return real, nil
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return "", fmt.Errorf("%w: cannot resolve %s", ErrBadPath, RedactPath(abs))
		}
		tail = append(tail, filepath.Base(cur))
		cur = parent
	}
}

// within reports whether path is base or below it.
func within(path, base string) bool {
	rel, err := filepath.Rel(base, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// DefaultAllowedBackupDirs returns where backups may be written or read:
// ~/.stuckpick/backups and, when dataDir is set, <dataDir>/backups.
func DefaultAllowedBackupDirs(dataDir string) ([]string, error) {
	state, err := UserStateDir()
	if err != nil {
		return nil, err
	}
	dirs := []string{filepath.Join(state, "backups")}
	if dataDir != "" {
		dirs = append(dirs, filepath.Join(dataDir, "backups"))
	}
	return dirs, nil
}
