// Package sandbox confines path arguments to a fixed set of allowed root directories.
package sandbox

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	defaultHome       = "/home/user"
	defaultTermuxHome = "/data/data/com.termux/files/home"
	unixTempDir       = "/tmp"
)

// ErrPathDenied is matched by every error returned for a path outside the allowed roots.
var ErrPathDenied = errors.New("path not allowed")

// PathDeniedError reports the resolved path that failed the allowlist check.
type PathDeniedError struct {
	Path string
}

func (e *PathDeniedError) Error() string {
	return "Path not allowed: " + e.Path
}

func (e *PathDeniedError) Is(target error) bool {
	return target == ErrPathDenied
}

// Sandbox validates and canonicalizes paths against a set of allowed roots.
// It is immutable after construction and safe for concurrent use.
type Sandbox struct {
	roots   []string
	baseDir string
}

// New creates a Sandbox for the given roots.
// Relative paths passed to Resolve are interpreted relative to baseDir.
// If baseDir is empty, the current working directory is used.
func New(roots []string, baseDir string) (*Sandbox, error) {
	cleaned := make([]string, 0, len(roots))
	seen := make(map[string]bool, len(roots))
	for _, r := range roots {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if !filepath.IsAbs(r) {
			return nil, fmt.Errorf("allowed root %q is not an absolute path", r)
		}
		r = filepath.Clean(r)
		if seen[r] {
			continue
		}
		seen[r] = true
		cleaned = append(cleaned, r)
	}
	if len(cleaned) == 0 {
		return nil, errors.New("at least one allowed root is required")
	}

	if baseDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		baseDir = wd
	}
	if !filepath.IsAbs(baseDir) {
		abs, err := filepath.Abs(baseDir)
		if err != nil {
			return nil, fmt.Errorf("invalid base directory %q: %w", baseDir, err)
		}
		baseDir = abs
	}

	return &Sandbox{roots: cleaned, baseDir: filepath.Clean(baseDir)}, nil
}

// DefaultRoots derives the allowed roots from the environment:
// the home directory, the temp directory and the Termux home directory.
func DefaultRoots(getenv func(string) string) []string {
	home := getenv("HOME")
	if home == "" {
		home = defaultHome
	}
	termux := getenv("TERMUX_HOME")
	if termux == "" {
		termux = defaultTermuxHome
	}
	roots := []string{home}
	if tmp := getenv("TMPDIR"); tmp != "" {
		roots = append(roots, tmp)
	}
	roots = append(roots, unixTempDir, termux)
	return roots
}

// Roots returns a copy of the allowed roots.
func (s *Sandbox) Roots() []string {
	return append([]string(nil), s.roots...)
}

// BaseDir returns the directory relative paths are resolved against.
func (s *Sandbox) BaseDir() string {
	return s.baseDir
}

// Resolve turns raw into an absolute, lexically normalized path and checks it against the allowed roots.
// The check is lexical: symlinks are not followed.
// Denied paths yield a *PathDeniedError.
func (s *Sandbox) Resolve(raw string) (string, error) {
	if strings.TrimSpace(raw) == "" {
		return "", errors.New("path cannot be empty")
	}
	if strings.IndexByte(raw, 0) != -1 {
		return "", errors.New("path contains null byte")
	}

	p := raw
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.baseDir, p)
	}
	p = filepath.Clean(p)

	if !s.Allowed(p) {
		return "", &PathDeniedError{Path: p}
	}
	return p, nil
}

// Allowed reports whether the cleaned absolute path p lies within an allowed root.
// A root matches itself and anything below it on a separator boundary, so /tmp does not admit /tmpfoo.
func (s *Sandbox) Allowed(p string) bool {
	for _, root := range s.roots {
		if withinRoot(p, root) {
			return true
		}
	}
	return false
}

func withinRoot(p, root string) bool {
	if p == root {
		return true
	}
	prefix := root
	if !strings.HasSuffix(prefix, string(filepath.Separator)) {
		prefix += string(filepath.Separator)
	}
	return strings.HasPrefix(p, prefix)
}
