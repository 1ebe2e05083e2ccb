package safety

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

var (
	ErrInvalidPath   = errors.New("invalid path")
	ErrNotAbsolute   = errors.New("path must be absolute")
	ErrProtectedPath = errors.New("protected path")
	ErrTraversal     = errors.New("path traversal detected")
)

// Validator refuses wipe roots whose contents must never be emptied
type Validator struct {
	// ProtectedTrees blocks the path and everything beneath it
	ProtectedTrees []string
	// ProtectedRoots blocks only the exact path; its children stay eligible
	ProtectedRoots []string
	// StatePaths hold the tool's own files: the path, its children and its ancestors are blocked
	StatePaths []string
}

// NewValidator creates a validator with the platform defaults plus extra protected trees
// and the directories the running process keeps its database and logs in.
// Entries that are reached through a symlink are protected under their real path too.
func NewValidator(extraProtected []string, statePaths ...string) *Validator {
	return &Validator{
		ProtectedTrees: withResolved(defaultProtectedTrees(runtime.GOOS, extraProtected)),
		ProtectedRoots: withResolved(defaultProtectedRoots(runtime.GOOS)),
		StatePaths:     withResolved(append(stateDirs(), statePaths...)),
	}
}

// ValidateTarget is the single-source-of-truth for wipe authorization
// Returns typed error on safety violation
func (v *Validator) ValidateTarget(path string) error {
	// 1. Detect path traversal in raw input
	if DetectTraversal(path) {
		return ErrTraversal
	}

	// 2. Normalize path to absolute, cleaned form
	p, err := NormalizePath(path)
	if err != nil {
		return err
	}

	// 3. The wipe stats the root and so follows links; judge the real location as well
	candidates := []string{p}
	resolved, err := filepath.EvalSymlinks(p)
	switch {
	case err == nil:
		if !samePath(resolved, p) {
			candidates = append(candidates, resolved)
		}
	case errors.Is(err, fs.ErrNotExist):
		// nothing to wipe; the engine reports the missing root
	default:
		return fmt.Errorf("%w: cannot resolve %s: %v", ErrInvalidPath, p, err)
	}

	// 4. Block volume roots, exact protected roots and protected trees
	for _, c := range candidates {
		if v.blocks(c) {
			return ErrProtectedPath
		}
	}
	return nil
}

func (v *Validator) blocks(p string) bool {
	return isVolumeRoot(p) || matchesExact(p, v.ProtectedRoots) ||
		IsProtectedPath(p, v.ProtectedTrees) || overlaps(p, v.StatePaths)
}

// overlaps reports whether path lies inside any of dirs or contains one of them
func overlaps(path string, dirs []string) bool {
	for _, d := range dirs {
		if hasPathPrefix(path, d) || hasPathPrefix(d, path) {
			return true
		}
	}
	return false
}

// NormalizePath requires an absolute path and returns its cleaned form
func NormalizePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", ErrInvalidPath
	}
	if !filepath.IsAbs(path) {
		return "", ErrNotAbsolute
	}
	return filepath.Clean(path), nil
}

// DetectTraversal blocks any ".." segment in raw input
func DetectTraversal(raw string) bool {
	parts := strings.Split(filepath.ToSlash(raw), "/")
	for _, p := range parts {
		if p == ".." {
			return true
		}
	}
	return false
}

// IsProtectedPath checks if path is inside any protected tree
func IsProtectedPath(path string, protected []string) bool {
	p := filepath.Clean(path)
	for _, prot := range protected {
		if hasPathPrefix(p, prot) {
			return true
		}
	}
	return false
}

// withResolved appends the symlink-free form of every existing path that differs
func withResolved(paths []string) []string {
	out := append([]string(nil), paths...)
	for _, p := range paths {
		resolved, err := filepath.EvalSymlinks(p)
		if err == nil && !samePath(resolved, filepath.Clean(p)) {
			out = append(out, resolved)
		}
	}
	return out
}

func matchesExact(path string, roots []string) bool {
	for _, r := range roots {
		if samePath(path, filepath.Clean(r)) {
			return true
		}
	}
	return false
}

func isVolumeRoot(path string) bool {
	vol := filepath.VolumeName(path)
	rest := strings.TrimPrefix(path, vol)
	return rest == "" || rest == string(os.PathSeparator)
}

// hasPathPrefix checks if path equals prefix or lies beneath it
func hasPathPrefix(path, prefix string) bool {
	path = filepath.Clean(path)
	prefix = filepath.Clean(prefix)

	if samePath(path, prefix) {
		return true
	}
	if !strings.HasSuffix(prefix, string(os.PathSeparator)) {
		prefix += string(os.PathSeparator)
	}
	if runtime.GOOS == "windows" {
		return strings.HasPrefix(strings.ToLower(path), strings.ToLower(prefix))
	}
	return strings.HasPrefix(path, prefix)
}

func samePath(a, b string) bool {
	if runtime.GOOS == "windows" {
		return strings.EqualFold(a, b)
	}
	return a == b
}

// defaultProtectedTrees returns the system trees for goos plus any extras
func defaultProtectedTrees(goos string, extra []string) []string {
	var base []string
	switch goos {
	case "windows":
		sysRoot := os.Getenv("SystemRoot")
		if sysRoot == "" {
			sysRoot = `C:\Windows`
		}
		base = []string{
			filepath.Join(sysRoot, "System32"),
			filepath.Join(sysRoot, "SysWOW64"),
			filepath.Join(sysRoot, "WinSxS"),
			`C:\Program Files`,
			`C:\Program Files (x86)`,
			`C:\ProgramData`,
		}
	default:
		base = []string{
			"/etc",
			"/bin",
			"/sbin",
			"/usr",
			"/boot",
			"/lib",
			"/lib64",
			"/dev",
			"/proc",
			"/sys",
			"/System",
			"/Library",
			"/Applications",
		}
	}
	return append(base, extra...)
}

// defaultProtectedRoots blocks directories whose wholesale emptying is never intended
func defaultProtectedRoots(goos string) []string {
	var roots []string
	if home, err := os.UserHomeDir(); err == nil {
		roots = append(roots, home)
	}
	switch goos {
	case "windows":
		sysRoot := os.Getenv("SystemRoot")
		if sysRoot == "" {
			sysRoot = `C:\Windows`
		}
		roots = append(roots, sysRoot, `C:\Users`)
	default:
		roots = append(roots, "/home", "/Users", "/root", "/var", "/opt", "/srv")
	}
	return roots
}

// stateDirs are the tool's own config and log locations
func stateDirs() []string {
	var dirs []string
	if dir, err := os.UserConfigDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "disk-janitor"))
	}
	if dir, err := os.UserCacheDir(); err == nil {
		dirs = append(dirs, filepath.Join(dir, "disk-janitor"))
	}
	return dirs
}
