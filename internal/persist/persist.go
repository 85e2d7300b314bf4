// Package persist writes generated artifacts into a framework checkout,
// refusing any path that escapes the framework root.
package persist

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/afero"

	"scriptforge/internal/emit"
)

// PathSafetyError reports an output path that resolves outside the root.
type PathSafetyError struct {
	Path string
	Root string
}

func (e *PathSafetyError) Error() string {
	return fmt.Sprintf("persist: %s resolves outside framework root %s", e.Path, e.Root)
}

// Writer is locked to one framework root.
type Writer struct {
	fs      afero.Fs
	absRoot string
	// symlinks is set for filesystems backed by the OS, where links inside
	// the root could point elsewhere.
	symlinks bool
}

// NewWriter binds a Writer to root, which must be an existing directory.
func NewWriter(fsys afero.Fs, root string) (*Writer, error) {
	if root == "" {
		return nil, errors.New("persist: empty root")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	_, osBacked := fsys.(*afero.OsFs)
	if osBacked {
		if abs, err = filepath.EvalSymlinks(abs); err != nil {
			return nil, err
		}
	}
	info, err := fsys.Stat(abs)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, errors.New("persist: root is not a directory")
	}
	return &Writer{fs: fsys, absRoot: abs, symlinks: osBacked}, nil
}

// Root returns the absolute root directory.
func (w *Writer) Root() string { return w.absRoot }

// Resolve maps a root-relative path to an absolute path under the root.
func (w *Writer) Resolve(userPath string) (string, error) {
	if userPath == "" {
		return "", errors.New("persist: empty path")
	}
	clean := filepath.Clean(filepath.FromSlash(userPath))
	joined := clean
	if !filepath.IsAbs(clean) {
		joined = filepath.Join(w.absRoot, clean)
	}
	resolved := joined
	if w.symlinks {
		var err error
		if resolved, err = evalExisting(joined); err != nil {
			return "", err
		}
	}
	if !hasPathPrefix(resolved, w.absRoot) || resolved == w.absRoot {
		return "", &PathSafetyError{Path: userPath, Root: w.absRoot}
	}
	return resolved, nil
}

// Persist validates every file before writing any, then writes them in
// order and returns their absolute paths.
func (w *Writer) Persist(files []emit.File) ([]string, error) {
	targets := make([]string, len(files))
	for i, f := range files {
		p, err := w.Resolve(f.Path)
		if err != nil {
			return nil, err
		}
		targets[i] = p
	}
	for i, f := range files {
		if err := w.fs.MkdirAll(filepath.Dir(targets[i]), 0o755); err != nil {
			return nil, fmt.Errorf("persist: create directory for %s: %w", f.Path, err)
		}
		if err := afero.WriteFile(w.fs, targets[i], []byte(f.Content), 0o644); err != nil {
			return nil, fmt.Errorf("persist: write %s: %w", f.Path, err)
		}
	}
	return targets, nil
}

// evalExisting resolves symlinks in the longest existing prefix of p and
// re-appends the components that do not exist yet.
func evalExisting(p string) (string, error) {
	var rest []string
	cur := p
	for {
		resolved, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

func hasPathPrefix(path, root string) bool {
	path = filepath.Clean(path)
	root = filepath.Clean(root)
	if runtime.GOOS == "windows" {
		path = strings.ToLower(path)
		root = strings.ToLower(root)
	}
	if path == root {
		return true
	}
	sep := string(os.PathSeparator)
	if !strings.HasSuffix(root, sep) {
		root += sep
	}
	return strings.HasPrefix(path, root)
}
