// Package framework describes the target test-automation repository that
// generated artifacts are written into.
package framework

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

const (
	DefaultLocatorsDir = "locators"
	DefaultPagesDir    = "pages"
	DefaultTestsDir    = "tests"
)

var (
	locatorCandidates = []string{"locators", "locator", "selectors"}
	pageCandidates    = []string{"pages", "page", "pageObjects", "page_objects", "src/pages"}
	testCandidates    = []string{"tests", "specs", "test", "e2e", "src/tests"}
	extraCandidates   = []string{"fixtures", "data", "util", "utils", "support"}
)

// Profile locates the artifact directories inside a framework checkout.
// Directory fields are root-relative and slash separated.
type Profile struct {
	Root        string            `yaml:"root"`
	LocatorsDir string            `yaml:"locators"`
	PagesDir    string            `yaml:"pages"`
	TestsDir    string            `yaml:"tests"`
	Additional  map[string]string `yaml:"additional,omitempty"`
}

// Discover inspects root for conventional directory names. Directories that
// do not exist fall back to the defaults and are created on persist.
func Discover(fsys afero.Fs, root string) (Profile, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return Profile{}, fmt.Errorf("resolve framework root: %w", err)
	}
	info, err := fsys.Stat(abs)
	if err != nil {
		return Profile{}, fmt.Errorf("stat framework root: %w", err)
	}
	if !info.IsDir() {
		return Profile{}, fmt.Errorf("framework root %s is not a directory", abs)
	}

	p := Profile{
		Root:        abs,
		LocatorsDir: firstDir(fsys, abs, locatorCandidates, DefaultLocatorsDir),
		PagesDir:    firstDir(fsys, abs, pageCandidates, DefaultPagesDir),
		TestsDir:    firstDir(fsys, abs, testCandidates, DefaultTestsDir),
	}
	for _, name := range extraCandidates {
		if isDir(fsys, filepath.Join(abs, filepath.FromSlash(name))) {
			if p.Additional == nil {
				p.Additional = make(map[string]string)
			}
			p.Additional[name] = name
		}
	}
	return p, nil
}

// LoadProfile overlays the YAML profile at file onto base. Empty fields in
// the file keep base's values; a relative root is resolved against the
// file's directory.
func LoadProfile(fsys afero.Fs, file string, base Profile) (Profile, error) {
	raw, err := afero.ReadFile(fsys, file)
	if err != nil {
		return Profile{}, fmt.Errorf("read profile: %w", err)
	}
	var override Profile
	if err := yaml.Unmarshal(raw, &override); err != nil {
		return Profile{}, fmt.Errorf("decode profile %s: %w", file, err)
	}

	out := base
	if override.Root != "" {
		out.Root = override.Root
		if !filepath.IsAbs(out.Root) {
			out.Root = filepath.Join(filepath.Dir(file), out.Root)
		}
	}
	if override.LocatorsDir != "" {
		out.LocatorsDir = path.Clean(override.LocatorsDir)
	}
	if override.PagesDir != "" {
		out.PagesDir = path.Clean(override.PagesDir)
	}
	if override.TestsDir != "" {
		out.TestsDir = path.Clean(override.TestsDir)
	}
	for k, v := range override.Additional {
		if out.Additional == nil {
			out.Additional = make(map[string]string)
		}
		out.Additional[k] = v
	}
	return out, nil
}

// Locators returns the locator directory, defaulting when unset.
func (p Profile) Locators() string { return orDefault(p.LocatorsDir, DefaultLocatorsDir) }

// Pages returns the page directory, defaulting when unset.
func (p Profile) Pages() string { return orDefault(p.PagesDir, DefaultPagesDir) }

// Tests returns the test directory, defaulting when unset.
func (p Profile) Tests() string { return orDefault(p.TestsDir, DefaultTestsDir) }

// Abs joins a root-relative slash path onto the root.
func (p Profile) Abs(rel string) string {
	return filepath.Join(p.Root, filepath.FromSlash(rel))
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func firstDir(fsys afero.Fs, root string, candidates []string, def string) string {
	for _, name := range candidates {
		if isDir(fsys, filepath.Join(root, filepath.FromSlash(name))) {
			return name
		}
	}
	return def
}

func isDir(fsys afero.Fs, name string) bool {
	ok, err := afero.DirExists(fsys, name)
	return err == nil && ok
}

func isFile(fsys afero.Fs, name string) bool {
	info, err := fsys.Stat(name)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular() || info.Mode()&os.ModeSymlink != 0
}
