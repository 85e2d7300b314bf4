package framework

import (
	"errors"
	"io/fs"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

const (
	LoginPageFile = "login.page.ts"
	HomePageFile  = "home.page.ts"
)

var helperCandidates = []string{
	"util/methods.utility.ts",
	"util/methods.utility",
	"utils/methods.utility.ts",
	"utils/methods.utility",
}

// Assets are pre-existing framework modules the generated code can reuse.
// Paths are root-relative and slash separated; empty means not found.
type Assets struct {
	LoginPage string `json:"loginPage,omitempty"`
	HomePage  string `json:"homePage,omitempty"`
	Helper    string `json:"helper,omitempty"`
}

// errFound stops a walk early.
var errFound = errors.New("found")

// FindAssets looks for the login and home page objects anywhere under the
// pages directory and for the helper utility module under util/ or utils/.
// Missing assets are not an error.
func FindAssets(fsys afero.Fs, p Profile) (Assets, error) {
	var a Assets
	pagesDir := p.Abs(p.Pages())
	if isDir(fsys, pagesDir) {
		var err error
		if a.LoginPage, err = findFile(fsys, p.Root, pagesDir, LoginPageFile); err != nil {
			return Assets{}, err
		}
		if a.HomePage, err = findFile(fsys, p.Root, pagesDir, HomePageFile); err != nil {
			return Assets{}, err
		}
	}
	for _, candidate := range helperCandidates {
		if isFile(fsys, p.Abs(candidate)) {
			a.Helper = candidate
			break
		}
	}
	return a, nil
}

// findFile returns the first file named name under dir in lexical walk
// order, relative to root.
func findFile(fsys afero.Fs, root, dir, name string) (string, error) {
	var found string
	err := afero.Walk(fsys, dir, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() != name {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		found = path.Clean(filepath.ToSlash(rel))
		return errFound
	})
	if err != nil && !errors.Is(err, errFound) {
		return "", err
	}
	return found, nil
}
