package flowsource

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"scriptforge/internal/flow"
)

// DocumentSuffix marks refined flow documents written by the recorder.
const DocumentSuffix = ".refined.json"

// DirSource reads refined flow documents from a directory.
type DirSource struct {
	fs     afero.Fs
	dir    string
	logger logrus.FieldLogger
}

func NewDirSource(fsys afero.Fs, dir string, logger logrus.FieldLogger) *DirSource {
	return &DirSource{fs: fsys, dir: dir, logger: logger}
}

// Steps returns the newest document matching ref by slug, by file stem or
// by case-insensitive flow name. Unreadable documents are skipped.
func (d *DirSource) Steps(_ context.Context, ref string) ([]flow.RecordedStep, flow.Meta, error) {
	candidates, err := d.documents()
	if err != nil {
		return nil, flow.Meta{}, err
	}
	slug := Slugify(ref)
	name := strings.ToLower(strings.TrimSpace(ref))
	for _, file := range candidates {
		raw, err := afero.ReadFile(d.fs, file)
		if err != nil {
			d.logger.WithError(err).WithField("file", file).Warn("skipping unreadable flow document")
			continue
		}
		doc, err := flow.ParseDocument(raw)
		if err != nil {
			d.logger.WithError(err).WithField("file", file).Warn("skipping malformed flow document")
			continue
		}
		stem := strings.ToLower(strings.TrimSuffix(filepath.Base(file), DocumentSuffix))
		if doc.Meta.Name == "" {
			doc.Meta.Name = stem
		}
		doc.Meta.Slug = Slugify(doc.Meta.Name)
		if doc.Meta.Slug != slug && !strings.Contains(stem, slug) && strings.ToLower(doc.Meta.Name) != name {
			continue
		}
		if len(doc.Steps) == 0 {
			continue
		}
		for i := range doc.Steps {
			doc.Steps[i].Flow = doc.Meta.Slug
		}
		return doc.Steps, doc.Meta, nil
	}
	return nil, flow.Meta{}, nil
}

// documents lists refined documents newest first.
func (d *DirSource) documents() ([]string, error) {
	entries, err := afero.ReadDir(d.fs, d.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ModTime().Equal(entries[j].ModTime()) {
			return entries[i].Name() < entries[j].Name()
		}
		return entries[i].ModTime().After(entries[j].ModTime())
	})
	var out []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), DocumentSuffix) {
			out = append(out, filepath.Join(d.dir, e.Name()))
		}
	}
	return out, nil
}
