// Package archive keeps copies of generated artifact sets keyed by run id.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"scriptforge/internal/binding"
	"scriptforge/internal/emit"
)

// ManifestPath holds the test data summary of an archived run.
const ManifestPath = "manifest.json"

var ErrNotFound = errors.New("archived artifact not found")

// Store persists artifact files under a run id.
type Store interface {
	Put(ctx context.Context, runID, path string, content []byte) error
	Get(ctx context.Context, runID, path string) ([]byte, error)
	GetURL(ctx context.Context, runID, path string) (string, error)
	List(ctx context.Context, runID string) ([]string, error)
}

// Manifest describes one archived run.
type Manifest struct {
	Files    []string         `json:"files"`
	TestData []binding.Column `json:"testDataMapping"`
}

// Save writes every file of set plus a manifest under runID and returns the
// archived paths.
func Save(ctx context.Context, store Store, runID string, set emit.ArtifactSet) ([]string, error) {
	files := set.Files()
	paths := make([]string, 0, len(files)+1)
	for _, f := range files {
		if err := store.Put(ctx, runID, f.Path, []byte(f.Content)); err != nil {
			return nil, fmt.Errorf("archive %s: %w", f.Path, err)
		}
		paths = append(paths, f.Path)
	}
	manifest, err := json.MarshalIndent(Manifest{Files: paths, TestData: set.TestData}, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := store.Put(ctx, runID, ManifestPath, manifest); err != nil {
		return nil, fmt.Errorf("archive manifest: %w", err)
	}
	return append(paths, ManifestPath), nil
}

// objectKey validates runID and path and joins them.
func objectKey(runID, path string) (string, error) {
	runID = strings.Trim(strings.TrimSpace(runID), "/")
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	if runID == "" {
		return "", errors.New("run_id is required")
	}
	if path == "" {
		return "", errors.New("path is required")
	}
	return runID + "/" + path, nil
}

func runPrefix(runID string) (string, error) {
	runID = strings.Trim(strings.TrimSpace(runID), "/")
	if runID == "" {
		return "", errors.New("run_id is required")
	}
	return runID + "/", nil
}
