package archive

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptforge/internal/binding"
	"scriptforge/internal/emit"
)

func TestSaveWritesFilesAndManifest(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	set := emit.ArtifactSet{
		Locators: []emit.File{{Path: "locators/a.ts", Content: "L"}},
		Pages:    []emit.File{{Path: "pages/APage.ts", Content: "P"}},
		Tests:    []emit.File{{Path: "tests/a.spec.ts", Content: "T"}},
		TestData: []binding.Column{{Name: "Amount", Occurrences: 1, ActionType: "fill", Methods: []string{"setAmount"}}},
	}

	paths, err := Save(ctx, store, "run-1", set)
	require.NoError(t, err)
	assert.Equal(t, []string{"locators/a.ts", "pages/APage.ts", "tests/a.spec.ts", ManifestPath}, paths)

	listed, err := store.List(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"locators/a.ts", ManifestPath, "pages/APage.ts", "tests/a.spec.ts"}, listed)

	raw, err := store.Get(ctx, "run-1", ManifestPath)
	require.NoError(t, err)
	var m struct {
		Files    []string         `json:"files"`
		TestData []binding.Column `json:"testDataMapping"`
	}
	require.NoError(t, json.Unmarshal(raw, &m))
	assert.Len(t, m.Files, 3)
	assert.Equal(t, "Amount", m.TestData[0].Name)
}

func TestMemoryStoreValidation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.Error(t, store.Put(ctx, " ", "a", nil))
	require.Error(t, store.Put(ctx, "run", "", nil))
	_, err := store.List(ctx, "")
	require.Error(t, err)

	_, err = store.Get(ctx, "run", "missing.ts")
	assert.True(t, errors.Is(err, ErrNotFound))

	require.NoError(t, store.Put(ctx, "run", "/tests/x.ts", []byte("x")))
	got, err := store.Get(ctx, "run", "tests/x.ts")
	require.NoError(t, err)
	assert.Equal(t, "x", string(got))
}

func TestTranslateMissingObjects(t *testing.T) {
	missing := minio.ErrorResponse{Code: "NoSuchKey", Message: "gone"}
	assert.ErrorIs(t, translate(missing), ErrNotFound)
	denied := minio.ErrorResponse{Code: "AccessDenied"}
	assert.Equal(t, error(denied), translate(denied))
}

func TestNewS3StoreRequiresSettings(t *testing.T) {
	_, err := NewS3Store(S3Config{})
	require.EqualError(t, err, "s3 archive: missing endpoint, access key, secret key, bucket")
	_, err = NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b"})
	require.EqualError(t, err, "s3 archive: missing bucket")

	s, err := NewS3Store(S3Config{Endpoint: "localhost:9000", AccessKey: "a", SecretKey: "b", Bucket: "artifacts"})
	require.NoError(t, err)
	assert.Equal(t, "us-east-1", s.cfg.Region)
	assert.Equal(t, time.Hour, s.cfg.URLExpiry)

	u, err := s.GetURL(context.Background(), "run-1", "tests/a.spec.ts")
	require.NoError(t, err)
	assert.Contains(t, u, "/artifacts/run-1/tests/a.spec.ts?")
	assert.Contains(t, u, "response-content-disposition=")
	assert.Equal(t, "text/typescript; charset=utf-8", contentType("tests/a.spec.ts"))
	assert.Equal(t, "application/json", contentType(ManifestPath))
}
