package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scriptforge/internal/compiler"
)

const invoiceDoc = `{"flow_name": "Create Invoice", "original_url": "https://erp.example.com", "steps": [
  {"step": 1, "action": "Fill", "navigation": "Enter Supplier", "data": "Supplier: Allied", "locators": {"css": "#supplier"}},
  {"step": 2, "action": "Click", "navigation": "Save", "locators": {"css": "#save"}}
]}`

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/flows/create-invoice.refined.json", []byte(invoiceDoc), 0o644))
	require.NoError(t, fs.MkdirAll("/repo/tests", 0o755))
	return fs
}

func execute(t *testing.T, fs afero.Fs, args ...string) (string, error) {
	t.Helper()
	t.Setenv("SCRIPTFORGE_PG_DSN", "")
	var stdout, stderr bytes.Buffer
	c := newRootCommand(fs, &stdout, &stderr)
	c.cmd.SetArgs(append([]string{"--framework-root", "/repo", "--flows-dir", "/flows", "--log-level", "warn"}, args...))
	err := c.cmd.ExecuteContext(context.Background())
	return stdout.String(), err
}

func TestCompilePrintsArtifacts(t *testing.T) {
	out, err := execute(t, newTestFs(t), "compile", "create-invoice")
	require.NoError(t, err)

	var res compiler.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "create-invoice", res.Flow.Slug)
	assert.Equal(t, 2, res.Steps)
	require.Len(t, res.Artifacts.Tests, 1)
	assert.Equal(t, "tests/create-invoice.spec.ts", res.Artifacts.Tests[0].Path)
}

func TestCompileWritesIntoFramework(t *testing.T) {
	fs := newTestFs(t)
	out, err := execute(t, fs, "compile", "create-invoice", "--write")
	require.NoError(t, err)
	assert.Equal(t, "/repo/locators/create-invoice.ts\n/repo/pages/CreateInvoicePage.ts\n/repo/tests/create-invoice.spec.ts\n", out)

	script, err := afero.ReadFile(fs, "/repo/tests/create-invoice.spec.ts")
	require.NoError(t, err)
	assert.Contains(t, string(script), `"Step 0 - Enter Supplier"`)
}

func TestCompileWithPreviewFile(t *testing.T) {
	fs := newTestFs(t)
	require.NoError(t, afero.WriteFile(fs, "/tmp/accepted.txt", []byte("2. Click | Save\n3. Click | Close\n"), 0o644))
	out, err := execute(t, fs, "compile", "create-invoice", "--preview", "/tmp/accepted.txt")
	require.NoError(t, err)

	var res compiler.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 1, res.Steps)
	assert.NotContains(t, res.Artifacts.Locators[0].Content, "#supplier")
}

func TestCompileUnknownFlow(t *testing.T) {
	_, err := execute(t, newTestFs(t), "compile", "payroll")
	assert.ErrorIs(t, err, compiler.ErrNoSteps)
}

func TestPreviewCommand(t *testing.T) {
	out, err := execute(t, newTestFs(t), "preview", "Create Invoice", "--max", "1")
	require.NoError(t, err)
	assert.Equal(t, "1. Fill | Enter Supplier | Data: Supplier: Allied\n", out)
}

func TestIngestNeedsPostgres(t *testing.T) {
	_, err := execute(t, newTestFs(t), "ingest", "/flows/create-invoice.refined.json")
	assert.ErrorContains(t, err, "Postgres DSN")
}

func TestCompileArchiveNeedsEndpoint(t *testing.T) {
	t.Setenv("ARTIFACT_S3_ENDPOINT", "")
	_, err := execute(t, newTestFs(t), "compile", "create-invoice", "--archive", "run-1")
	assert.ErrorContains(t, err, "ARTIFACT_S3_ENDPOINT")
}
