package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.NoError(t, err)
	assert.Equal(t, ".", c.FrameworkRoot)
	assert.Equal(t, "generated_flows", c.FlowsDir)
	assert.Equal(t, "info", c.LogLevel)
	assert.Equal(t, ":8090", c.Addr)
	assert.Equal(t, "us-east-1", c.Artifact.Region)
	assert.True(t, c.Artifact.UseSSL)
	assert.False(t, c.Artifact.Enabled())
	assert.Equal(t, "gemini-2.5-flash", c.Gemini.Model)
}

func TestLoadEnvironmentAndDotEnv(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("SCRIPTFORGE_FLOWS_DIR=/data/flows\nARTIFACT_S3_BUCKET=runs\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("SCRIPTFORGE_FLOWS_DIR") })
	t.Setenv("SCRIPTFORGE_FRAMEWORK_ROOT", "/work/framework")
	t.Setenv("SCRIPTFORGE_LOG_FORMAT", "json")
	t.Setenv("ARTIFACT_S3_ENDPOINT", "minio:9000")
	t.Setenv("ARTIFACT_S3_USE_SSL", "false")
	t.Setenv("GEMINI_API_KEY", "k")
	// godotenv never overrides variables that are already set.
	t.Setenv("ARTIFACT_S3_BUCKET", "from-env")

	c, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, "/work/framework", c.FrameworkRoot)
	assert.Equal(t, "/data/flows", c.FlowsDir)
	assert.Equal(t, "json", c.LogFormat)
	assert.True(t, c.Artifact.Enabled())
	assert.False(t, c.Artifact.UseSSL)
	assert.Equal(t, "from-env", c.Artifact.Bucket)
	assert.Equal(t, "k", c.Gemini.APIKey)
}

func TestLoadRejectsBadBool(t *testing.T) {
	t.Setenv("ARTIFACT_S3_USE_SSL", "maybe")
	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	require.Error(t, err)
}
