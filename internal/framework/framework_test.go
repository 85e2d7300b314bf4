package framework

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func memRepo(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	require.NoError(t, fsys.MkdirAll("/repo", 0o755))
	for _, f := range files {
		require.NoError(t, afero.WriteFile(fsys, "/repo/"+f, []byte("// "+f), 0o644))
	}
	return fsys
}

func TestDiscoverConventionalDirs(t *testing.T) {
	fsys := memRepo(t, "selectors/a.ts", "pageObjects/b.ts", "e2e/c.spec.ts", "utils/x.ts")

	p, err := Discover(fsys, "/repo")
	require.NoError(t, err)
	assert.Equal(t, "/repo", p.Root)
	assert.Equal(t, "selectors", p.Locators())
	assert.Equal(t, "pageObjects", p.Pages())
	assert.Equal(t, "e2e", p.Tests())
	assert.Equal(t, map[string]string{"utils": "utils"}, p.Additional)
}

func TestDiscoverDefaults(t *testing.T) {
	p, err := Discover(memRepo(t), "/repo")
	require.NoError(t, err)
	assert.Equal(t, DefaultLocatorsDir, p.Locators())
	assert.Equal(t, DefaultPagesDir, p.Pages())
	assert.Equal(t, DefaultTestsDir, p.Tests())
	assert.Nil(t, p.Additional)
}

func TestDiscoverMissingRoot(t *testing.T) {
	_, err := Discover(afero.NewMemMapFs(), "/nowhere")
	require.Error(t, err)
}

func TestLoadProfileOverlay(t *testing.T) {
	fsys := memRepo(t)
	require.NoError(t, afero.WriteFile(fsys, "/cfg/profile.yaml", []byte("root: ../repo\npages: src/pages/\n"), 0o644))

	base, err := Discover(fsys, "/repo")
	require.NoError(t, err)
	p, err := LoadProfile(fsys, "/cfg/profile.yaml", base)
	require.NoError(t, err)
	assert.Equal(t, "/repo", p.Root)
	assert.Equal(t, "src/pages", p.Pages())
	assert.Equal(t, DefaultTestsDir, p.Tests())
}

func TestLoadProfileRejectsBadYAML(t *testing.T) {
	fsys := memRepo(t)
	require.NoError(t, afero.WriteFile(fsys, "/cfg/profile.yaml", []byte("pages: [unterminated"), 0o644))
	_, err := LoadProfile(fsys, "/cfg/profile.yaml", Profile{})
	require.Error(t, err)
}

func TestFindAssets(t *testing.T) {
	fsys := memRepo(t,
		"pages/auth/login.page.ts",
		"pages/home.page.ts",
		"utils/methods.utility.ts",
	)
	p, err := Discover(fsys, "/repo")
	require.NoError(t, err)

	a, err := FindAssets(fsys, p)
	require.NoError(t, err)
	assert.Equal(t, Assets{
		LoginPage: "pages/auth/login.page.ts",
		HomePage:  "pages/home.page.ts",
		Helper:    "utils/methods.utility.ts",
	}, a)
}

func TestFindAssetsAbsentIsNotAnError(t *testing.T) {
	p, err := Discover(memRepo(t), "/repo")
	require.NoError(t, err)
	a, err := FindAssets(memRepo(t), p)
	require.NoError(t, err)
	assert.Equal(t, Assets{}, a)
}
