package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeInstall(t *testing.T, root, version string, withHelpFile bool) {
	t.Helper()
	binPath := filepath.Join(root, version, "bin")
	require.NoError(t, os.MkdirAll(binPath, 0o755))
	if withHelpFile {
		require.NoError(t, os.WriteFile(filepath.Join(binPath, syntaxHelpFile), []byte("x"), 0o644))
	}
}

func TestFindSelectsHighestVersion(t *testing.T) {
	root := t.TempDir()
	makeInstall(t, root, "8.3.20.1000", true)
	makeInstall(t, root, "8.3.27.1989", true)
	makeInstall(t, root, "8.3.25.1500", true)

	inst, ok := find([]string{root})
	require.True(t, ok)
	assert.Equal(t, "8.3.27.1989", inst.Version)
	assert.Equal(t, filepath.Join(root, "8.3.27.1989", "bin"), inst.BinPath)
}

func TestFindSkipsDirectoriesWithoutHelpFile(t *testing.T) {
	root := t.TempDir()
	makeInstall(t, root, "8.3.27.1989", false)
	makeInstall(t, root, "8.3.20.1000", true)

	inst, ok := find([]string{root})
	require.True(t, ok)
	assert.Equal(t, "8.3.20.1000", inst.Version)
}

func TestFindSkipsNonVersionDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "not-a-version", "bin"), 0o755))
	makeInstall(t, root, "8.3.27.1989", true)

	inst, ok := find([]string{root})
	require.True(t, ok)
	assert.Equal(t, "8.3.27.1989", inst.Version)
}

func TestFindReturnsFalseWhenNoCandidate(t *testing.T) {
	root := t.TempDir()
	_, ok := find([]string{root})
	assert.False(t, ok)
}

func TestFindReturnsFalseWhenRootMissing(t *testing.T) {
	_, ok := find([]string{filepath.Join(t.TempDir(), "does-not-exist")})
	assert.False(t, ok)
}

func TestFindSearchesMultipleRoots(t *testing.T) {
	rootA, rootB := t.TempDir(), t.TempDir()
	makeInstall(t, rootA, "8.3.10.1000", true)
	makeInstall(t, rootB, "8.3.27.1989", true)

	inst, ok := find([]string{rootA, rootB})
	require.True(t, ok)
	assert.Equal(t, "8.3.27.1989", inst.Version)
}

func TestCompareVersions(t *testing.T) {
	assert.Positive(t, compareVersions("8.3.27.1989", "8.3.20.1000"))
	assert.Negative(t, compareVersions("8.3.20.1000", "8.3.27.1989"))
	assert.Zero(t, compareVersions("8.3.27.1989", "8.3.27.1989"))
	assert.Positive(t, compareVersions("9.0.0.0", "8.9.9.9999"))
}
