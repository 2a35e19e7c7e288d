package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNamespace(t *testing.T) *Namespace {
	t.Helper()
	ns, err := NewNamespace(t.TempDir())
	require.NoError(t, err)
	return ns
}

func readLive(t *testing.T, ns *Namespace, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(ns.Root(), filepath.FromSlash(rel)))
	require.NoError(t, err)
	return string(data)
}

func TestWriteFileAndList(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.CreateDirectory("docs"))
	require.NoError(t, ns.WriteFile("docs/readme.md", []byte("hello")))
	require.NoError(t, ns.WriteFile("notes.txt", []byte("notes")))

	entries, err := ns.List("")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// Directories sort before files.
	assert.Equal(t, "docs", entries[0].Name)
	assert.True(t, entries[0].IsDir)
	assert.Equal(t, "notes.txt", entries[1].Name)
	assert.False(t, entries[1].IsDir)
	require.NotNil(t, entries[1].Size)
	assert.Equal(t, int64(5), *entries[1].Size)
	assert.Equal(t, "PlainText", entries[1].Format)
	assert.Nil(t, entries[1].VersionCount)

	sub, err := ns.List("docs")
	require.NoError(t, err)
	require.Len(t, sub, 1)
	assert.Equal(t, "docs/readme.md", sub[0].Path)
}

func TestListHidesVersionsDirectory(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.WriteFile("a.txt", []byte("one")))
	require.NoError(t, ns.WriteFile("a.txt", []byte("two")))

	entries, err := ns.List("")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "a.txt", entries[0].Name)
	require.NotNil(t, entries[0].VersionCount)
	assert.Equal(t, 1, *entries[0].VersionCount)
}

func TestListNotFound(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.WriteFile("a.txt", []byte("x")))

	_, err := ns.List("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ns.List("a.txt")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCreateDirectoryConflict(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.WriteFile("taken", []byte("file")))
	assert.ErrorIs(t, ns.CreateDirectory("taken"), ErrConflict)

	// Existing directory is a no-op.
	require.NoError(t, ns.CreateDirectory("dir"))
	require.NoError(t, ns.CreateDirectory("dir"))
}

func TestWriteFileConflictsAndMissingParent(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.CreateDirectory("dir"))
	assert.ErrorIs(t, ns.WriteFile("dir", []byte("x")), ErrConflict)

	assert.ErrorIs(t, ns.WriteFile("nope/file.txt", []byte("x")), ErrNotFound)
}

func TestResolveRejectsEscapesAndReservedSegments(t *testing.T) {
	ns := newTestNamespace(t)

	assert.ErrorIs(t, ns.WriteFile("../escape.txt", []byte("x")), ErrInvalidPath)
	assert.ErrorIs(t, ns.WriteFile("a/../../escape.txt", []byte("x")), ErrInvalidPath)
	assert.ErrorIs(t, ns.WriteFile(".versions/meta.json", []byte("x")), ErrInvalidPath)
	assert.ErrorIs(t, ns.CreateDirectory("sub/.versions"), ErrInvalidPath)
}

func TestDeleteFileDropsHistory(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.WriteFile("a.txt", []byte("one")))
	require.NoError(t, ns.WriteFile("a.txt", []byte("two")))
	verDir := filepath.Join(ns.Root(), ".versions")
	_, err := os.Stat(verDir)
	require.NoError(t, err)

	require.NoError(t, ns.Delete("a.txt"))
	_, err = os.Stat(verDir)
	assert.True(t, os.IsNotExist(err))
}

func TestDeleteDirectoryRecursive(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.CreateDirectory("dir/sub"))
	require.NoError(t, ns.WriteFile("dir/sub/a.txt", []byte("x")))

	require.NoError(t, ns.Delete("dir"))
	_, err := ns.List("dir")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteGuards(t *testing.T) {
	ns := newTestNamespace(t)

	assert.ErrorIs(t, ns.Delete(""), ErrInvalidPath)
	assert.ErrorIs(t, ns.Delete("missing.txt"), ErrNotFound)
}

func TestHistoryAndRollback(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.CreateDirectory("a"))
	require.NoError(t, ns.WriteFile("a/b.txt", []byte("v1")))
	require.NoError(t, ns.WriteFile("a/b.txt", []byte("v2")))
	require.NoError(t, ns.WriteFile("a/b.txt", []byte("v3")))

	history, err := ns.History("a/b.txt")
	require.NoError(t, err)
	require.Len(t, history.Versions, 2)
	assert.Equal(t, 1, history.Versions[0].Version)
	assert.Equal(t, 2, history.Versions[1].Version)
	assert.Equal(t, "Saved before overwrite", history.Versions[0].Comment)
	assert.Equal(t, int64(2), history.CurrentSize)

	abs := filepath.Join(ns.Root(), "a", "b.txt")
	stored, err := versionContent(abs, 1)
	require.NoError(t, err)
	assert.Equal(t, "v1", string(stored))

	require.NoError(t, ns.Rollback("a/b.txt", 1))
	assert.Equal(t, "v1", readLive(t, ns, "a/b.txt"))

	// The rollback snapshotted the pre-rollback content as a new version.
	history, err = ns.History("a/b.txt")
	require.NoError(t, err)
	require.Len(t, history.Versions, 3)
	last := history.Versions[2]
	assert.Equal(t, 3, last.Version)
	assert.Equal(t, "Auto-saved before rollback to v1", last.Comment)
	stored, err = versionContent(abs, 3)
	require.NoError(t, err)
	assert.Equal(t, "v3", string(stored))
}

func TestRollbackUnknownVersion(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.WriteFile("a.txt", []byte("one")))

	assert.ErrorIs(t, ns.Rollback("a.txt", 7), ErrNotFound)
	assert.ErrorIs(t, ns.Rollback("missing.txt", 1), ErrNotFound)
}

func TestVersionRetentionCap(t *testing.T) {
	ns := newTestNamespace(t)

	require.NoError(t, ns.WriteFile("a.txt", []byte("v0")))
	for i := 1; i <= 12; i++ {
		require.NoError(t, ns.WriteFile("a.txt", []byte{byte('a' + i)}))
	}

	history, err := ns.History("a.txt")
	require.NoError(t, err)
	require.Len(t, history.Versions, maxVersions)
	// Numbers keep growing; only the highest ten survive.
	assert.Equal(t, 3, history.Versions[0].Version)
	assert.Equal(t, 12, history.Versions[len(history.Versions)-1].Version)

	// Evicted version content is gone, retained content is readable.
	abs := filepath.Join(ns.Root(), "a.txt")
	_, err = versionContent(abs, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	data, err := versionContent(abs, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestHistoryForFreshFileIsEmpty(t *testing.T) {
	ns := newTestNamespace(t)
	require.NoError(t, ns.WriteFile("a.txt", []byte("one")))

	history, err := ns.History("a.txt")
	require.NoError(t, err)
	assert.Empty(t, history.Versions)
	assert.Equal(t, "a.txt", history.FilePath)
}
