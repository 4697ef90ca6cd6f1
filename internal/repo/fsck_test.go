package repo

import (
	"os"
	"path/filepath"
	"testing"

	"tigdiff/internal/object"
	"tigdiff/internal/safe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contentFile(root string, id object.ID) string {
	hash := id.String()
	return filepath.Join(root, DirName, "content", hash[:2], hash[2:])
}

func TestCheck(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, Init(root))
	r, err := Open(root, nil)
	require.NoError(t, err)
	defer r.Close()

	writeFile(t, root, "a.txt", "alpha\n")
	writeFile(t, root, "b.txt", "beta\n")
	writeFile(t, root, "c.txt", "gamma\n")
	require.NoError(t, r.AddPaths(root))
	_, err = r.WriteTreeFromIndex()
	require.NoError(t, err)

	damaged, err := r.Check()
	require.NoError(t, err)
	assert.Empty(t, damaged)

	index, err := r.Entries()
	require.NoError(t, err)
	require.Len(t, index, 3)
	byPath := make(map[string]object.ID)
	for _, e := range index {
		byPath[e.Path] = e.ID
	}

	require.NoError(t, os.WriteFile(contentFile(root, byPath["a.txt"]), []byte("tampered"), 0644))
	require.NoError(t, os.Remove(contentFile(root, byPath["b.txt"])))

	damaged, err = r.Check()
	require.NoError(t, err)
	require.Len(t, damaged, 2)

	got := make(map[string]error)
	for _, d := range damaged {
		got[d.Path] = d.Err
	}
	assert.ErrorIs(t, got["a.txt"], safe.ErrHashMismatch)
	assert.ErrorIs(t, got["b.txt"], safe.ErrContentNotFound)
}

func TestCheck_EmptyRepository(t *testing.T) {
	r, _ := newTestRepo(t)
	damaged, err := r.Check()
	require.NoError(t, err)
	assert.Empty(t, damaged)
}
