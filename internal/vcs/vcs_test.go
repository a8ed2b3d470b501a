package vcs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRevision(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	info, err := Revision(dir)
	require.NoError(t, err)
	assert.Empty(t, info.Commit, "no commits yet")

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "content"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "a.md"), []byte("---\ntitle: A\n---\n"), 0o600))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("content/a.md")
	require.NoError(t, err)
	hash, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{Name: "Test", Email: "test@example.org", When: time.Now()},
	})
	require.NoError(t, err)

	info, err = Revision(filepath.Join(dir, "content"))
	require.NoError(t, err)
	assert.Equal(t, hash.String(), info.Commit)
	assert.Equal(t, "master", info.Branch)
	assert.False(t, info.Dirty)
	assert.Equal(t, hash.String()[:8], info.Short())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "content", "a.md"), []byte("changed"), 0o600))
	info, err = Revision(dir)
	require.NoError(t, err)
	assert.True(t, info.Dirty)
	assert.Equal(t, hash.String()[:8]+"+dirty", info.Short())
}

func TestRevision_NotRepository(t *testing.T) {
	_, err := Revision(t.TempDir())
	assert.ErrorIs(t, err, ErrNotRepository)
}
