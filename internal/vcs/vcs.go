// Package vcs reports the git revision the content tree was generated from.
package vcs

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// ErrNotRepository is returned when no repository encloses the path.
var ErrNotRepository = errors.New("not inside a git repository")

// Info describes the state of the enclosing repository.
type Info struct {
	Commit string
	Branch string
	Dirty  bool
}

// Short returns the abbreviated commit, marked when the worktree is dirty.
func (i Info) Short() string {
	if i.Commit == "" {
		return ""
	}
	c := i.Commit
	if len(c) > 8 {
		c = c[:8]
	}
	if i.Dirty {
		c += "+dirty"
	}
	return c
}

// Revision inspects the repository enclosing path.
func Revision(path string) (Info, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return Info{}, ErrNotRepository
	}
	if err != nil {
		return Info{}, fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if errors.Is(err, plumbing.ErrReferenceNotFound) {
		// Fresh repository without commits.
		return Info{}, nil
	}
	if err != nil {
		return Info{}, fmt.Errorf("resolve HEAD: %w", err)
	}

	info := Info{Commit: ref.Hash().String()}
	if ref.Name().IsBranch() {
		info.Branch = ref.Name().Short()
	}

	wt, err := repo.Worktree()
	if err != nil {
		return info, nil
	}
	status, err := wt.Status()
	if err != nil {
		return info, fmt.Errorf("worktree status: %w", err)
	}
	info.Dirty = !status.IsClean()
	return info, nil
}
