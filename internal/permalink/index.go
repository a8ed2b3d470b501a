package permalink

import (
	"sort"
	"sync"

	serrors "git.home.luguber.info/inful/sitepress/internal/errors"
)

// Index records which owner claimed each output path.
type Index struct {
	mu     sync.Mutex
	owners map[string]string
}

// NewIndex returns an empty Index.
func NewIndex() *Index {
	return &Index{owners: make(map[string]string)}
}

// Claim registers owner for path. A second owner for the same path yields a
// PermalinkCollisionError naming both.
func (x *Index) Claim(path, owner string) error {
	key := Clean(path)
	x.mu.Lock()
	defer x.mu.Unlock()
	if prev, ok := x.owners[key]; ok {
		return &serrors.PermalinkCollisionError{Path: key, Owners: []string{prev, owner}}
	}
	x.owners[key] = owner
	return nil
}

// Owner returns the owner of path, if claimed.
func (x *Index) Owner(path string) (string, bool) {
	x.mu.Lock()
	defer x.mu.Unlock()
	o, ok := x.owners[Clean(path)]
	return o, ok
}

// Paths returns all claimed paths in lexical order.
func (x *Index) Paths() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make([]string, 0, len(x.owners))
	for p := range x.owners {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Len reports how many paths are claimed.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.owners)
}
