package manifest

import (
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Manifest {
	m := New("build-123", time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC))
	m.Inputs = Inputs{
		ConfigHash: "config-hash-123",
		Revision:   "abc123",
		Engines:    []EngineInput{{Name: "blog", Units: 2, Plugins: []string{"markup"}}},
	}
	m.Add("blog/a/index.html", KindUnit, []string{"content/blog/a.md"}, []byte("a"))
	m.Add("blog/index.html", KindPage, []string{"content/blog/a.md", "content/blog/b.md"}, []byte("list"))
	return m
}

func TestManifestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "manifest.json")
	m := sample()
	require.NoError(t, m.Save(path))

	restored, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, m.BuildID, restored.BuildID)
	assert.Equal(t, m.Inputs, restored.Inputs)
	assert.Equal(t, m.Outputs, restored.Outputs)

	missing, err := Load(filepath.Join(t.TempDir(), "none.json"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFromJSONInvalid(t *testing.T) {
	_, err := FromJSON([]byte("{not json"))
	assert.Error(t, err)
}

func TestManifestHash(t *testing.T) {
	a, b := sample(), sample()
	b.BuildID = "other"
	b.Timestamp = time.Now()

	ha, err := a.Hash()
	require.NoError(t, err)
	hb, err := b.Hash()
	require.NoError(t, err)
	assert.Equal(t, ha, hb, "build id and timestamp are not part of the hash")

	b.Add("blog/a/index.html", KindUnit, nil, []byte("changed"))
	hc, err := b.Hash()
	require.NoError(t, err)
	assert.NotEqual(t, ha, hc)
}

func TestCompare(t *testing.T) {
	prev := sample()
	cur := New("b2", time.Now())
	cur.Add("blog/a/index.html", KindUnit, nil, []byte("a"))
	cur.Add("blog/index.html", KindPage, nil, []byte("list v2"))
	cur.Add("blog/c/index.html", KindUnit, nil, []byte("c"))

	d := Compare(prev, cur)
	assert.Equal(t, []string{"blog/c/index.html"}, d.Added)
	assert.Equal(t, []string{"blog/index.html"}, d.Changed)
	assert.Empty(t, d.Removed)
	assert.Equal(t, 1, d.Unchanged)
	assert.False(t, d.Empty())

	back := Compare(cur, prev)
	assert.Equal(t, []string{"blog/c/index.html"}, back.Removed)

	first := Compare(nil, cur)
	assert.Len(t, first.Added, 3)
	assert.True(t, Compare(cur, cur).Empty())
}

func TestAddConcurrent(t *testing.T) {
	m := New("x", time.Time{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Add(filepath.Join("p", string(rune('a'+i%26)), time.Duration(i).String()), KindUnit, nil, nil)
		}(i)
	}
	wg.Wait()
	assert.Len(t, m.Paths(), 50)
}
