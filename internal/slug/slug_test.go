package slug

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMake(t *testing.T) {
	s := New(Options{})

	tests := []struct {
		in   string
		want string
	}{
		{"My Post", "my-post"},
		{"  my   post  ", "my-post"},
		{"my_post", "my-post"},
		{"My Post!", "my-post"},
		{"Hello, World: Part 2", "hello-world-part-2"},
		{"Crème Brûlée", "creme-brulee"},
		{"--already-slugged--", "already-slugged"},
		{"日本語 テキスト", "日本語-テキスト"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := s.Make(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMake_Empty(t *testing.T) {
	s := New(Options{})
	for _, in := range []string{"", "   ", "!!!", "--"} {
		_, err := s.Make(in)
		assert.ErrorIs(t, err, ErrEmpty, in)
	}
}

func TestMake_SeparatorAndSubstitutions(t *testing.T) {
	s := New(Options{
		Separator:     "_",
		Substitutions: map[string]string{"&": " and ", "C++": "cpp", "C": "see"},
	})

	got, err := s.Make("Tips & Tricks for C++")
	require.NoError(t, err)
	assert.Equal(t, "tips_and_tricks_for_cpp", got)
	assert.Equal(t, "_", s.Separator())
}

func TestMake_DropArticles(t *testing.T) {
	s := New(Options{DropArticles: true})

	got, err := s.Make("The Art of an Engine")
	require.NoError(t, err)
	assert.Equal(t, "art-of-engine", got)

	_, err = s.Make("The A An")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestMake_ConcurrentUse(t *testing.T) {
	s := New(Options{Substitutions: map[string]string{"&": "and"}})
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := s.Make("Salt & Pepper")
			assert.NoError(t, err)
			assert.Equal(t, "salt-and-pepper", got)
		}()
	}
	wg.Wait()
}
