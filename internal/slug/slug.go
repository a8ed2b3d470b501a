// Package slug turns titles and path tokens into URL-safe slugs.
package slug

import (
	"errors"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultSeparator joins the words of a slug.
const DefaultSeparator = "-"

// ErrEmpty is returned when nothing usable remains of the input.
var ErrEmpty = errors.New("slug is empty")

var articles = map[string]struct{}{"a": {}, "an": {}, "the": {}}

// Options configures a Slugifier.
type Options struct {
	Separator     string
	Substitutions map[string]string
	// DropArticles removes the English articles a, an and the.
	DropArticles bool
}

// Slugifier produces slugs. It is safe for concurrent use.
type Slugifier struct {
	sep      string
	replacer *strings.Replacer
	drop     bool
}

// New builds a Slugifier. Substitutions are applied before anything else,
// longest key first so overlapping keys resolve deterministically.
func New(opts Options) *Slugifier {
	sep := opts.Separator
	if sep == "" {
		sep = DefaultSeparator
	}

	s := &Slugifier{sep: sep, drop: opts.DropArticles}
	if len(opts.Substitutions) > 0 {
		keys := make([]string, 0, len(opts.Substitutions))
		for k := range opts.Substitutions {
			if k != "" {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if len(keys[i]) != len(keys[j]) {
				return len(keys[i]) > len(keys[j])
			}
			return keys[i] < keys[j]
		})
		pairs := make([]string, 0, 2*len(keys))
		for _, k := range keys {
			pairs = append(pairs, k, opts.Substitutions[k])
		}
		s.replacer = strings.NewReplacer(pairs...)
	}
	return s
}

// Make slugifies text: substitutions, accent folding, lowercasing, then
// every run of characters that are not letters or digits collapses into a
// single separator. Leading and trailing separators are trimmed.
func (s *Slugifier) Make(text string) (string, error) {
	if s.replacer != nil {
		text = s.replacer.Replace(text)
	}
	text = fold(text)

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if s.drop {
		kept := words[:0]
		for _, w := range words {
			if _, ok := articles[w]; !ok {
				kept = append(kept, w)
			}
		}
		words = kept
	}
	if len(words) == 0 {
		return "", ErrEmpty
	}
	return strings.Join(words, s.sep), nil
}

// Separator reports the configured word separator.
func (s *Slugifier) Separator() string { return s.sep }

// fold strips combining marks after canonical decomposition so "Crème" and
// "Creme" produce the same slug.
func fold(text string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		return text
	}
	return out
}
