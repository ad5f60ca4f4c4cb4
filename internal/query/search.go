package query

import (
	"regexp"

	"github.com/indexedstore/store/internal/keybuilder"
)

// Needle is the normalized form of Search's `needle` parameter (spec.md
// §4.E): a function, a regex, or a scalar, all reduced to one matcher
// signature.
type Needle func(key, descriptor string) bool

// CompileNeedle accepts a func(key, descriptor string) bool, a
// *regexp.Regexp (tested against the index key), or a scalar (compared for
// equality against the index key), and returns the matcher function Search
// iterates with.
func CompileNeedle(needle interface{}) Needle {
	switch n := needle.(type) {
	case Needle:
		return n
	case func(key, descriptor string) bool:
		return n
	case *regexp.Regexp:
		return func(key, _ string) bool { return n.MatchString(key) }
	default:
		scalar := keybuilder.Stringify(n)
		return func(key, _ string) bool { return key == scalar }
	}
}
