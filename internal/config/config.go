// Package config declares the store's constructor configuration, following
// the teacher's nested-struct-with-DefaultConfig idiom.
package config

import (
	"github.com/indexedstore/store/internal/logger"
	"github.com/indexedstore/store/internal/types"
)

// Config is the store's constructor configuration (spec.md §6).
type Config struct {
	// Delimiter separates field names inside a composite index descriptor.
	// Immutable after construction.
	Delimiter string

	// ID is an informational instance identifier.
	ID string

	// Index is the initial, ordered set of declared descriptors.
	Index []string

	// Key is the record field used to derive an id when Set is called
	// without an explicit one. Empty means "no key field configured".
	Key string

	// Versioning enables per-id version history (component G).
	Versioning bool

	// Immutable switches the store to the copy-on-write snapshot variant
	// (structural sharing via a persistent radix tree).
	Immutable bool

	// RawDefault is the default value of the `raw` parameter accepted by
	// most read operations. Both settings return an independent clone
	// (record.go's view() always clones, so no live alias into store
	// state ever escapes either way); raw only picks the returned type,
	// Record vs FrozenRecord, both aliases of the same underlying type.
	// See DESIGN.md's "Record vs. FrozenRecord" decision for why a
	// distinct frozen-view representation wasn't built.
	RawDefault bool

	Hooks types.Hooks

	Logger *logger.Logger
}

// DefaultConfig returns the zero-value-safe defaults spec.md §6 specifies.
func DefaultConfig() *Config {
	return &Config{
		Delimiter:  "|",
		Index:      nil,
		Key:        "",
		Versioning: false,
		Immutable:  false,
		RawDefault: false,
		Logger:     logger.Default(),
	}
}

// Normalize fills in any zero-valued fields a caller-supplied Config left
// unset. An empty Delimiter becomes "|" as in DefaultConfig, but a nil
// Logger becomes a discarding logger rather than DefaultConfig's stderr
// logger. A nil Config yields DefaultConfig().
func (c *Config) Normalize() *Config {
	if c == nil {
		return DefaultConfig()
	}
	if c.Delimiter == "" {
		c.Delimiter = "|"
	}
	if c.Logger == nil {
		c.Logger = logger.Discard()
	}
	return c
}
