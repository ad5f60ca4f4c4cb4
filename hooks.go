package store

import "github.com/indexedstore/store/internal/types"

// Hooks are the lifecycle callbacks a Config may set to observe mutations
// (spec.md §4.D). They are pure observers: the store's correctness never
// depends on them running, and a Before* hook returning an error vetoes the
// mutation it guards before any state changes.
type Hooks = types.Hooks
