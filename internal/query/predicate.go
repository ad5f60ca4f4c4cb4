// Package query implements the query surface's matching machinery
// (spec.md §4.E): a compiled predicate AST for Where/Find-style matching,
// and the comparator plumbing Sort uses.
//
// The AST replaces the "dynamic predicate compilation" the source
// (spec.md §9 design notes) built by string-concatenating a matcher
// function: a small tagged-variant tree (Equals / InArray / RegexMatch /
// And / Or) evaluated directly over a record, with no code generation at
// runtime. The leaf shape mirrors the teacher's own Expression type in
// internal/query/types.go (field + op + value), generalized here to the
// set of operators spec.md §4.E names.
package query

import (
	"regexp"
	"sort"

	"github.com/indexedstore/store/internal/keybuilder"
	"github.com/indexedstore/store/internal/types"
)

// NodeKind tags an Expr's variant.
type NodeKind int

const (
	NodeAnd NodeKind = iota
	NodeOr
	NodeEquals
	NodeInArray
	NodeRegexMatch
)

// Expr is one node of a compiled predicate tree.
type Expr struct {
	Kind     NodeKind
	Field    string          // leaf nodes only
	Scalar   interface{}     // NodeEquals
	Set      []interface{}   // NodeInArray
	Regex    *regexp.Regexp  // NodeRegexMatch
	Children []*Expr         // NodeAnd / NodeOr
}

// Logical selects how Compile combines per-field leaves.
type Logical string

const (
	LogicalAnd Logical = "and"
	LogicalOr  Logical = "or"
)

// Compile builds a predicate tree from a match object: one leaf per field,
// combined by logical (default AND when empty or unrecognized). The leaf
// kind is chosen from the query value's dynamic type:
//   - *regexp.Regexp -> RegexMatch, tested against the record field
//   - []interface{}  -> InArray, record field must equal one element
//   - anything else  -> Equals, record field must equal the value
func Compile(match map[string]interface{}, logical Logical) *Expr {
	fields := make([]string, 0, len(match))
	for f := range match {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	leaves := make([]*Expr, 0, len(fields))
	for _, field := range fields {
		leaves = append(leaves, compileLeaf(field, match[field]))
	}

	kind := NodeAnd
	if logical == LogicalOr {
		kind = NodeOr
	}
	return &Expr{Kind: kind, Children: leaves}
}

func compileLeaf(field string, value interface{}) *Expr {
	switch v := value.(type) {
	case *regexp.Regexp:
		return &Expr{Kind: NodeRegexMatch, Field: field, Regex: v}
	case []interface{}:
		return &Expr{Kind: NodeInArray, Field: field, Set: v}
	default:
		return &Expr{Kind: NodeEquals, Field: field, Scalar: v}
	}
}

// Eval evaluates the predicate against record.
func (e *Expr) Eval(record types.Record) bool {
	switch e.Kind {
	case NodeAnd:
		for _, c := range e.Children {
			if !c.Eval(record) {
				return false
			}
		}
		return true
	case NodeOr:
		for _, c := range e.Children {
			if c.Eval(record) {
				return true
			}
		}
		return len(e.Children) == 0
	case NodeEquals:
		return anyCandidate(record, e.Field, func(v interface{}) bool {
			return equalValues(v, e.Scalar)
		})
	case NodeInArray:
		return anyCandidate(record, e.Field, func(v interface{}) bool {
			for _, want := range e.Set {
				if equalValues(v, want) {
					return true
				}
			}
			return false
		})
	case NodeRegexMatch:
		return anyCandidate(record, e.Field, func(v interface{}) bool {
			return e.Regex.MatchString(keybuilder.Stringify(v))
		})
	default:
		return false
	}
}

// anyCandidate tests fn against record[field], treating an array value as
// matching if any element satisfies fn (spec.md §4.E "array-membership").
func anyCandidate(record types.Record, field string, fn func(interface{}) bool) bool {
	v, ok := record[field]
	if !ok {
		v = nil
	}
	if arr, ok := v.([]interface{}); ok {
		for _, elem := range arr {
			if fn(elem) {
				return true
			}
		}
		return false
	}
	return fn(v)
}

func equalValues(a, b interface{}) bool {
	return keybuilder.Stringify(a) == keybuilder.Stringify(b) && sameKind(a, b)
}

// sameKind guards against e.g. the string "true" matching the bool true
// purely because Stringify renders them the same way.
func sameKind(a, b interface{}) bool {
	na, numA := toNumber(a)
	nb, numB := toNumber(b)
	if numA && numB {
		return na == nb
	}
	if numA != numB {
		return false
	}
	_, boolA := a.(bool)
	_, boolB := b.(bool)
	if boolA != boolB {
		return false
	}
	return true
}

func toNumber(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	default:
		return 0, false
	}
}

// Fields named in a Where match object must belong to declared indexes
// (spec.md §4.E); FieldsOf extracts them for that check.
func FieldsOf(match map[string]interface{}) []string {
	out := make([]string, 0, len(match))
	for f := range match {
		out = append(out, f)
	}
	return out
}
