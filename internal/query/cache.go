package query

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// PlanCache caches compiled predicates under a caller-built plan key (Where
// uses the logical operator plus each sorted field name with its value), so
// a repeatedly-issued identical Where skips recompiling its Expr tree. Declared
// but never wired by the teacher's go.mod closure (golang-lru/v2 is present
// only as an indirect dependency there); wired here for the query hot path.
type PlanCache struct {
	cache *lru.Cache[string, *Expr]
}

// NewPlanCache creates a cache holding up to size compiled plans.
func NewPlanCache(size int) *PlanCache {
	if size <= 0 {
		size = 256
	}
	c, _ := lru.New[string, *Expr](size)
	return &PlanCache{cache: c}
}

// GetOrCompile returns the cached Expr for planKey, compiling and caching
// it via compile if absent.
func (p *PlanCache) GetOrCompile(planKey string, compile func() *Expr) *Expr {
	if p == nil || p.cache == nil {
		return compile()
	}
	if expr, ok := p.cache.Get(planKey); ok {
		return expr
	}
	expr := compile()
	p.cache.Add(planKey, expr)
	return expr
}
