package score

import (
	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds a Canonicalizer created with size <= 0.
const DefaultCacheSize = 4096

// Canonicalizer memoizes CanonicalBaseType. The same framework types recur
// in nearly every package of a run. Safe for concurrent use.
type Canonicalizer struct {
	cache *lru.Cache[string, string]
}

// NewCanonicalizer returns a Canonicalizer holding at most size entries.
func NewCanonicalizer(size int) (*Canonicalizer, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, string](size)
	if err != nil {
		return nil, err
	}
	return &Canonicalizer{cache: cache}, nil
}

// Canonical returns CanonicalBaseType(typ).
func (c *Canonicalizer) Canonical(typ string) string {
	if v, ok := c.cache.Get(typ); ok {
		return v
	}
	v := CanonicalBaseType(typ)
	c.cache.Add(typ, v)
	return v
}

// Score is Inhabitation using the cache.
func (c *Canonicalizer) Score(targets, created []string) Score {
	return InhabitationWith(c.Canonical, targets, created)
}

// Len reports the number of cached entries.
func (c *Canonicalizer) Len() int { return c.cache.Len() }
