package oracle

import (
	"context"
	"crypto/sha256"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedChecker remembers verdicts for recently checked sources. Errors are
// never cached.
type CachedChecker struct {
	next  Checker
	cache *lru.Cache[[sha256.Size]byte, Result]
}

// NewCached wraps next with an LRU of the given size. A size of zero or less
// returns next unchanged.
func NewCached(next Checker, size int) (Checker, error) {
	if size <= 0 {
		return next, nil
	}

	cache, err := lru.New[[sha256.Size]byte, Result](size)
	if err != nil {
		return nil, fmt.Errorf("create check cache: %w", err)
	}

	return &CachedChecker{next: next, cache: cache}, nil
}

// Check returns a cached verdict or asks the wrapped checker.
func (c *CachedChecker) Check(ctx context.Context, source string) (Result, error) {
	key := sha256.Sum256([]byte(source))

	if result, ok := c.cache.Get(key); ok {
		return result, nil
	}

	result, err := c.next.Check(ctx, source)
	if err != nil {
		return Result{}, err
	}

	c.cache.Add(key, result)

	return result, nil
}

// Len returns the number of cached verdicts.
func (c *CachedChecker) Len() int {
	return c.cache.Len()
}
