package index

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/matst80/slask-facets/pkg/types"
	"golang.org/x/sync/singleflight"
)

type Kind uint8

const (
	KindRowModel Kind = iota
	KindUniqueValues
	KindMinMax
	KindFiltered
	KindPreFiltered
	kindCount
)

func (k Kind) String() string {
	switch k {
	case KindRowModel:
		return "row_model"
	case KindUniqueValues:
		return "unique_values"
	case KindMinMax:
		return "min_max"
	case KindFiltered:
		return "filtered"
	case KindPreFiltered:
		return "pre_filtered"
	}
	return "unknown"
}

// generation identifies the inputs a cached value was computed from. Two
// equal generations always produce value equal results.
type generation struct {
	data    uint64
	column  uuid.UUID
	columns uint64
	global  uint64
	options uint64
	filters string
}

func (g generation) String() string {
	return fmt.Sprintf("%d/%s/%d/%d/%d/%s", g.data, g.column, g.columns, g.global, g.options, g.filters)
}

type cacheKey struct {
	column types.ColumnId
	kind   Kind
}

type cacheEntry struct {
	gen   generation
	value any
}

type CacheStats struct {
	Recomputations map[Kind]uint64
	Hits           map[Kind]uint64
}

func (s CacheStats) Recomputed(kind Kind) uint64 {
	return s.Recomputations[kind]
}

// FacetCache memoizes facet results per column and kind. An entry is valid
// as long as the generation it was computed for is current; stale entries are
// replaced on the next read.
type FacetCache struct {
	mu          sync.Mutex
	entries     map[cacheKey]*cacheEntry
	retired     map[uuid.UUID]struct{}
	group       singleflight.Group
	recomputed  [kindCount]atomic.Uint64
	hits        [kindCount]atomic.Uint64
	onRecompute func(column types.ColumnId, kind Kind)
}

func NewFacetCache(onRecompute func(column types.ColumnId, kind Kind)) *FacetCache {
	return &FacetCache{
		entries:     make(map[cacheKey]*cacheEntry),
		retired:     make(map[uuid.UUID]struct{}),
		onRecompute: onRecompute,
	}
}

func (c *FacetCache) lookup(key cacheKey, gen generation) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok && e.gen == gen {
		return e.value, true
	}
	return nil, false
}

// store keeps value unless it was computed for a column registration that
// has since been dropped.
func (c *FacetCache) store(key cacheKey, gen generation, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.retired[gen.column]; ok {
		return
	}
	c.entries[key] = &cacheEntry{gen: gen, value: value}
}

func (c *FacetCache) hit(kind Kind) {
	c.hits[kind].Add(1)
	facetCacheHits.WithLabelValues(kind.String()).Inc()
}

func (c *FacetCache) recompute(key cacheKey) {
	c.recomputed[key.kind].Add(1)
	facetRecomputations.WithLabelValues(key.kind.String()).Inc()
	if c.onRecompute != nil {
		c.onRecompute(key.column, key.kind)
	}
}

// Drop removes every entry of column and refuses later stores computed for
// the given registration.
func (c *FacetCache) Drop(column types.ColumnId, instance uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if instance != uuid.Nil {
		c.retired[instance] = struct{}{}
	}
	for k := range c.entries {
		if k.column == column {
			delete(c.entries, k)
		}
	}
}

func (c *FacetCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *FacetCache) Stats() CacheStats {
	ret := CacheStats{
		Recomputations: make(map[Kind]uint64, kindCount),
		Hits:           make(map[Kind]uint64, kindCount),
	}
	for k := range kindCount {
		ret.Recomputations[k] = c.recomputed[k].Load()
		ret.Hits[k] = c.hits[k].Load()
	}
	return ret
}

// cached returns the value stored for key at gen, computing it at most once
// even when several readers miss at the same time.
func cached[T any](c *FacetCache, key cacheKey, gen generation, compute func() T) T {
	if v, ok := c.lookup(key, gen); ok {
		c.hit(key.kind)
		return v.(T)
	}
	flight := fmt.Sprintf("%s\x00%d\x00%s", key.column, key.kind, gen)
	v, _, _ := c.group.Do(flight, func() (any, error) {
		if v, ok := c.lookup(key, gen); ok {
			c.hit(key.kind)
			return v, nil
		}
		value := compute()
		c.store(key, gen, value)
		c.recompute(key)
		return value, nil
	})
	return v.(T)
}
