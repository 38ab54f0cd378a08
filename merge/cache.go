// Copyright 2026 The Alloy Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package merge

import (
	"sync"

	"github.com/alloy-ml/alloy/tensor"
)

// Cache stores previously computed rotations across calls, keyed by an
// opaque identifier of the parameter tensor being merged. Entries are
// stored at reduced precision (Float32) and converted back to working
// precision on reuse. The core never evicts; lifetime is the caller's
// responsibility. A cached rotation is only ever reused for the exact key
// that produced it.
type Cache interface {
	// Get returns the entry for key, if present.
	Get(key string) (*tensor.RawTensor, bool)
	// Put stores the entry for key, replacing any previous one.
	Put(key string, value *tensor.RawTensor)
}

// NopCache is the no-caching configuration: it stores nothing and never
// hits.
type NopCache struct{}

// Get always misses.
func (NopCache) Get(string) (*tensor.RawTensor, bool) { return nil, false }

// Put discards the entry.
func (NopCache) Put(string, *tensor.RawTensor) {}

// MapCache is a mutex-guarded in-memory Cache, safe for use by an executor
// that merges independent parameter keys in parallel.
type MapCache struct {
	mu      sync.RWMutex
	entries map[string]*tensor.RawTensor
}

// NewMapCache returns an empty MapCache.
func NewMapCache() *MapCache {
	return &MapCache{entries: make(map[string]*tensor.RawTensor)}
}

// Get returns the entry for key, if present.
func (c *MapCache) Get(key string) (*tensor.RawTensor, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// Put stores the entry for key.
func (c *MapCache) Put(key string, value *tensor.RawTensor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
}

// Len returns the number of cached entries.
func (c *MapCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
