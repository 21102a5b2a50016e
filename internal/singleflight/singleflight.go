// Package singleflight coalesces concurrent calls for the same key so only
// one execution is in flight at a time. Used for optional client build
// coalescing.
package singleflight

import (
	"sync"
)

// Group manages a set of in-flight calls keyed by string.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// call represents an active function call and its eventual result.
type call struct {
	wg  sync.WaitGroup
	val interface{}
	err error
}

// New creates an empty Group.
func New() *Group {
	return &Group{
		m: make(map[string]*call),
	}
}

// Do executes fn and returns its result, making sure only one execution is
// in flight for key at a time. Duplicate callers block until the owner
// completes and receive the owner's result. The key is forgotten once the
// owning call returns, so later calls execute fresh — a failed call is
// never cached.
func (g *Group) Do(key string, fn func() (interface{}, error)) (interface{}, error) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.m, key)
	g.mu.Unlock()
	c.wg.Done()

	return c.val, c.err
}
