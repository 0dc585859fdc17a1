package singleflight

import (
	"sync"
)

// Group manages a set of in-flight calls to prevent duplicate work.
// Callers arriving while a call for the same key is running join it and
// receive its result; once the call returns the key is free again.
type Group struct {
	mu sync.Mutex
	m  map[string]*call
}

// call represents an active function call.
type call struct {
	wg   sync.WaitGroup
	val  interface{}
	err  error
	dups int
}

// New creates a new singleflight Group.
func New() *Group {
	return &Group{
		m: make(map[string]*call),
	}
}

// Do executes and returns the results of the given function, making sure that
// only one execution is in-flight for a given key at a time. If a duplicate
// comes in, the duplicate caller waits for the original to complete and
// receives the same results. shared reports whether the result was handed to
// more than one caller.
func (g *Group) Do(key string, fn func() (interface{}, error)) (v interface{}, err error, shared bool) {
	g.mu.Lock()
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	return c.val, c.err, c.dups > 0
}

// TryDo executes the function only if no other call with the same key is in
// progress. If another call is in progress, it returns immediately with
// ErrInProgress and false.
func (g *Group) TryDo(key string, fn func() (interface{}, error)) (interface{}, error, bool) {
	g.mu.Lock()
	if _, ok := g.m[key]; ok {
		g.mu.Unlock()
		return nil, ErrInProgress, false
	}

	c := &call{}
	c.wg.Add(1)
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	return c.val, c.err, true
}

// InFlight reports whether a call for key is currently running.
func (g *Group) InFlight(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.m[key]
	return ok
}

func (g *Group) run(key string, c *call, fn func() (interface{}, error)) {
	defer func() {
		g.mu.Lock()
		if g.m[key] == c {
			delete(g.m, key)
		}
		g.mu.Unlock()
		c.wg.Done()
	}()

	c.val, c.err = fn()
}
