// Package idgenerator hands out connection ids for the TCP server.
package idgenerator

import "sync/atomic"

// IdGenerator produces increasing uint32 ids and is safe for concurrent use.
// Zero is never returned, so it can stand for "no session"; after wrapping
// around the counter skips straight to 1.
type IdGenerator struct {
	id     atomic.Uint32
	issued atomic.Uint64
}

// NewIdGenerator returns a generator whose first id is startValue+1 (or 1
// when that would be zero).
func NewIdGenerator(startValue uint32) *IdGenerator {
	gen := &IdGenerator{}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next id.
func (g *IdGenerator) Id() uint32 {
	g.issued.Add(1)
	for {
		if id := g.id.Add(1); id != 0 {
			return id
		}
	}
}

// Issued reports how many ids have been handed out so far.
func (g *IdGenerator) Issued() uint64 {
	return g.issued.Load()
}
