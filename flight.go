package nasc

import (
	"slices"
	"sync"
)

// waitMu guards every buildGroup and the waitingOn field of every
// resolution, so the graph of resolutions waiting on each other is always
// read consistently.
var waitMu sync.Mutex

// pendingBuild is a first build of key that one resolution is running.
type pendingBuild struct {
	key   Key
	owner *resolution
	done  chan struct{}
}

// buildGroup tracks the builds in progress for one cache (the container's
// singletons or one scope's instances). At most one resolution builds a
// given key at a time; the others wait for it and then re-read the cache.
type buildGroup struct {
	pending map[Key]*pendingBuild
}

// acquire claims the build of key for r. It returns a release func when r
// is now the builder. It returns nil, nil once another resolution's build
// of key has finished, and the caller re-reads the cache. Waiting on a
// build that is itself waiting on r fails with a CircularDependencyError.
func (g *buildGroup) acquire(r *resolution, key Key) (func(), error) {
	waitMu.Lock()
	p, busy := g.pending[key]
	if !busy {
		if g.pending == nil {
			g.pending = make(map[Key]*pendingBuild)
		}
		p = &pendingBuild{key: key, owner: r, done: make(chan struct{})}
		g.pending[key] = p
		waitMu.Unlock()

		return func() {
			waitMu.Lock()
			delete(g.pending, key)
			waitMu.Unlock()
			close(p.done)
		}, nil
	}

	if path := waitCycle(r, p); path != nil {
		waitMu.Unlock()
		return nil, &CircularDependencyError{Path: path}
	}
	r.waitingOn = p
	waitMu.Unlock()

	defer func() {
		waitMu.Lock()
		r.waitingOn = nil
		waitMu.Unlock()
	}()

	select {
	case <-p.done:
		return nil, nil
	case <-r.ctx.Done():
		return nil, r.ctx.Err()
	}
}

// waitCycle follows the chain of builds starting at p, each owned by a
// resolution that is waiting on the next. If the chain comes back to r it
// returns the dependency path of the loop, else nil. Must hold waitMu.
func waitCycle(r *resolution, p *pendingBuild) []Key {
	chain := []Key{p.key}
	for p != nil {
		if p.owner == r {
			held := chain[len(chain)-1]
			i := slices.Index(r.stack, held)
			if i < 0 {
				return append(chain, chain[0])
			}
			return append(slices.Clone(r.stack[i:]), chain[1:]...)
		}
		p = p.owner.waitingOn
		if p != nil {
			chain = append(chain, p.key)
		}
	}
	return nil
}
