package ambientfid

import "sync"

// A Comm performs the collective operations used by distributed
// extraction. Implementations must be safe for concurrent use by all
// workers of one group.
//
// A worker that never reaches a collective blocks the rest of the
// group indefinitely; there is deliberately no timeout.
type Comm interface {
	// Barrier blocks until every worker in the group has called it.
	Barrier()

	// AllGather shares a local slice with the group and returns the
	// slices of all workers, indexed by rank. Every worker receives
	// the complete set.
	AllGather(local []float64) [][]float64
}

// A Context identifies one worker inside a possibly multi-worker run.
type Context struct {
	Rank      int
	WorldSize int
	Comm      Comm
}

// Solo returns the context of a single-worker run, whose collectives
// are no-ops.
func Solo() *Context {
	return &Context{Rank: 0, WorldSize: 1, Comm: soloComm{}}
}

type soloComm struct{}

func (soloComm) Barrier() {}

func (soloComm) AllGather(local []float64) [][]float64 {
	return [][]float64{local}
}

// NewLocalGroup creates contexts for n workers that synchronize within
// a single process, one worker per goroutine.
func NewLocalGroup(n int) []*Context {
	if n <= 0 {
		panic("group size out of range")
	}
	g := &localGroup{size: n, slots: make([][]float64, n)}
	g.cond = sync.NewCond(&g.mu)
	res := make([]*Context, n)
	for i := range res {
		res[i] = &Context{
			Rank:      i,
			WorldSize: n,
			Comm:      &localComm{group: g, rank: i},
		}
	}
	return res
}

type localGroup struct {
	size int

	mu    sync.Mutex
	cond  *sync.Cond
	count int
	gen   int
	slots [][]float64
}

func (g *localGroup) barrier() {
	g.mu.Lock()
	defer g.mu.Unlock()
	gen := g.gen
	g.count++
	if g.count == g.size {
		g.count = 0
		g.gen++
		g.cond.Broadcast()
		return
	}
	for gen == g.gen {
		g.cond.Wait()
	}
}

type localComm struct {
	group *localGroup
	rank  int
}

func (l *localComm) Barrier() {
	l.group.barrier()
}

func (l *localComm) AllGather(local []float64) [][]float64 {
	g := l.group
	g.mu.Lock()
	g.slots[l.rank] = local
	g.mu.Unlock()
	g.barrier()
	g.mu.Lock()
	res := make([][]float64, g.size)
	copy(res, g.slots)
	g.mu.Unlock()
	// A second barrier keeps a fast worker from reusing a slot before
	// a slow worker has read it.
	g.barrier()
	return res
}
